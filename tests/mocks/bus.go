package mocks

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/mock"

	sharedEvents "github.com/davicafu/listdash/internal/shared/events"
	sharedBus "github.com/davicafu/listdash/internal/shared/infra/platform/bus"
)

// MockEventBus simula un bus de eventos
type MockEventBus struct {
	mock.Mock
}

var _ sharedBus.EventBus = (*MockEventBus)(nil)

func (m *MockEventBus) Publish(ctx context.Context, event interface{}) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// Decode devuelve el IntegrationEvent tal y como lo vería un consumidor.
func Decode(event interface{}) (sharedEvents.IntegrationEvent, string) {
	var out sharedEvents.IntegrationEvent
	raw, _ := json.Marshal(event)
	_ = json.Unmarshal(raw, &out)
	key := ""
	if k, ok := event.(sharedBus.Keyer); ok {
		key = k.PartitionKey()
	}
	return out, key
}

// MockInvalidator simula la capa de aplicación vista desde el consumidor
type MockInvalidator struct {
	mock.Mock
}

func (m *MockInvalidator) HandleEvent(ctx context.Context, eventType string) (int, error) {
	args := m.Called(ctx, eventType)
	return args.Int(0), args.Error(1)
}

// MockMessageWriter simula el writer de kafka-go
type MockMessageWriter struct {
	mock.Mock
}

func (m *MockMessageWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *MockMessageWriter) Close() error {
	args := m.Called()
	return args.Error(0)
}

// ChanReader simula el reader de kafka-go: entrega lo que se envía a Messages
// y devuelve ctx.Err() al cancelarse.
type ChanReader struct {
	Messages chan kafka.Message
	Topic    string
	closed   chan struct{}
}

func NewChanReader(topic string) *ChanReader {
	return &ChanReader{Messages: make(chan kafka.Message, 16), Topic: topic, closed: make(chan struct{})}
}

func (r *ChanReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	case msg := <-r.Messages:
		return msg, nil
	}
}

func (r *ChanReader) Config() kafka.ReaderConfig {
	return kafka.ReaderConfig{Topic: r.Topic, Brokers: []string{"test:9092"}}
}

func (r *ChanReader) Close() error {
	close(r.closed)
	return nil
}

// Closed indica si se llamó a Close.
func (r *ChanReader) Closed() bool {
	select {
	case <-r.closed:
		return true
	default:
		return false
	}
}
