package events

import (
	"context"
	"encoding/json"
	"sync"

	sharedBus "github.com/davicafu/listdash/internal/shared/infra/platform/bus"
)

// InMemoryEventBus es el bus de un solo proceso: sustituye a Kafka cuando no hay broker.
// Cada suscriptor recibe el evento serializado como []byte; si su buffer está lleno
// el evento se pierde para él.
type InMemoryEventBus struct {
	subscribers []chan interface{}
	mu          sync.RWMutex
	closed      bool
	topic       string
}

// Verifica en tiempo de compilación que cumple las interfaces
var (
	_ sharedBus.EventBus   = (*InMemoryEventBus)(nil)
	_ sharedBus.Subscriber = (*InMemoryEventBus)(nil)
)

func NewInMemoryEventBus(topic string) *InMemoryEventBus {
	return &InMemoryEventBus{
		subscribers: make([]chan interface{}, 0),
		topic:       topic,
	}
}

func (b *InMemoryEventBus) Topic() string { return b.topic }

// Publish serializa el evento y lo reparte sin bloquear al publicador.
func (b *InMemoryEventBus) Publish(ctx context.Context, event interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil
	}
	for _, sub := range b.subscribers {
		select {
		case sub <- payload:
		default:
		}
	}
	return nil
}

// Subscribe añade un oyente con el buffer indicado.
func (b *InMemoryEventBus) Subscribe(bufferSize int) <-chan interface{} {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan interface{}, bufferSize)
	if b.closed {
		close(ch)
		return ch
	}
	b.subscribers = append(b.subscribers, ch)
	return ch
}

// Close cierra todos los canales de suscripción.
func (b *InMemoryEventBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, ch := range b.subscribers {
		close(ch)
	}
	b.subscribers = nil
}
