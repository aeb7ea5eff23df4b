package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/davicafu/listdash/internal/listing/domain"
	sharedEvents "github.com/davicafu/listdash/internal/shared/events"
	sharedInfraEvents "github.com/davicafu/listdash/internal/shared/infra/events"
	"github.com/davicafu/listdash/tests/mocks"
)

// buildEvent crea el IntegrationEvent serializado tal y como llega del bus.
func buildEvent(eventType string, data interface{}) []byte {
	raw, _ := json.Marshal(data)
	payload, _ := json.Marshal(sharedEvents.IntegrationEvent{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      raw,
	})
	return payload
}

func TestInvalidationConsumer_HandleMessage(t *testing.T) {
	ctx := context.Background()
	inv := new(mocks.MockInvalidator)
	consumer := NewInvalidationConsumer(inv, zap.NewNop())

	inv.On("HandleEvent", mock.Anything, domain.UserCreated).Return(2, nil).Once()
	inv.On("HandleEvent", mock.Anything, "order.created").Return(0, domain.ErrInvalidEvent).Once()
	inv.On("HandleEvent", mock.Anything, domain.RoleDeleted).Return(0, errors.New("boom")).Once()

	// --- 1. Evento válido ---
	consumer.HandleMessage(ctx, "user:1", buildEvent(domain.UserCreated, domain.MutationEvent{Resource: "user", ResourceID: "1"}))

	// --- 2. Evento sin payload: se invalida igualmente ---
	consumer.HandleMessage(ctx, "", buildEvent(domain.RoleDeleted, nil))

	// --- 3. Tipo desconocido ---
	consumer.HandleMessage(ctx, "", buildEvent("order.created", domain.MutationEvent{}))

	// --- 4. Payload malformado: no llega a la capa de aplicación ---
	consumer.HandleMessage(ctx, "", []byte(`{"type": "user.created", "data": "bad json"`))
	consumer.HandleMessage(ctx, "", []byte(`{"type":"user.updated","data":{"resource":42}}`))

	inv.AssertExpectations(t)
	inv.AssertNotCalled(t, "HandleEvent", mock.Anything, domain.UserUpdated)
}

func TestBackgroundConsumerChan_InMemoryBus(t *testing.T) {
	bus := sharedInfraEvents.NewInMemoryEventBus(domain.MutationTopic)
	inv := new(mocks.MockInvalidator)
	consumer := NewInvalidationConsumer(inv, zap.NewNop())

	called := make(chan string, 1)
	inv.On("HandleEvent", mock.Anything, domain.UploadCompleted).Run(func(args mock.Arguments) {
		called <- args.String(1)
	}).Return(3, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	BackgroundConsumerChan(ctx, bus.Subscribe(8), consumer)

	evt := sharedEvents.IntegrationEvent{Type: domain.UploadCompleted, Timestamp: time.Now()}
	assert.NoError(t, bus.Publish(ctx, evt))

	select {
	case typ := <-called:
		assert.Equal(t, domain.UploadCompleted, typ)
	case <-time.After(time.Second):
		t.Fatal("el consumidor no recibió el evento")
	}
	bus.Close()
}
