package application

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/davicafu/listdash/internal/listing/domain"
	sharedEvents "github.com/davicafu/listdash/internal/shared/events"
	sharedBus "github.com/davicafu/listdash/internal/shared/infra/platform/bus"
)

// MutationNotifier publica las mutaciones hechas en otro punto del sistema para que
// todas las réplicas invaliden sus cachés.
type MutationNotifier struct {
	bus      sharedBus.EventBus
	registry map[string][]string
	log      *zap.Logger
}

func NewMutationNotifier(bus sharedBus.EventBus, log *zap.Logger) *MutationNotifier {
	return &MutationNotifier{bus: bus, registry: domain.NewInvalidationRegistry(), log: log}
}

// keyedEvent añade la clave de partición sin cambiar el JSON del evento.
type keyedEvent struct {
	sharedEvents.IntegrationEvent
	key string
}

func (e keyedEvent) PartitionKey() string { return e.key }

// Verificación estática
var _ sharedBus.Keyer = keyedEvent{}

// Notify valida el tipo y publica el evento de integración.
func (n *MutationNotifier) Notify(ctx context.Context, eventType string, evt domain.MutationEvent) error {
	if _, ok := n.registry[eventType]; !ok {
		return fmt.Errorf("%w: unknown type %q", domain.ErrInvalidEvent, eventType)
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	msg := keyedEvent{
		IntegrationEvent: sharedEvents.IntegrationEvent{
			Type:      eventType,
			Timestamp: time.Now().UTC(),
			Data:      data,
		},
		key: evt.PartitionKey(),
	}
	if err := n.bus.Publish(ctx, msg); err != nil {
		return fmt.Errorf("publish %s: %w", eventType, err)
	}
	n.log.Debug("Mutación publicada", zap.String("type", eventType), zap.String("resource_id", evt.ResourceID))
	return nil
}
