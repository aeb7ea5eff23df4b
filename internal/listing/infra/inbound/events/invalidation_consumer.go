package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/davicafu/listdash/internal/listing/domain"
	sharedEvents "github.com/davicafu/listdash/internal/shared/events"
	sharedInfraEvents "github.com/davicafu/listdash/internal/shared/infra/events"
	sharedUtils "github.com/davicafu/listdash/internal/shared/infra/utils"
)

// Invalidator es lo que el consumidor necesita de la capa de aplicación.
type Invalidator interface {
	HandleEvent(ctx context.Context, eventType string) (int, error)
}

// InvalidationConsumer convierte eventos de mutación en invalidaciones de caché.
type InvalidationConsumer struct {
	invalidator Invalidator
	timeout     time.Duration
	log         *zap.Logger
}

// Verificación estática
var _ sharedInfraEvents.MessageHandler = (*InvalidationConsumer)(nil)

func NewInvalidationConsumer(invalidator Invalidator, logger *zap.Logger) *InvalidationConsumer {
	return &InvalidationConsumer{
		invalidator: invalidator,
		timeout:     500 * time.Millisecond,
		log:         logger,
	}
}

func (c *InvalidationConsumer) HandleMessage(ctx context.Context, key string, payload []byte) {
	var base sharedEvents.IntegrationEvent
	if err := json.Unmarshal(payload, &base); err != nil {
		c.log.Warn("Failed to unmarshal integration event", zap.String("key", key), zap.Error(err))
		return
	}

	sharedUtils.UnmarshalAndHandle[domain.MutationEvent](c.log, base.Data, func(evt domain.MutationEvent) {
		ctxEvt, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		n, err := c.invalidator.HandleEvent(ctxEvt, base.Type)
		if err != nil {
			if errors.Is(err, domain.ErrInvalidEvent) {
				c.log.Warn("Unknown event type", zap.String("type", base.Type))
				return
			}
			c.log.Warn("Failed to process mutation event", zap.String("type", base.Type), zap.Error(err))
			return
		}
		c.log.Info("Cache invalidated via event",
			zap.String("type", base.Type),
			zap.String("resource", evt.Resource),
			zap.String("resource_id", evt.ResourceID),
			zap.Int("entries", n),
		)
	})
}

// BackgroundConsumerChan consume el bus en memoria hasta que ctx termine o el canal se cierre.
func BackgroundConsumerChan(ctx context.Context, ch <-chan interface{}, consumer *InvalidationConsumer) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				consumer.log.Info("InvalidationConsumer stopped")
				return
			case msg, ok := <-ch:
				if !ok {
					consumer.log.Info("InvalidationConsumer channel closed")
					return
				}
				// El bus en memoria entrega []byte.
				if payload, ok := msg.([]byte); ok {
					consumer.HandleMessage(ctx, "", payload)
				}
			}
		}
	}()
}
