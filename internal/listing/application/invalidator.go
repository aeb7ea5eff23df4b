package application

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/davicafu/listdash/internal/listing/domain"
)

// Invalidator traduce mutaciones a tags y los propaga a todas las cachés registradas.
type Invalidator struct {
	mu       sync.RWMutex
	targets  []domain.Invalidatable
	registry map[string][]string
	log      *zap.Logger
}

func NewInvalidator(log *zap.Logger, targets ...domain.Invalidatable) *Invalidator {
	return &Invalidator{
		targets:  targets,
		registry: domain.NewInvalidationRegistry(),
		log:      log,
	}
}

func (i *Invalidator) Register(t domain.Invalidatable) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.targets = append(i.targets, t)
}

// InvalidateTags marca como obsoletas las entradas de todas las cachés con esos tags.
func (i *Invalidator) InvalidateTags(tags ...string) int {
	i.mu.RLock()
	targets := append([]domain.Invalidatable(nil), i.targets...)
	i.mu.RUnlock()

	n := 0
	for _, t := range targets {
		n += t.Invalidate(tags...)
	}
	i.log.Debug("Tags invalidados", zap.Strings("tags", tags), zap.Int("entries", n))
	return n
}

// TagsFor devuelve los tags que invalida un tipo de evento.
func (i *Invalidator) TagsFor(eventType string) ([]string, bool) {
	tags, ok := i.registry[eventType]
	return tags, ok
}

// HandleEvent invalida lo que corresponde al tipo de evento.
func (i *Invalidator) HandleEvent(ctx context.Context, eventType string) (int, error) {
	tags, ok := i.TagsFor(eventType)
	if !ok {
		return 0, fmt.Errorf("%w: unknown type %q", domain.ErrInvalidEvent, eventType)
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return i.InvalidateTags(tags...), nil
}
