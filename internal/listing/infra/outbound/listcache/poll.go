package listcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/davicafu/listdash/internal/listing/domain"
)

var ErrInvalidInterval = errors.New("poll interval must be positive")

// PollHandle controla un sondeo en marcha. Stop es idempotente y no bloquea;
// Done se cierra cuando el bucle ha terminado y su ticker está parado.
type PollHandle struct {
	id       string
	key      string
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
}

func (p *PollHandle) ID() string              { return p.id }
func (p *PollHandle) Key() string             { return p.key }
func (p *PollHandle) Interval() time.Duration { return p.interval }
func (p *PollHandle) Done() <-chan struct{}   { return p.done }

// Stop cancela el sondeo. Se puede llamar varias veces y desde cualquier goroutine.
func (p *PollHandle) Stop() {
	p.cancel()
}

// Stopped indica si el bucle ya terminó.
func (p *PollHandle) Stopped() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Poll vuelve a pedir key cada interval mientras cond(últimos datos) sea cierto.
// En cada tick se evalúa cond antes de pedir: si es falso el sondeo termina sin fetch.
// Tras cada respuesta se vuelve a evaluar y, si ya es falso, no se programa el siguiente.
func (c *Cache[T]) Poll(key string, interval time.Duration, cond func(*domain.Page[T]) bool) (*PollHandle, error) {
	if interval <= 0 {
		return nil, ErrInvalidInterval
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	e, ok := c.entries[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrEntryNotFound, key)
	}

	ctx, cancel := context.WithCancel(c.ctx)
	h := &PollHandle{
		id:       uuid.NewString(),
		key:      key,
		interval: interval,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	c.polls[h.id] = h
	e.polls++
	c.metrics.activePolls.WithLabelValues(c.name).Set(float64(len(c.polls)))

	// El ticker se crea aquí para que exista en cuanto Poll retorna.
	ticker := c.clock.NewTicker(interval)

	c.wg.Add(1)
	go c.pollLoop(ctx, h, e, ticker, cond)

	c.log.Debug("Sondeo iniciado", zap.String("poll_id", h.id), zap.String("key", key), zap.Duration("interval", interval))
	return h, nil
}

// ActivePolls devuelve cuántos bucles de sondeo siguen vivos.
func (c *Cache[T]) ActivePolls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.polls)
}

func (c *Cache[T]) pollLoop(ctx context.Context, h *PollHandle, e *entry[T], ticker Ticker, cond func(*domain.Page[T]) bool) {
	defer c.wg.Done()
	defer close(h.done)
	defer ticker.Stop()
	defer c.releasePoll(h, e)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
		}

		done, ok := c.pollTick(e, cond)
		if !ok {
			c.log.Debug("Sondeo terminado: condición falsa", zap.String("poll_id", h.id))
			return
		}

		select {
		case <-done:
		case <-ctx.Done():
			return
		}

		if data, ok := c.currentData(e); !ok || !cond(data) {
			c.log.Debug("Sondeo terminado tras respuesta", zap.String("poll_id", h.id))
			return
		}
	}
}

// pollTick decide si hay que pedir y devuelve el canal del fetch a esperar.
func (c *Cache[T]) pollTick(e *entry[T], cond func(*domain.Page[T]) bool) (<-chan struct{}, bool) {
	data, ok := c.currentData(e)
	if !ok || !cond(data) {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.entries[e.key] != e {
		return nil, false
	}
	if !e.inflight {
		c.startFetchLocked(e)
	}
	return e.done, true
}

// currentData devuelve la última página de e, o false si e ya no está en la caché.
func (c *Cache[T]) currentData(e *entry[T]) (*domain.Page[T], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries[e.key] != e {
		return nil, false
	}
	return e.data, true
}

func (c *Cache[T]) releasePoll(h *PollHandle, e *entry[T]) {
	h.cancel()
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.polls, h.id)
	e.polls--
	c.metrics.activePolls.WithLabelValues(c.name).Set(float64(len(c.polls)))
}
