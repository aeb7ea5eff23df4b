package listcache

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/davicafu/listdash/internal/listing/domain"
)

// ErrClosed se devuelve al usar una caché ya cerrada.
var ErrClosed = domain.ErrCacheClosed

// Cache guarda páginas de un tipo de fila, indexadas por QueryKey y agrupadas por tags.
//
// Garantías:
//   - N llamadas concurrentes a Resolve con la misma clave producen como mucho un fetch en vuelo.
//   - Invalidate marca como obsoleto; el siguiente Resolve vuelve a pedir, y mientras tanto
//     se sigue sirviendo la última página buena.
//   - Un fetch que falla deja la entrada en error con los datos anteriores intactos.
//   - Una respuesta que llega para una generación ya superada se descarta.
type Cache[T any] struct {
	name string

	mu      sync.Mutex
	entries map[string]*entry[T]
	lru     *list.List // frente = usada más recientemente
	polls   map[string]*PollHandle
	nextSub int
	closed  bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	maxEntries   int
	fetchTimeout time.Duration
	clock        Clock
	log          *zap.Logger
	metrics      *Metrics
}

// Verificación estática
var _ domain.Invalidatable = (*Cache[domain.LogEntry])(nil)

// New crea una caché con nombre (etiqueta de métricas y logs).
func New[T any](name string, opts ...Option) *Cache[T] {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Cache[T]{
		name:         name,
		entries:      make(map[string]*entry[T]),
		lru:          list.New(),
		polls:        make(map[string]*PollHandle),
		ctx:          ctx,
		cancel:       cancel,
		maxEntries:   o.maxEntries,
		fetchTimeout: o.fetchTimeout,
		clock:        o.clock,
		log:          o.log.With(zap.String("cache", name)),
		metrics:      o.metrics,
	}
}

func (c *Cache[T]) Name() string { return c.name }

// ---------- Resolución ----------

// Resolve devuelve la entrada de desc sin bloquear. Si no existe o está obsoleta lanza
// un fetch; si ya hay uno en vuelo y la entrada no está obsoleta se reutiliza. Una entrada en error no se reintenta
// sola: hace falta Refetch o una invalidación.
func (c *Cache[T]) Resolve(ctx context.Context, tags []string, desc domain.RequestDescriptor, fetcher domain.Fetcher[T]) (Entry[T], error) {
	if err := ctx.Err(); err != nil {
		return Entry[T]{}, err
	}
	key := desc.QueryKey()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return Entry[T]{}, ErrClosed
	}

	e, ok := c.entries[key]
	switch {
	case !ok:
		e = newEntry(desc, fetcher)
		e.addTags(tags)
		c.entries[key] = e
		e.elem = c.lru.PushFront(key)
		c.metrics.lookups.WithLabelValues(c.name, "miss").Inc()
		c.startFetchLocked(e)
		c.evictLocked()
		c.metrics.entries.WithLabelValues(c.name).Set(float64(len(c.entries)))
	case e.stale:
		// Invalidada con un fetch en vuelo: ese fetch es anterior a la mutación, se relanza
		// y la generación nueva descarta su respuesta.
		e.addTags(tags)
		e.fetcher = fetcher
		c.lru.MoveToFront(e.elem)
		c.metrics.lookups.WithLabelValues(c.name, "stale").Inc()
		c.startFetchLocked(e)
	case e.inflight:
		e.addTags(tags)
		c.lru.MoveToFront(e.elem)
		c.metrics.lookups.WithLabelValues(c.name, "dedup").Inc()
	default:
		e.addTags(tags)
		c.lru.MoveToFront(e.elem)
		c.metrics.lookups.WithLabelValues(c.name, "hit").Inc()
	}
	return e.snapshot(), nil
}

// ResolveWait es Resolve más la espera a que la entrada deje de estar pendiente.
func (c *Cache[T]) ResolveWait(ctx context.Context, tags []string, desc domain.RequestDescriptor, fetcher domain.Fetcher[T]) (Entry[T], error) {
	snap, err := c.Resolve(ctx, tags, desc, fetcher)
	if err != nil {
		return snap, err
	}
	return c.Wait(ctx, snap.Key)
}

// Wait bloquea hasta que la entrada key no esté pendiente o ctx termine.
func (c *Cache[T]) Wait(ctx context.Context, key string) (Entry[T], error) {
	for {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return Entry[T]{}, ErrClosed
		}
		e, ok := c.entries[key]
		if !ok {
			c.mu.Unlock()
			return Entry[T]{}, fmt.Errorf("%w: %s", domain.ErrEntryNotFound, key)
		}
		if !e.inflight {
			snap := e.snapshot()
			c.mu.Unlock()
			return snap, nil
		}
		done := e.done
		c.mu.Unlock()

		select {
		case <-done:
		case <-ctx.Done():
			return Entry[T]{}, ctx.Err()
		case <-c.ctx.Done():
			return Entry[T]{}, ErrClosed
		}
	}
}

// Get devuelve la entrada sin lanzar ningún fetch.
func (c *Cache[T]) Get(key string) (Entry[T], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return Entry[T]{}, false
	}
	return e.snapshot(), true
}

// Refetch fuerza un fetch nuevo para key. Si había uno en vuelo, su respuesta se descartará.
func (c *Cache[T]) Refetch(ctx context.Context, key string) (Entry[T], error) {
	if err := ctx.Err(); err != nil {
		return Entry[T]{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return Entry[T]{}, ErrClosed
	}
	e, ok := c.entries[key]
	if !ok {
		return Entry[T]{}, fmt.Errorf("%w: %s", domain.ErrEntryNotFound, key)
	}
	c.lru.MoveToFront(e.elem)
	c.startFetchLocked(e)
	return e.snapshot(), nil
}

// ---------- Invalidación ----------

// Invalidate marca como obsoletas todas las entradas con alguno de los tags.
// No borra datos: los suscriptores siguen viendo la última página hasta que llegue la nueva.
func (c *Cache[T]) Invalidate(tags ...string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || len(tags) == 0 {
		return 0
	}
	n := 0
	for _, e := range c.entries {
		if !e.hasAny(tags) {
			continue
		}
		e.stale = true
		e.notify()
		n++
	}
	for _, t := range tags {
		c.metrics.invalidations.WithLabelValues(c.name, t).Add(float64(n))
	}
	if n > 0 {
		c.log.Debug("Entradas invalidadas", zap.Strings("tags", tags), zap.Int("count", n))
	}
	return n
}

// Evict elimina una entrada. Un fetch en vuelo para ella se descartará al llegar.
func (c *Cache[T]) Evict(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return false
	}
	c.removeLocked(e)
	c.metrics.evictions.WithLabelValues(c.name, "manual").Inc()
	c.metrics.entries.WithLabelValues(c.name).Set(float64(len(c.entries)))
	return true
}

// Len devuelve el número de entradas.
func (c *Cache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// ---------- Suscripciones ----------

// Subscribe devuelve un canal con la última instantánea de key tras cada cambio.
// El canal tiene buffer 1 y siempre contiene el estado más reciente; cancel lo cierra.
func (c *Cache[T]) Subscribe(key string) (<-chan Entry[T], func(), error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, nil, ErrClosed
	}
	e, ok := c.entries[key]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", domain.ErrEntryNotFound, key)
	}
	id := c.nextSub
	c.nextSub++
	ch := make(chan Entry[T], 1)
	ch <- e.snapshot()
	e.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			// La entrada pudo ser expulsada y sus canales ya cerrados.
			if sub, ok := e.subs[id]; ok {
				delete(e.subs, id)
				close(sub)
			}
		})
	}
	return ch, cancel, nil
}

// ---------- Ciclo de vida ----------

// Close detiene todos los sondeos, espera a los fetch en vuelo y cierra las suscripciones.
func (c *Cache[T]) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	polls := make([]*PollHandle, 0, len(c.polls))
	for _, p := range c.polls {
		polls = append(polls, p)
	}
	c.mu.Unlock()

	c.cancel()
	for _, p := range polls {
		p.Stop()
	}
	c.wg.Wait()

	c.mu.Lock()
	for _, e := range c.entries {
		e.closeSubs()
	}
	c.mu.Unlock()
	c.log.Debug("Caché cerrada")
}

// ---------- Internos ----------

// startFetchLocked lanza un fetch para e con una generación nueva. Requiere c.mu.
func (c *Cache[T]) startFetchLocked(e *entry[T]) {
	e.gen++
	gen := e.gen
	e.inflight = true
	e.stale = false
	e.status = StatusPending
	e.done = make(chan struct{})
	e.notify()

	c.wg.Add(1)
	go c.runFetch(e, gen, e.fetcher, e.desc, e.done)
}

func (c *Cache[T]) runFetch(e *entry[T], gen uint64, fetcher domain.Fetcher[T], desc domain.RequestDescriptor, done chan struct{}) {
	defer c.wg.Done()
	defer close(done)

	ctx := c.ctx
	if c.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.fetchTimeout)
		defer cancel()
	}

	start := c.clock.Now()
	page, err := safeFetch(ctx, fetcher, desc)
	c.metrics.fetchDuration.WithLabelValues(c.name).Observe(c.clock.Now().Sub(start).Seconds())
	if err == nil && page == nil {
		page = domain.EmptyPage[T](0)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if cur, ok := c.entries[e.key]; !ok || cur != e || e.gen != gen {
		c.metrics.staleDrops.WithLabelValues(c.name).Inc()
		c.log.Debug("Respuesta descartada por obsoleta", zap.String("key", e.key), zap.Uint64("gen", gen))
		return
	}

	e.inflight = false
	if err != nil {
		e.status = StatusError
		e.err = err
		c.metrics.fetches.WithLabelValues(c.name, "error").Inc()
		if !errors.Is(err, context.Canceled) {
			c.log.Warn("Error al obtener listado", zap.String("key", e.key), zap.Error(err))
		}
	} else {
		page.Normalize()
		e.data = page
		e.status = StatusReady
		e.err = nil
		e.updatedAt = c.clock.Now()
		c.metrics.fetches.WithLabelValues(c.name, "success").Inc()
	}
	e.notify()
	c.evictLocked()
}

// safeFetch convierte un panic del fetcher en error para no tumbar el proceso.
func safeFetch[T any](ctx context.Context, fetcher domain.Fetcher[T], desc domain.RequestDescriptor) (page *domain.Page[T], err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("fetcher panic: %v", r)
		}
	}()
	return fetcher(ctx, desc)
}

// evictLocked aplica el límite LRU. Nunca expulsa entradas en uso (ver entry.pinned).
func (c *Cache[T]) evictLocked() {
	if c.maxEntries <= 0 {
		return
	}
	// La más reciente nunca se expulsa: acaba de pedirse.
	for el := c.lru.Back(); el != nil && el != c.lru.Front() && len(c.entries) > c.maxEntries; {
		prev := el.Prev()
		e := c.entries[el.Value.(string)]
		if !e.pinned() {
			c.removeLocked(e)
			c.metrics.evictions.WithLabelValues(c.name, "lru").Inc()
		}
		el = prev
	}
	c.metrics.entries.WithLabelValues(c.name).Set(float64(len(c.entries)))
}

func (c *Cache[T]) removeLocked(e *entry[T]) {
	delete(c.entries, e.key)
	if e.elem != nil {
		c.lru.Remove(e.elem)
		e.elem = nil
	}
	e.closeSubs()
}
