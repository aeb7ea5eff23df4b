package application

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/davicafu/listdash/internal/listing/domain"
	"github.com/davicafu/listdash/internal/listing/infra/outbound/listcache"
)

// View es lo que consume el renderizador: filas, paginación y orden (nunca vacío).
type View[T any] struct {
	Key        string             `json:"key"`
	Rows       []T                `json:"rows"`
	Total      int                `json:"total"`
	PageCount  int                `json:"pageCount"`
	Page       int                `json:"page"`
	PageSize   int                `json:"pageSize"`
	PageSizes  []int              `json:"pageSizes"`
	Sorting    []domain.SortEntry `json:"sorting"`
	Status     listcache.Status   `json:"status"`
	Error      string             `json:"error,omitempty"`
	Stale      bool               `json:"stale"`
	Refreshing bool               `json:"refreshing"`
	Polling    bool               `json:"polling"`
}

type watchConfig[T any] struct {
	interval time.Duration
	cond     func(*domain.Page[T]) bool
}

// TableView une un Controller, una caché y un fetcher. Cada cambio efectivo de la
// consulta produce exactamente un Resolve; la caché se encarga de deduplicar.
type TableView[T any] struct {
	ctrl    *Controller
	cache   *listcache.Cache[T]
	fetcher domain.Fetcher[T]
	spec    domain.TableSpec
	log     *zap.Logger

	mu     sync.Mutex
	watch  *watchConfig[T]
	poll   *listcache.PollHandle
	unsub  func()
	closed bool

	followMu  sync.Mutex
	following *follower
}

// follower es la suscripción a la entrada de la consulta actual.
type follower struct {
	key    string
	cancel func()
}

func NewTableView[T any](ctrl *Controller, cache *listcache.Cache[T], fetcher domain.Fetcher[T], log *zap.Logger) *TableView[T] {
	v := &TableView[T]{
		ctrl:    ctrl,
		cache:   cache,
		fetcher: fetcher,
		spec:    ctrl.Spec(),
		log:     log.With(zap.String("table", ctrl.Spec().ID)),
	}
	v.unsub = ctrl.OnChange(func(domain.ListQuery) {
		if _, err := v.resolve(context.Background()); err != nil {
			v.log.Debug("Resolve tras cambio de consulta falló", zap.Error(err))
		}
	})
	return v
}

// Controller expone las operaciones que el renderizador puede emitir.
func (v *TableView[T]) Controller() *Controller { return v.ctrl }

// View resuelve la consulta actual sin bloquear.
func (v *TableView[T]) View(ctx context.Context) (View[T], error) {
	e, err := v.resolve(ctx)
	if err != nil {
		return View[T]{}, err
	}
	return v.build(e), nil
}

// ViewWait resuelve y espera a que la entrada deje de estar pendiente.
func (v *TableView[T]) ViewWait(ctx context.Context) (View[T], error) {
	e, err := v.resolve(ctx)
	if err != nil {
		return View[T]{}, err
	}
	if e, err = v.cache.Wait(ctx, e.Key); err != nil {
		return View[T]{}, err
	}
	v.ensurePoll(e)
	return v.build(e), nil
}

// Retry vuelve a pedir la consulta actual tras un error.
func (v *TableView[T]) Retry(ctx context.Context) (View[T], error) {
	key := v.ctrl.Descriptor().QueryKey()
	if _, ok := v.cache.Get(key); !ok {
		return v.View(ctx)
	}
	e, err := v.cache.Refetch(ctx, key)
	if err != nil {
		return View[T]{}, err
	}
	return v.build(e), nil
}

// WatchInProgress activa el sondeo de la consulta actual mientras cond sea cierta.
// Si la clave cambia (otra página, otro filtro) el sondeo se mueve a la nueva.
func (v *TableView[T]) WatchInProgress(interval time.Duration, cond func(*domain.Page[T]) bool) {
	v.mu.Lock()
	v.watch = &watchConfig[T]{interval: interval, cond: cond}
	v.mu.Unlock()

	desc := v.ctrl.Descriptor()
	if e, ok := v.cache.Get(desc.QueryKey()); ok {
		v.follow(e.Key)
		v.ensurePoll(e)
	}
}

// Polling indica si hay un sondeo vivo.
func (v *TableView[T]) Polling() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.poll != nil && !v.poll.Stopped()
}

// Close da de baja el oyente y para el sondeo. No cierra la caché, que es compartida.
func (v *TableView[T]) Close() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	unsub, poll := v.unsub, v.poll
	v.poll = nil
	v.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	if poll != nil {
		poll.Stop()
	}
	v.unfollow()
}

func (v *TableView[T]) resolve(ctx context.Context) (listcache.Entry[T], error) {
	v.mu.Lock()
	closed := v.closed
	v.mu.Unlock()
	if closed {
		return listcache.Entry[T]{}, domain.ErrSessionNotFound
	}

	desc := v.ctrl.Descriptor()
	e, err := v.cache.Resolve(ctx, v.spec.Tags, desc, v.fetcher)
	if err != nil {
		return e, err
	}
	v.mu.Lock()
	watching := v.watch != nil
	v.mu.Unlock()
	if watching {
		v.follow(e.Key)
	}
	v.ensurePoll(e)
	return e, nil
}

// follow se suscribe a key (soltando la suscripción anterior) para rearmar el sondeo
// cada vez que llegan datos, no solo cuando alguien lee la vista.
func (v *TableView[T]) follow(key string) {
	v.followMu.Lock()
	defer v.followMu.Unlock()
	if v.following != nil && v.following.key == key {
		return
	}
	if v.following != nil {
		v.following.cancel()
		v.following = nil
	}

	v.mu.Lock()
	closed := v.closed
	v.mu.Unlock()
	if closed {
		return
	}

	ch, cancel, err := v.cache.Subscribe(key)
	if err != nil {
		v.log.Debug("No se pudo seguir la entrada", zap.String("key", key), zap.Error(err))
		return
	}
	f := &follower{key: key, cancel: cancel}
	v.following = f
	go v.followLoop(f, ch)
}

func (v *TableView[T]) followLoop(f *follower, ch <-chan listcache.Entry[T]) {
	for e := range ch {
		if e.Status != listcache.StatusReady || e.Key != v.ctrl.Descriptor().QueryKey() {
			continue
		}
		v.ensurePoll(e)
	}
	// Canal cerrado: baja, expulsión de la entrada o cierre de la caché.
	v.followMu.Lock()
	if v.following == f {
		v.following = nil
	}
	v.followMu.Unlock()
}

func (v *TableView[T]) unfollow() {
	v.followMu.Lock()
	defer v.followMu.Unlock()
	if v.following != nil {
		v.following.cancel()
		v.following = nil
	}
}

// ensurePoll arranca (o mueve) el sondeo si hay watch y la condición se cumple.
func (v *TableView[T]) ensurePoll(e listcache.Entry[T]) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed || v.watch == nil {
		return
	}
	if v.poll != nil && !v.poll.Stopped() {
		if v.poll.Key() == e.Key {
			return
		}
		v.poll.Stop()
		v.poll = nil
	}
	if e.Data == nil || !v.watch.cond(e.Data) {
		return
	}
	h, err := v.cache.Poll(e.Key, v.watch.interval, v.watch.cond)
	if err != nil {
		v.log.Debug("No se pudo iniciar el sondeo", zap.Error(err))
		return
	}
	v.poll = h
}

func (v *TableView[T]) build(e listcache.Entry[T]) View[T] {
	q := v.ctrl.Query()
	out := View[T]{
		Key:        e.Key,
		Rows:       []T{},
		Page:       q.Page,
		PageSize:   q.PageSize,
		PageSizes:  append([]int(nil), v.spec.PageSizes...),
		Sorting:    domain.EffectiveSorting(q, v.spec),
		Status:     e.Status,
		Stale:      e.Stale,
		Refreshing: e.Refreshing(),
	}
	if e.Data != nil {
		out.Rows = e.Data.Items
		out.Total = e.Data.Total
		out.PageCount = e.Data.PageCount
	}
	if e.Err != nil {
		out.Error = e.Err.Error()
	}
	v.mu.Lock()
	out.Polling = v.poll != nil && !v.poll.Stopped()
	v.mu.Unlock()
	return out
}
