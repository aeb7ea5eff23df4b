package listcache

import (
	"container/list"
	"sort"
	"time"

	"github.com/davicafu/listdash/internal/listing/domain"
)

// Status es el estado de una entrada de la caché.
type Status string

const (
	StatusPending Status = "pending"
	StatusReady   Status = "ready"
	StatusError   Status = "error"
)

// Entry es una instantánea inmutable de una entrada. Data conserva la última página
// buena aunque haya un fetch en curso o el último haya fallado.
type Entry[T any] struct {
	Key       string          `json:"key"`
	Data      *domain.Page[T] `json:"data,omitempty"`
	Status    Status          `json:"status"`
	Err       error           `json:"-"`
	Tags      []string        `json:"tags"`
	Stale     bool            `json:"stale"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Loading es true mientras no hay ningún dato que mostrar.
func (e Entry[T]) Loading() bool {
	return e.Status == StatusPending && e.Data == nil
}

// Refreshing es true cuando se muestran datos previos mientras llega la respuesta nueva.
func (e Entry[T]) Refreshing() bool {
	return e.Status == StatusPending && e.Data != nil
}

// entry es el estado mutable interno; solo se toca con Cache.mu tomado.
type entry[T any] struct {
	key       string
	desc      domain.RequestDescriptor
	fetcher   domain.Fetcher[T]
	tags      map[string]struct{}
	data      *domain.Page[T]
	status    Status
	err       error
	stale     bool
	updatedAt time.Time

	gen      uint64 // se incrementa en cada fetch; una respuesta con gen distinto se descarta
	inflight bool
	done     chan struct{} // se cierra al terminar el fetch actual

	subs  map[int]chan Entry[T]
	polls int
	elem  *list.Element
}

func newEntry[T any](desc domain.RequestDescriptor, fetcher domain.Fetcher[T]) *entry[T] {
	done := make(chan struct{})
	close(done)
	return &entry[T]{
		key:     desc.QueryKey(),
		desc:    desc,
		fetcher: fetcher,
		tags:    make(map[string]struct{}),
		status:  StatusPending,
		done:    done,
		subs:    make(map[int]chan Entry[T]),
	}
}

// pinned: con fetch en vuelo, suscriptores o sondeos activos la entrada no se expulsa.
func (e *entry[T]) pinned() bool {
	return e.inflight || len(e.subs) > 0 || e.polls > 0
}

func (e *entry[T]) addTags(tags []string) {
	for _, t := range tags {
		if t != "" {
			e.tags[t] = struct{}{}
		}
	}
}

func (e *entry[T]) hasAny(tags []string) bool {
	for _, t := range tags {
		if _, ok := e.tags[t]; ok {
			return true
		}
	}
	return false
}

func (e *entry[T]) snapshot() Entry[T] {
	tags := make([]string, 0, len(e.tags))
	for t := range e.tags {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return Entry[T]{
		Key:       e.key,
		Data:      e.data,
		Status:    e.status,
		Err:       e.err,
		Tags:      tags,
		Stale:     e.stale,
		UpdatedAt: e.updatedAt,
	}
}

// notify publica la instantánea actual: cada suscriptor ve siempre la última.
func (e *entry[T]) notify() {
	if len(e.subs) == 0 {
		return
	}
	snap := e.snapshot()
	for _, ch := range e.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}

func (e *entry[T]) closeSubs() {
	for id, ch := range e.subs {
		close(ch)
		delete(e.subs, id)
	}
}
