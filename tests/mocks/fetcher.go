package mocks

import (
	"context"
	"sync"

	"github.com/davicafu/listdash/internal/listing/domain"
)

// ListFetcher es un fetcher programable: cuenta llamadas, guarda los descriptores y
// permite retener llamadas concretas hasta que el test las libere.
type ListFetcher[T any] struct {
	mu      sync.Mutex
	calls   int
	descs   []domain.RequestDescriptor
	gates   map[int]chan struct{}
	started chan int

	// Respond decide la respuesta de la llamada n (empezando en 1).
	Respond func(n int, desc domain.RequestDescriptor) (*domain.Page[T], error)
}

func NewListFetcher[T any](respond func(n int, desc domain.RequestDescriptor) (*domain.Page[T], error)) *ListFetcher[T] {
	return &ListFetcher[T]{
		gates:   make(map[int]chan struct{}),
		started: make(chan int, 64),
		Respond: respond,
	}
}

// StaticPages responde siempre con los mismos items.
func StaticPages[T any](items ...T) func(int, domain.RequestDescriptor) (*domain.Page[T], error) {
	return func(int, domain.RequestDescriptor) (*domain.Page[T], error) {
		return &domain.Page[T]{Items: items, Total: len(items), Page: 1, PageSize: 25}, nil
	}
}

// Fetch cumple domain.Fetcher[T].
func (f *ListFetcher[T]) Fetch(ctx context.Context, desc domain.RequestDescriptor) (*domain.Page[T], error) {
	f.mu.Lock()
	f.calls++
	n := f.calls
	f.descs = append(f.descs, desc)
	gate := f.gates[n]
	respond := f.Respond
	f.mu.Unlock()

	select {
	case f.started <- n:
	default:
	}

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if respond == nil {
		return &domain.Page[T]{}, nil
	}
	return respond(n, desc)
}

// Hold retiene la llamada n hasta Release(n).
func (f *ListFetcher[T]) Hold(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.gates[n]; !ok {
		f.gates[n] = make(chan struct{})
	}
}

func (f *ListFetcher[T]) Release(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if g, ok := f.gates[n]; ok {
		close(g)
		delete(f.gates, n)
	}
}

// Started emite el número de cada llamada al empezar.
func (f *ListFetcher[T]) Started() <-chan int {
	return f.started
}

func (f *ListFetcher[T]) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *ListFetcher[T]) Descriptors() []domain.RequestDescriptor {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.RequestDescriptor, len(f.descs))
	copy(out, f.descs)
	return out
}
