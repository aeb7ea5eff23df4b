package application

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/davicafu/listdash/internal/listing/domain"
	"github.com/davicafu/listdash/internal/listing/infra/outbound/listcache"
)

// Session es una instancia de tabla abierta por un cliente (una pestaña, una vista).
type Session interface {
	ID() string
	TableID() string
	Controller() *Controller
	// Render devuelve la View tipada como valor serializable.
	Render(ctx context.Context, wait bool) (interface{}, error)
	Retry(ctx context.Context) (interface{}, error)
	Close()
}

// TableBinding sabe abrir sesiones de una tabla concreta.
type TableBinding interface {
	Spec() domain.TableSpec
	Open(ctx context.Context, id string) Session
}

// ---------- Binding genérico ----------

// Binding conecta una tabla con su caché y su fetcher.
type Binding[T any] struct {
	spec    domain.TableSpec
	cache   *listcache.Cache[T]
	fetcher domain.Fetcher[T]
	prefs   domain.PageSizeStore
	watch   *watchConfig[T]
	log     *zap.Logger
}

// BindingOption configura un Binding.
type BindingOption[T any] func(*Binding[T])

// WithWatch hace que cada sesión sondee mientras cond sea cierta.
func WithWatch[T any](interval time.Duration, cond func(*domain.Page[T]) bool) BindingOption[T] {
	return func(b *Binding[T]) { b.watch = &watchConfig[T]{interval: interval, cond: cond} }
}

func Bind[T any](spec domain.TableSpec, cache *listcache.Cache[T], fetcher domain.Fetcher[T], prefs domain.PageSizeStore, log *zap.Logger, opts ...BindingOption[T]) *Binding[T] {
	b := &Binding[T]{spec: spec.WithDefaults(), cache: cache, fetcher: fetcher, prefs: prefs, log: log}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Binding[T]) Spec() domain.TableSpec { return b.spec }

func (b *Binding[T]) Open(ctx context.Context, id string) Session {
	var opts []ControllerOption
	if b.prefs != nil {
		opts = append(opts, WithPreferences(b.prefs))
	}
	ctrl := NewController(ctx, b.spec, b.log, opts...)
	view := NewTableView(ctrl, b.cache, b.fetcher, b.log)
	if b.watch != nil {
		view.WatchInProgress(b.watch.interval, b.watch.cond)
	}
	return &tableSession[T]{id: id, view: view}
}

type tableSession[T any] struct {
	id   string
	view *TableView[T]
}

func (s *tableSession[T]) ID() string              { return s.id }
func (s *tableSession[T]) TableID() string         { return s.view.spec.ID }
func (s *tableSession[T]) Controller() *Controller { return s.view.Controller() }
func (s *tableSession[T]) Close()                  { s.view.Close() }

func (s *tableSession[T]) Render(ctx context.Context, wait bool) (interface{}, error) {
	if wait {
		return s.view.ViewWait(ctx)
	}
	return s.view.View(ctx)
}

func (s *tableSession[T]) Retry(ctx context.Context) (interface{}, error) {
	return s.view.Retry(ctx)
}

// ---------- Gestor de sesiones ----------

// SessionManager guarda las sesiones abiertas. Cada una es independiente: no hay
// bloqueo entre tablas, solo comparten entradas de caché si sus consultas coinciden.
type SessionManager struct {
	mu       sync.RWMutex
	bindings map[string]TableBinding
	sessions map[string]Session
	log      *zap.Logger
}

func NewSessionManager(log *zap.Logger) *SessionManager {
	return &SessionManager{
		bindings: make(map[string]TableBinding),
		sessions: make(map[string]Session),
		log:      log,
	}
}

func (m *SessionManager) Register(b TableBinding) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bindings[b.Spec().ID] = b
}

// Tables lista las tablas registradas, ordenadas.
func (m *SessionManager) Tables() []domain.TableSpec {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.TableSpec, 0, len(m.bindings))
	for _, b := range m.bindings {
		out = append(out, b.Spec())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *SessionManager) Open(ctx context.Context, tableID string) (Session, error) {
	m.mu.RLock()
	b, ok := m.bindings[tableID]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrTableNotFound, tableID)
	}

	s := b.Open(ctx, uuid.NewString())
	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mu.Unlock()
	m.log.Info("Sesión de tabla abierta", zap.String("session_id", s.ID()), zap.String("table", tableID))
	return s, nil
}

func (m *SessionManager) Get(id string) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	return s, nil
}

func (m *SessionManager) Close(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	s.Close()
	m.log.Info("Sesión de tabla cerrada", zap.String("session_id", id))
	return nil
}

// CloseAll cierra todas las sesiones (apagado).
func (m *SessionManager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]Session)
	m.mu.Unlock()
	for _, s := range sessions {
		s.Close()
	}
}

func (m *SessionManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
