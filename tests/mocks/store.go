package mocks

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/davicafu/listdash/internal/shared/infra/platform/kv"
)

// DummyStore es un kv.Store en memoria con fallos inyectables.
// Guarda bytes tal cual para poder simular registros corruptos.
type DummyStore struct {
	store map[string][]byte
	mu    sync.RWMutex

	GetErr error // si no es nil, Get falla siempre
	SetErr error // si no es nil, Set falla siempre
	Sets   int   // escrituras que llegaron al almacén
}

// Verificación estática para asegurar que implementa la interfaz compartida.
var _ kv.Store = (*DummyStore)(nil)

func NewDummyStore() *DummyStore {
	return &DummyStore{
		store: make(map[string][]byte),
	}
}

func (s *DummyStore) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.GetErr != nil {
		return false, s.GetErr
	}

	data, ok := s.store[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("%w: %v", kv.ErrCorrupt, err)
	}
	return true, nil
}

func (s *DummyStore) Set(ctx context.Context, key string, val interface{}, ttlSecs int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SetErr != nil {
		return s.SetErr
	}

	data, err := json.Marshal(val)
	if err != nil {
		return err
	}
	s.store[key] = data
	s.Sets++
	return nil
}

func (s *DummyStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.store, key)
	return nil
}

// SetRaw guarda bytes sin validar.
func (s *DummyStore) SetRaw(key string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store[key] = append([]byte(nil), data...)
}

// Raw devuelve lo guardado en key como texto ("" si no existe).
func (s *DummyStore) Raw(key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return string(s.store[key])
}
