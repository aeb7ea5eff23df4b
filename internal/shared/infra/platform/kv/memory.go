package kv

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// memoryItem guarda el valor y el tiempo de expiración.
type memoryItem struct {
	value     []byte // Guardamos los bytes para simular la serialización, igual que Redis.
	expiresAt time.Time
}

// MemoryStore implementa Store usando un mapa en memoria.
type MemoryStore struct {
	store    map[string]memoryItem
	mu       sync.RWMutex
	stopChan chan struct{}
	stopOnce sync.Once
}

// Verificación estática
var _ Store = (*MemoryStore)(nil)

// NewMemoryStore crea un almacén en memoria.
// Si cleanupInterval > 0 se arranca una goroutine que purga las claves expiradas;
// hay que llamar a Stop al apagar.
func NewMemoryStore(cleanupInterval time.Duration) *MemoryStore {
	s := &MemoryStore{
		store:    make(map[string]memoryItem),
		stopChan: make(chan struct{}),
	}
	if cleanupInterval > 0 {
		go s.cleanupLoop(cleanupInterval)
	}
	return s
}

func (s *MemoryStore) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	s.mu.RLock()
	item, ok := s.store[key]
	s.mu.RUnlock()
	if !ok || item.expired(time.Now()) {
		return false, nil
	}
	if err := decode(item.value, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (s *MemoryStore) Set(ctx context.Context, key string, val interface{}, ttlSecs int) error {
	data, err := json.Marshal(val)
	if err != nil {
		return err
	}
	s.SetRaw(key, data, ttlSecs)
	return nil
}

// SetRaw guarda bytes tal cual, sin pasar por JSON. Útil para simular registros corruptos.
func (s *MemoryStore) SetRaw(key string, data []byte, ttlSecs int) {
	item := memoryItem{value: append([]byte(nil), data...)}
	if ttlSecs > 0 {
		item.expiresAt = time.Now().Add(time.Duration(ttlSecs) * time.Second)
	}
	s.mu.Lock()
	s.store[key] = item
	s.mu.Unlock()
}

// Raw devuelve los bytes guardados para la clave.
func (s *MemoryStore) Raw(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.store[key]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), item.value...), true
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.store, key)
	s.mu.Unlock()
	return nil
}

// Stop detiene la goroutine de limpieza.
func (s *MemoryStore) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}

func (i memoryItem) expired(now time.Time) bool {
	return !i.expiresAt.IsZero() && now.After(i.expiresAt)
}

func (s *MemoryStore) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := time.Now()
			s.mu.Lock()
			for key, item := range s.store {
				if item.expired(now) {
					delete(s.store, key)
				}
			}
			s.mu.Unlock()
		case <-s.stopChan:
			return
		}
	}
}
