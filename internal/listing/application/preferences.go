package application

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/davicafu/listdash/internal/listing/domain"
	"github.com/davicafu/listdash/internal/shared/infra/platform/kv"
)

// DefaultPreferenceKey es el registro único donde se guardan los tamaños de página.
const DefaultPreferenceKey = "persist:pageSize"

// PreferenceStore persiste el tamaño de página por tabla en un único registro JSON
// {tableID: pageSize}. Ningún fallo de almacenamiento sale de aquí: se registra y se ignora.
type PreferenceStore struct {
	store   kv.Store
	key     string
	timeout time.Duration
	log     *zap.Logger

	mu sync.Mutex // serializa el read-modify-write dentro del proceso
}

// Verificación estática
var _ domain.PageSizeStore = (*PreferenceStore)(nil)

func NewPreferenceStore(store kv.Store, key string, timeout time.Duration, log *zap.Logger) *PreferenceStore {
	if key == "" {
		key = DefaultPreferenceKey
	}
	return &PreferenceStore{store: store, key: key, timeout: timeout, log: log}
}

// Get devuelve el tamaño guardado para tableID si existe, es numérico, entero y positivo.
func (p *PreferenceStore) Get(ctx context.Context, tableID string) (int, bool) {
	record, ok := p.read(ctx)
	if !ok {
		return 0, false
	}
	raw, ok := record[tableID]
	if !ok {
		return 0, false
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err != nil {
		p.log.Debug("Preferencia no numérica ignorada", zap.String("table", tableID), zap.Error(err))
		return 0, false
	}
	if n < 1 || n != math.Trunc(n) || n > math.MaxInt32 {
		return 0, false
	}
	return int(n), true
}

// Set fusiona {tableID: size} en el registro. Las claves de otras tablas se conservan.
// Un registro corrupto no se sobrescribe: la escritura se descarta.
func (p *PreferenceStore) Set(ctx context.Context, tableID string, size int) {
	if tableID == "" || size < 1 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	var record map[string]json.RawMessage
	_, err := p.store.Get(ctx, p.key, &record)
	if err != nil {
		if errors.Is(err, kv.ErrCorrupt) {
			p.log.Warn("Registro de preferencias corrupto, no se escribe", zap.String("key", p.key), zap.Error(err))
		} else {
			p.log.Warn("No se pudo leer preferencias", zap.String("key", p.key), zap.Error(err))
		}
		return
	}
	if record == nil {
		record = make(map[string]json.RawMessage)
	}
	record[tableID] = json.RawMessage(strconv.Itoa(size))

	if err := p.store.Set(ctx, p.key, record, 0); err != nil {
		p.log.Warn("No se pudo guardar preferencias", zap.String("key", p.key), zap.Error(err))
		return
	}
	p.log.Debug("Tamaño de página guardado", zap.String("table", tableID), zap.Int("page_size", size))
}

func (p *PreferenceStore) read(ctx context.Context) (map[string]json.RawMessage, bool) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	var record map[string]json.RawMessage
	ok, err := p.store.Get(ctx, p.key, &record)
	if err != nil {
		p.log.Debug("Preferencias ilegibles, se usan valores por defecto", zap.String("key", p.key), zap.Error(err))
		return nil, false
	}
	if !ok || record == nil {
		return nil, false
	}
	return record, true
}

func (p *PreferenceStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.timeout)
}
