package application

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/davicafu/listdash/internal/listing/domain"
	shared "github.com/davicafu/listdash/internal/shared/domain"
)

// Controller es el único escritor de la ListQuery de una tabla. Cada operación se aplica
// sobre la última instantánea bajo el mutex y produce una ListQuery nueva.
//
// Toda operación salvo SetPage, SetFields y Reset deja page = 1.
type Controller struct {
	mu      sync.Mutex
	spec    domain.TableSpec
	initial domain.ListQuery
	query   domain.ListQuery

	prefs     domain.PageSizeStore
	listeners map[int]func(domain.ListQuery)
	nextID    int
	log       *zap.Logger
}

// ControllerOption configura un Controller.
type ControllerOption func(*Controller)

// WithInitialQuery sustituye la consulta de arranque de la tabla.
func WithInitialQuery(q domain.ListQuery) ControllerOption {
	return func(c *Controller) { c.initial = q.Clone() }
}

// WithPreferences conecta el almacén de tamaños de página.
func WithPreferences(p domain.PageSizeStore) ControllerOption {
	return func(c *Controller) { c.prefs = p }
}

// NewController construye el controlador. El tamaño persistido se lee una sola vez aquí.
func NewController(ctx context.Context, spec domain.TableSpec, log *zap.Logger, opts ...ControllerOption) *Controller {
	spec = spec.WithDefaults()
	c := &Controller{
		spec:      spec,
		initial:   spec.InitialQuery(),
		listeners: make(map[int]func(domain.ListQuery)),
		log:       log.With(zap.String("table", spec.ID)),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.initial.Page < 1 {
		c.initial.Page = 1
	}
	if c.initial.PageSize < 1 {
		c.initial.PageSize = spec.DefaultPageSize
	}
	if c.prefs != nil {
		if size, ok := c.prefs.Get(ctx, spec.ID); ok {
			c.initial.PageSize = size
		}
	}
	c.query = c.initial.Clone()
	return c
}

// Spec devuelve la especificación de la tabla.
func (c *Controller) Spec() domain.TableSpec { return c.spec }

// Query devuelve una copia de la consulta actual.
func (c *Controller) Query() domain.ListQuery {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.query.Clone()
}

// Descriptor serializa la consulta actual.
func (c *Controller) Descriptor() domain.RequestDescriptor {
	return domain.Serialize(c.Query(), c.spec)
}

// OnChange registra un oyente que recibe cada cambio efectivo. Se llama fuera del
// mutex, así que el oyente puede leer Query(); devuelve la función para darse de baja.
func (c *Controller) OnChange(fn func(domain.ListQuery)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	}
}

// ---------- Paginación ----------

func (c *Controller) SetPage(n int) domain.ListQuery {
	return c.update(func(q *domain.ListQuery) { q.Page = n })
}

// SetPageSize cambia el tamaño, vuelve a la página 1 y persiste la elección.
// Un fallo al persistir nunca impide el cambio en memoria.
func (c *Controller) SetPageSize(n int) domain.ListQuery {
	if n < 1 {
		n = c.spec.DefaultPageSize
	}
	next := c.update(func(q *domain.ListQuery) {
		q.PageSize = n
		q.Page = 1
	})
	if c.prefs != nil {
		c.prefs.Set(context.Background(), c.spec.ID, n)
	}
	return next
}

// ---------- Ordenación ----------

func (c *Controller) SetSorting(next []domain.SortEntry) domain.ListQuery {
	return c.update(func(q *domain.ListQuery) {
		q.Sorting = cleanSorting(next)
		q.Page = 1
	})
}

// UpdateSorting aplica fn sobre el orden actual (tal cual, sin sustituir el de defecto).
func (c *Controller) UpdateSorting(fn func(prev []domain.SortEntry) []domain.SortEntry) domain.ListQuery {
	return c.update(func(q *domain.ListQuery) {
		prev := append([]domain.SortEntry(nil), q.Sorting...)
		q.Sorting = cleanSorting(fn(prev))
		q.Page = 1
	})
}

// ToggleSort es el click en una cabecera. Sobre el orden efectivo: una columna ya
// ordenada invierte su dirección; una nueva sustituye el orden, o se añade al final
// si multi es true.
func (c *Controller) ToggleSort(field string, multi bool) domain.ListQuery {
	if field == "" {
		return c.Query()
	}
	return c.update(func(q *domain.ListQuery) {
		current := domain.EffectiveSorting(*q, c.spec)
		q.Sorting = toggle(current, field, multi)
		q.Page = 1
	})
}

func toggle(current []domain.SortEntry, field string, multi bool) []domain.SortEntry {
	for i, s := range current {
		if s.Field != field {
			continue
		}
		flipped := domain.SortEntry{Field: field, Desc: !s.Desc}
		if !multi {
			return []domain.SortEntry{flipped}
		}
		out := append([]domain.SortEntry(nil), current...)
		out[i] = flipped
		return out
	}
	entry := domain.SortEntry{Field: field}
	if !multi {
		return []domain.SortEntry{entry}
	}
	return append(append([]domain.SortEntry(nil), current...), entry)
}

func cleanSorting(in []domain.SortEntry) []domain.SortEntry {
	out := make([]domain.SortEntry, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		if s.Field == "" || seen[s.Field] {
			continue
		}
		seen[s.Field] = true
		out = append(out, s)
	}
	return out
}

// ---------- Filtros ----------

// SetFilter sustituye el filtro del campo. Un valor vacío elimina el filtro.
func (c *Controller) SetFilter(field string, op shared.Operator, value interface{}) domain.ListQuery {
	return c.update(func(q *domain.ListQuery) {
		q.Filters = withoutField(q.Filters, field)
		crit := shared.Criterion{Field: field, Op: op, Value: value}
		if crit.Op == "" {
			crit.Op = shared.OpEq
		}
		if !crit.Empty() {
			q.Filters = append(q.Filters, crit)
		}
		q.Page = 1
	})
}

// SetFilters reemplaza todos los filtros; los vacíos se descartan.
func (c *Controller) SetFilters(filters []shared.Criterion) domain.ListQuery {
	return c.update(func(q *domain.ListQuery) {
		q.Filters = nil
		for _, f := range filters {
			if !f.Empty() {
				q.Filters = append(q.Filters, f)
			}
		}
		q.Page = 1
	})
}

// SetCriteria traduce un Criteria a filtros.
func (c *Controller) SetCriteria(crit shared.Criteria) domain.ListQuery {
	return c.SetFilters(crit.ToConditions())
}

func (c *Controller) ClearFilter(field string) domain.ListQuery {
	return c.update(func(q *domain.ListQuery) {
		q.Filters = withoutField(q.Filters, field)
		q.Page = 1
	})
}

func withoutField(in []shared.Criterion, field string) []shared.Criterion {
	var out []shared.Criterion
	for _, f := range in {
		if f.Field != field {
			out = append(out, f)
		}
	}
	return out
}

// SetDateFilter acepta fechas "2006-01-02"; cadena vacía o inválida = sin límite.
func (c *Controller) SetDateFilter(start, end string) domain.ListQuery {
	return c.SetDateRange(domain.ParseDate(start), domain.ParseDate(end))
}

func (c *Controller) SetDateRange(start, end *time.Time) domain.ListQuery {
	return c.update(func(q *domain.ListQuery) {
		q.DateRange = domain.DateRange{Start: copyTime(start), End: copyTime(end)}
		q.Page = 1
	})
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// SetSearch fija el predicado de búsqueda; uno vacío lo elimina.
func (c *Controller) SetSearch(s *domain.SearchCondition) domain.ListQuery {
	return c.update(func(q *domain.ListQuery) {
		q.Search = domain.NormalizeSearch(s)
		q.Page = 1
	})
}

func (c *Controller) SetLogLevelFilter(level string) domain.ListQuery {
	return c.update(func(q *domain.ListQuery) {
		q.LogLevel = domain.OptString(level)
		q.Page = 1
	})
}

func (c *Controller) SetUserNameFilter(name string) domain.ListQuery {
	return c.update(func(q *domain.ListQuery) {
		q.UserName = domain.OptString(name)
		q.Page = 1
	})
}

func (c *Controller) SetWorkstreamFilter(ws string) domain.ListQuery {
	return c.update(func(q *domain.ListQuery) {
		q.Workstream = domain.OptString(ws)
		q.Page = 1
	})
}

// SetRoleIDFilter: id < 1 elimina el filtro.
func (c *Controller) SetRoleIDFilter(id int) domain.ListQuery {
	return c.update(func(q *domain.ListQuery) {
		q.RoleID = domain.OptInt(id)
		q.Page = 1
	})
}

// SetScalars aplica varios filtros escalares de una vez: una sola notificación.
func (c *Controller) SetScalars(f domain.ScalarFilters) domain.ListQuery {
	return c.update(func(q *domain.ListQuery) {
		f.Apply(q)
		q.Page = 1
	})
}

// SetFields elige columnas. No cambia el conjunto de filas, así que conserva la página.
func (c *Controller) SetFields(fields []string) domain.ListQuery {
	return c.update(func(q *domain.ListQuery) {
		q.Fields = nil
		for _, f := range fields {
			if f != "" {
				q.Fields = append(q.Fields, f)
			}
		}
	})
}

// Reset vuelve a la consulta inicial (con el tamaño persistido leído al construir).
func (c *Controller) Reset() domain.ListQuery {
	return c.update(func(q *domain.ListQuery) { *q = c.initial.Clone() })
}

// ---------- Internos ----------

func (c *Controller) update(mut func(q *domain.ListQuery)) domain.ListQuery {
	c.mu.Lock()
	next := c.query.Clone()
	mut(&next)
	if next.Page < 1 {
		next.Page = 1
	}
	if next.PageSize < 1 {
		next.PageSize = c.spec.DefaultPageSize
	}
	changed := !next.Equal(c.query)
	if changed {
		c.query = next
	}
	listeners := make([]func(domain.ListQuery), 0, len(c.listeners))
	for _, l := range c.listeners {
		listeners = append(listeners, l)
	}
	c.mu.Unlock()

	if changed {
		c.log.Debug("Consulta actualizada",
			zap.Int("page", next.Page),
			zap.Int("page_size", next.PageSize),
			zap.Int("filters", len(next.Filters)),
		)
		for _, l := range listeners {
			l(next.Clone())
		}
	}
	return next.Clone()
}
