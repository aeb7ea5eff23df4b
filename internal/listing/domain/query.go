package domain

import (
	"reflect"
	"time"

	shared "github.com/davicafu/listdash/internal/shared/domain"
)

// ---------- Tipos de filtrado / paginación / ordenamiento ----------

// SortEntry indica campo y dirección. El orden dentro de ListQuery.Sorting importa.
type SortEntry struct {
	Field string `json:"id"`
	Desc  bool   `json:"desc"`
}

// Direction devuelve "ASC" o "DESC".
func (s SortEntry) Direction() string {
	if s.Desc {
		return "DESC"
	}
	return "ASC"
}

// DateRange acota el campo de fecha del registro. nil = sin límite.
type DateRange struct {
	Start *time.Time `json:"start_date,omitempty"`
	End   *time.Time `json:"end_date,omitempty"`
}

func (r DateRange) Empty() bool {
	return r.Start == nil && r.End == nil
}

// ListQuery es el estado canónico de una instancia de tabla.
// Los opcionales son punteros: nil significa ausente, nunca cadena vacía.
type ListQuery struct {
	Page     int         `json:"page"`
	PageSize int         `json:"pageSize"`
	Sorting  []SortEntry `json:"sorting"`

	Fields  []string           `json:"fields,omitempty"`
	Filters []shared.Criterion `json:"filters,omitempty"`
	Search  *SearchCondition   `json:"search,omitempty"`

	DateRange DateRange `json:"date_range"`

	// Filtros escalares de igualdad
	LogLevel   *string `json:"log_level,omitempty"`
	UserName   *string `json:"user_name,omitempty"`
	Workstream *string `json:"workstream,omitempty"`
	RoleID     *int    `json:"role_id,omitempty"`
}

// ScalarFilters agrupa cambios a los filtros escalares. nil deja el filtro como está;
// "" (o role_id < 1) lo elimina.
type ScalarFilters struct {
	LogLevel   *string `json:"log_level"`
	UserName   *string `json:"user_name"`
	Workstream *string `json:"workstream"`
	RoleID     *int    `json:"role_id"`
}

// Apply vuelca los cambios presentes sobre q.
func (f ScalarFilters) Apply(q *ListQuery) {
	if f.LogLevel != nil {
		q.LogLevel = OptString(*f.LogLevel)
	}
	if f.UserName != nil {
		q.UserName = OptString(*f.UserName)
	}
	if f.Workstream != nil {
		q.Workstream = OptString(*f.Workstream)
	}
	if f.RoleID != nil {
		q.RoleID = OptInt(*f.RoleID)
	}
}

// Clone devuelve una copia profunda; mutar la copia nunca toca el original.
func (q ListQuery) Clone() ListQuery {
	out := q
	out.Sorting = cloneSlice(q.Sorting)
	out.Fields = cloneSlice(q.Fields)
	out.Filters = cloneSlice(q.Filters)
	if q.Search != nil {
		s := q.Search.clone()
		out.Search = &s
	}
	out.DateRange = DateRange{Start: clonePtr(q.DateRange.Start), End: clonePtr(q.DateRange.End)}
	out.LogLevel = clonePtr(q.LogLevel)
	out.UserName = clonePtr(q.UserName)
	out.Workstream = clonePtr(q.Workstream)
	out.RoleID = clonePtr(q.RoleID)
	return out
}

// Equal compara por valor, siguiendo los punteros.
func (q ListQuery) Equal(other ListQuery) bool {
	return reflect.DeepEqual(q.normalizedForCompare(), other.normalizedForCompare())
}

func (q ListQuery) normalizedForCompare() ListQuery {
	c := q.Clone()
	if len(c.Sorting) == 0 {
		c.Sorting = nil
	}
	if len(c.Fields) == 0 {
		c.Fields = nil
	}
	if len(c.Filters) == 0 {
		c.Filters = nil
	}
	if c.DateRange.Start != nil {
		t := c.DateRange.Start.UTC()
		c.DateRange.Start = &t
	}
	if c.DateRange.End != nil {
		t := c.DateRange.End.UTC()
		c.DateRange.End = &t
	}
	return c
}

// ---------- Helpers de opcionales ----------

// OptString convierte "" en ausente.
func OptString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// OptInt convierte valores < 1 en ausente (los IDs empiezan en 1).
func OptInt(n int) *int {
	if n < 1 {
		return nil
	}
	return &n
}

// ParseDate acepta "2006-01-02" o RFC3339. Cadena vacía o inválida = ausente.
func ParseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return &t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t
	}
	return nil
}

// DateLayout es el formato con el que viajan start_date / end_date.
const DateLayout = "2006-01-02"

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}
