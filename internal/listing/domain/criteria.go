package domain

import (
	"time"

	shared "github.com/davicafu/listdash/internal/shared/domain"
)

// ---------------- Implementaciones concretas ----------------

// Filtrado por workstream exacto
type WorkstreamCriteria struct {
	Workstream string
}

func (c WorkstreamCriteria) ToConditions() []shared.Criterion {
	return []shared.Criterion{{Field: "workstream", Op: shared.OpEq, Value: c.Workstream}}
}

// Filtrado por estado del lote
type StatusCriteria struct {
	Status BatchStatus
}

func (c StatusCriteria) ToConditions() []shared.Criterion {
	return []shared.Criterion{{Field: "status", Op: shared.OpEq, Value: string(c.Status)}}
}

// Filtrado por email exacto
type EmailCriteria struct {
	Email string
}

func (c EmailCriteria) ToConditions() []shared.Criterion {
	return []shared.Criterion{{Field: "email", Op: shared.OpEq, Value: c.Email}}
}

// Filtrado por nombre (subcadena, sin distinguir mayúsculas)
type NameLikeCriteria struct {
	Field string // por defecto "name"
	Name  string
}

func (c NameLikeCriteria) ToConditions() []shared.Criterion {
	field := c.Field
	if field == "" {
		field = "name"
	}
	return []shared.Criterion{{Field: field, Op: shared.OpILike, Value: c.Name}}
}

// Filtrado por rango de fechas sobre un campo
type TimeRangeCriteria struct {
	Field string
	From  *time.Time
	To    *time.Time
}

func (c TimeRangeCriteria) ToConditions() []shared.Criterion {
	var conds []shared.Criterion
	if c.From != nil {
		conds = append(conds, shared.Criterion{Field: c.Field, Op: shared.OpGte, Value: *c.From})
	}
	if c.To != nil {
		conds = append(conds, shared.Criterion{Field: c.Field, Op: shared.OpLte, Value: *c.To})
	}
	return conds
}

// Filtrado por conjunto de valores
type InCriteria struct {
	Field  string
	Values []string
}

func (c InCriteria) ToConditions() []shared.Criterion {
	if len(c.Values) == 0 {
		return nil
	}
	return []shared.Criterion{{Field: c.Field, Op: shared.OpIn, Value: c.Values}}
}
