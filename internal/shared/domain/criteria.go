package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ---------------- Operadores ----------------

// Operator sigue el dialecto de condiciones de crud-request ("$eq", "$cont", ...).
type Operator string

const (
	OpEq      Operator = "$eq"
	OpNe      Operator = "$ne"
	OpGt      Operator = "$gt"
	OpGte     Operator = "$gte"
	OpLt      Operator = "$lt"
	OpLte     Operator = "$lte"
	OpStarts  Operator = "$starts"
	OpEnds    Operator = "$ends"
	OpLike    Operator = "$cont"
	OpILike   Operator = "$contL"
	OpExcl    Operator = "$excl"
	OpIn      Operator = "$in"
	OpNotIn   Operator = "$notin"
	OpIsNull  Operator = "$isnull"
	OpNotNull Operator = "$notnull"
	OpBetween Operator = "$between"
)

// Valid indica si el operador pertenece al dialecto.
func (o Operator) Valid() bool {
	switch o {
	case OpEq, OpNe, OpGt, OpGte, OpLt, OpLte, OpStarts, OpEnds, OpLike, OpILike,
		OpExcl, OpIn, OpNotIn, OpIsNull, OpNotNull, OpBetween:
		return true
	}
	return false
}

// Unary indica si el operador no lleva valor.
func (o Operator) Unary() bool {
	return o == OpIsNull || o == OpNotNull
}

type LogicalOperator string

const (
	OpAnd LogicalOperator = "AND"
	OpOr  LogicalOperator = "OR"
)

// ---------------- Criterion ----------------

// Criterion describe una condición neutral de filtrado
type Criterion struct {
	Field string      `json:"field"`
	Op    Operator    `json:"operator"`
	Value interface{} `json:"value,omitempty"`
}

// Empty es true cuando la condición no filtra nada: sin campo, o con un valor
// vacío en un operador que lo necesita.
func (c Criterion) Empty() bool {
	if c.Field == "" {
		return true
	}
	if c.Op.Unary() {
		return false
	}
	return FormatValue(c.Value) == ""
}

// FormatValue convierte un valor de filtro a su forma textual estable.
func FormatValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case *string:
		if val == nil {
			return ""
		}
		return *val
	case []string:
		return strings.Join(val, ",")
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case time.Time:
		return val.UTC().Format(time.RFC3339)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

// ---------------- Criteria interface ----------------

// Criteria permite transformar filtros a condiciones neutrales
type Criteria interface {
	ToConditions() []Criterion
}

// ---------------- Composite Criteria ----------------

type CompositeCriteria struct {
	Operator  LogicalOperator
	Criterias []Criteria
}

func (c CompositeCriteria) ToConditions() []Criterion {
	var all []Criterion
	for _, crit := range c.Criterias {
		all = append(all, crit.ToConditions()...)
	}
	return all
}

// ---------------- Helpers ----------------

// And crea un CompositeCriteria con operador AND
func And(criterias ...Criteria) CompositeCriteria {
	return CompositeCriteria{Operator: OpAnd, Criterias: criterias}
}

// Or crea un CompositeCriteria con operador OR
func Or(criterias ...Criteria) CompositeCriteria {
	return CompositeCriteria{Operator: OpOr, Criterias: criterias}
}
