package domain

import (
	"encoding/json"

	shared "github.com/davicafu/listdash/internal/shared/domain"
)

// SearchCondition es el predicado estructurado del parámetro "s" de crud-request.
// Una hoja es {Field, Op, Value}; un nodo compuesto usa And u Or.
type SearchCondition struct {
	Field string            `json:"field,omitempty"`
	Op    shared.Operator   `json:"operator,omitempty"`
	Value interface{}       `json:"value,omitempty"`
	And   []SearchCondition `json:"and,omitempty"`
	Or    []SearchCondition `json:"or,omitempty"`
}

// Contains construye el caso típico: subcadena sobre un campo.
func Contains(field, value string) *SearchCondition {
	return NormalizeSearch(&SearchCondition{Field: field, Op: shared.OpLike, Value: value})
}

// SearchFromCriteria traduce un CompositeCriteria a predicado de búsqueda ($and / $or).
func SearchFromCriteria(c shared.CompositeCriteria) *SearchCondition {
	var leaves []SearchCondition
	for _, crit := range c.ToConditions() {
		leaves = append(leaves, SearchCondition{Field: crit.Field, Op: crit.Op, Value: crit.Value})
	}
	node := &SearchCondition{}
	if c.Operator == shared.OpOr {
		node.Or = leaves
	} else {
		node.And = leaves
	}
	return NormalizeSearch(node)
}

// NormalizeSearch elimina hojas vacías y colapsa nodos triviales.
// Devuelve nil si no queda nada que buscar.
func NormalizeSearch(s *SearchCondition) *SearchCondition {
	if s == nil {
		return nil
	}
	out := SearchCondition{}
	for _, c := range s.And {
		if n := NormalizeSearch(&c); n != nil {
			out.And = append(out.And, *n)
		}
	}
	for _, c := range s.Or {
		if n := NormalizeSearch(&c); n != nil {
			out.Or = append(out.Or, *n)
		}
	}
	if s.Field != "" {
		op := s.Op
		if op == "" {
			op = shared.OpEq
		}
		leaf := shared.Criterion{Field: s.Field, Op: op, Value: s.Value}
		if !leaf.Empty() {
			out.Field, out.Op, out.Value = s.Field, op, s.Value
		}
	}

	hasLeaf := out.Field != ""
	switch {
	case !hasLeaf && len(out.And) == 0 && len(out.Or) == 0:
		return nil
	case !hasLeaf && len(out.And) == 1 && len(out.Or) == 0:
		return &out.And[0]
	case !hasLeaf && len(out.Or) == 1 && len(out.And) == 0:
		return &out.Or[0]
	}
	return &out
}

// Encode produce el JSON determinista del parámetro "s".
// encoding/json ordena las claves de los mapas, así que el resultado es estable.
func (s SearchCondition) Encode() string {
	data, err := json.Marshal(s.toWire())
	if err != nil {
		return "{}"
	}
	return string(data)
}

func (s SearchCondition) toWire() map[string]interface{} {
	wire := map[string]interface{}{}
	if s.Field != "" {
		if s.Op.Unary() {
			wire[s.Field] = map[string]interface{}{string(s.Op): true}
		} else {
			wire[s.Field] = map[string]interface{}{string(s.Op): wireValue(s.Value)}
		}
	}
	if len(s.And) > 0 {
		wire["$and"] = wireList(s.And)
	}
	if len(s.Or) > 0 {
		wire["$or"] = wireList(s.Or)
	}
	return wire
}

func wireList(in []SearchCondition) []interface{} {
	out := make([]interface{}, 0, len(in))
	for _, c := range in {
		out = append(out, c.toWire())
	}
	return out
}

func wireValue(v interface{}) interface{} {
	switch val := v.(type) {
	case string, bool, int, int64, float64, []string:
		return val
	default:
		return shared.FormatValue(v)
	}
}

func (s SearchCondition) clone() SearchCondition {
	out := s
	out.And = make([]SearchCondition, 0, len(s.And))
	for _, c := range s.And {
		out.And = append(out.And, c.clone())
	}
	out.Or = make([]SearchCondition, 0, len(s.Or))
	for _, c := range s.Or {
		out.Or = append(out.Or, c.clone())
	}
	if len(out.And) == 0 {
		out.And = nil
	}
	if len(out.Or) == 0 {
		out.Or = nil
	}
	return out
}
