package domain

import (
	"strconv"
	"strings"

	shared "github.com/davicafu/listdash/internal/shared/domain"
)

// Serialize convierte una ListQuery en su RequestDescriptor. Es pura y determinista:
// dos consultas iguales producen exactamente los mismos parámetros en el mismo orden.
//
// Orden de emisión: sort[i], sort, limit, page, fields, filter[i], s, start_date,
// end_date, log_level, user_name, workstream, role_id. Los opcionales ausentes se omiten.
func Serialize(q ListQuery, spec TableSpec) RequestDescriptor {
	spec = spec.WithDefaults()
	params := make([]Param, 0, 8)
	add := func(k, v string) { params = append(params, Param{Key: k, Value: v}) }

	// ---------- Ordenación ----------
	sorting := spec.EffectiveSort(validSorting(q.Sorting))
	for i, s := range sorting {
		add(indexed(ParamSort, i), sortValue(s))
	}
	add(ParamSort, sortValue(sorting[0]))

	// ---------- Paginación ----------
	add(ParamLimit, strconv.Itoa(EffectiveLimit(q.PageSize, spec)))
	page := q.Page
	if page < 1 {
		page = 1
	}
	add(ParamPage, strconv.Itoa(page))

	// ---------- Selección de columnas ----------
	if fields := nonEmpty(q.Fields); len(fields) > 0 {
		add(ParamFields, strings.Join(fields, ","))
	}

	// ---------- Filtros ----------
	i := 0
	for _, f := range q.Filters {
		if f.Empty() {
			continue
		}
		add(indexed(ParamFilter, i), filterValue(f))
		i++
	}

	if s := NormalizeSearch(q.Search); s != nil {
		add(ParamSearch, s.Encode())
	}

	// ---------- Rango de fechas y escalares ----------
	if q.DateRange.Start != nil {
		add(ParamStartDate, q.DateRange.Start.Format(DateLayout))
	}
	if q.DateRange.End != nil {
		add(ParamEndDate, q.DateRange.End.Format(DateLayout))
	}
	if v := deref(q.LogLevel); v != "" {
		add(ParamLogLevel, v)
	}
	if v := deref(q.UserName); v != "" {
		add(ParamUserName, v)
	}
	if v := deref(q.Workstream); v != "" {
		add(ParamWorkspace, v)
	}
	if q.RoleID != nil && *q.RoleID > 0 {
		add(ParamRoleID, strconv.Itoa(*q.RoleID))
	}

	return RequestDescriptor{TableID: spec.ID, Path: spec.Path, Params: params}
}

// EffectiveLimit aplica el suelo: un tamaño <= LimitFloor se sustituye por el de defecto.
func EffectiveLimit(pageSize int, spec TableSpec) int {
	spec = spec.WithDefaults()
	if pageSize <= spec.LimitFloor {
		return spec.DefaultPageSize
	}
	return pageSize
}

// EffectiveSorting es el orden que se muestra y se envía: nunca vacío.
func EffectiveSorting(q ListQuery, spec TableSpec) []SortEntry {
	return spec.WithDefaults().EffectiveSort(validSorting(q.Sorting))
}

func validSorting(in []SortEntry) []SortEntry {
	var out []SortEntry
	for _, s := range in {
		if s.Field != "" {
			out = append(out, s)
		}
	}
	return out
}

func sortValue(s SortEntry) string {
	return s.Field + "," + s.Direction()
}

func filterValue(c shared.Criterion) string {
	op := c.Op
	if op == "" {
		op = shared.OpEq
	}
	if op.Unary() {
		return c.Field + "||" + string(op)
	}
	return c.Field + "||" + string(op) + "||" + shared.FormatValue(c.Value)
}

func indexed(key string, i int) string {
	return key + "[" + strconv.Itoa(i) + "]"
}

func nonEmpty(in []string) []string {
	var out []string
	for _, s := range in {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
