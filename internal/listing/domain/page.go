package domain

// Page es una página de resultados del backend, ya normalizada desde su envoltorio.
type Page[T any] struct {
	Items     []T `json:"items"`
	Total     int `json:"total"`
	Page      int `json:"page"`
	PageSize  int `json:"pageSize"`
	PageCount int `json:"pageCount"`
}

// EmptyPage es la página que se muestra antes de la primera respuesta.
func EmptyPage[T any](pageSize int) *Page[T] {
	return &Page[T]{Items: []T{}, Page: 1, PageSize: pageSize}
}

// Normalize completa PageCount cuando el backend no lo envía.
func (p *Page[T]) Normalize() {
	if p.Items == nil {
		p.Items = []T{}
	}
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageCount == 0 && p.PageSize > 0 && p.Total > 0 {
		p.PageCount = (p.Total + p.PageSize - 1) / p.PageSize
	}
}
