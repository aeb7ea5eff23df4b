package domain

import "fmt"

const (
	// DefaultPageSize es el tamaño inicial de página y el sustituto de límites demasiado pequeños.
	DefaultPageSize = 25
	// LimitFloor: un límite <= a este valor se sustituye por DefaultPageSize.
	LimitFloor = 10
)

// DefaultPageSizes es el conjunto de tamaños que ofrece el selector de página.
var DefaultPageSizes = []int{25, 50, 75, 100}

// DefaultSort es el orden por defecto cuando la tabla no declara otro.
var DefaultSort = []SortEntry{{Field: "updated_at", Desc: true}}

// Identificadores de tabla; también son la clave de la preferencia persistida.
const (
	TableFiles        = "fileList"
	TableLogs         = "logs"
	TableActivityLogs = "activityLogs"
	TableUsers        = "users"
	TableRoles        = "roles"
	TableUploads      = "uploads"
)

// Tags de caché, uno por tipo de recurso.
const (
	TagDashboard    = "dashboard"
	TagLogs         = "logs"
	TagActivityLogs = "activityLogs"
	TagUsers        = "user"
	TagRoles        = "roles"
	TagUploads      = "UploadFile"
	TagUpload       = "Upload"
	TagConfig       = "config"
)

// TableSpec describe una vista de listado: endpoint, tags y valores por defecto.
type TableSpec struct {
	ID              string
	Path            string
	Tags            []string
	ItemsKey        string // clave del array de filas en la respuesta
	DefaultSort     []SortEntry
	PageSizes       []int
	DefaultPageSize int
	LimitFloor      int
}

// WithDefaults rellena los campos vacíos con los valores globales.
func (s TableSpec) WithDefaults() TableSpec {
	if len(s.DefaultSort) == 0 {
		s.DefaultSort = DefaultSort
	}
	if len(s.PageSizes) == 0 {
		s.PageSizes = DefaultPageSizes
	}
	if s.DefaultPageSize < 1 {
		s.DefaultPageSize = DefaultPageSize
	}
	if s.LimitFloor < 1 {
		s.LimitFloor = LimitFloor
	}
	if s.ItemsKey == "" {
		s.ItemsKey = "items"
	}
	return s
}

// EffectiveSort devuelve sorting, o el orden por defecto de la tabla si está vacío.
func (s TableSpec) EffectiveSort(sorting []SortEntry) []SortEntry {
	if len(sorting) > 0 {
		return cloneSlice(sorting)
	}
	if len(s.DefaultSort) > 0 {
		return cloneSlice(s.DefaultSort)
	}
	return cloneSlice(DefaultSort)
}

// AllowsPageSize indica si n está en el selector de la tabla.
func (s TableSpec) AllowsPageSize(n int) bool {
	sizes := s.PageSizes
	if len(sizes) == 0 {
		sizes = DefaultPageSizes
	}
	for _, size := range sizes {
		if size == n {
			return true
		}
	}
	return false
}

// InitialQuery es la consulta de arranque de la tabla.
func (s TableSpec) InitialQuery() ListQuery {
	spec := s.WithDefaults()
	return ListQuery{Page: 1, PageSize: spec.DefaultPageSize, Sorting: []SortEntry{}}
}

// ---------------- Registro de tablas ----------------

var tables = map[string]TableSpec{
	TableFiles: {
		ID:          TableFiles,
		Path:        "/s3files/",
		Tags:        []string{TagDashboard},
		ItemsKey:    "s3_files",
		DefaultSort: []SortEntry{{Field: "updated_at", Desc: true}},
	},
	TableLogs: {
		ID:          TableLogs,
		Path:        "/logs/",
		Tags:        []string{TagLogs},
		ItemsKey:    "items",
		DefaultSort: []SortEntry{{Field: "created_at", Desc: true}},
	},
	TableActivityLogs: {
		ID:          TableActivityLogs,
		Path:        "/activity-logs/",
		Tags:        []string{TagActivityLogs},
		ItemsKey:    "logs",
		DefaultSort: []SortEntry{{Field: "timestamp", Desc: true}},
	},
	TableUsers: {
		ID:          TableUsers,
		Path:        "/users/",
		Tags:        []string{TagUsers},
		ItemsKey:    "users",
		DefaultSort: []SortEntry{{Field: "updated_at", Desc: true}},
	},
	TableRoles: {
		ID:          TableRoles,
		Path:        "/roles/",
		Tags:        []string{TagRoles},
		ItemsKey:    "roles",
		DefaultSort: []SortEntry{{Field: "updated_at", Desc: true}},
	},
	TableUploads: {
		ID:          TableUploads,
		Path:        "/processor/",
		Tags:        []string{TagUploads, TagUpload},
		ItemsKey:    "items",
		DefaultSort: []SortEntry{{Field: "updated_at", Desc: true}},
	},
}

// LookupTable devuelve la especificación de una tabla registrada.
func LookupTable(id string) (TableSpec, error) {
	spec, ok := tables[id]
	if !ok {
		return TableSpec{}, fmt.Errorf("%w: %q", ErrTableNotFound, id)
	}
	return spec.WithDefaults(), nil
}

// TableIDs lista las tablas registradas en orden estable.
func TableIDs() []string {
	return []string{TableFiles, TableLogs, TableActivityLogs, TableUsers, TableRoles, TableUploads}
}
