package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/davicafu/listdash/internal/listing/domain"
	shared "github.com/davicafu/listdash/internal/shared/domain"
)

func newController(t *testing.T, tableID string, opts ...ControllerOption) *Controller {
	t.Helper()
	spec, err := domain.LookupTable(tableID)
	require.NoError(t, err)
	return NewController(context.Background(), spec, zap.NewNop(), opts...)
}

func TestController_InitialQuery(t *testing.T) {
	ctrl := newController(t, domain.TableFiles)

	q := ctrl.Query()
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, domain.DefaultPageSize, q.PageSize)
	assert.Empty(t, q.Sorting)

	v, ok := ctrl.Descriptor().Get(domain.ParamSort)
	require.True(t, ok)
	assert.Equal(t, "updated_at,DESC", v)
}

func TestController_FilterAndSortChangesResetPage(t *testing.T) {
	ops := map[string]func(c *Controller){
		"SetPageSize":         func(c *Controller) { c.SetPageSize(50) },
		"SetSorting":          func(c *Controller) { c.SetSorting([]domain.SortEntry{{Field: "name"}}) },
		"UpdateSorting":       func(c *Controller) { c.UpdateSorting(func(p []domain.SortEntry) []domain.SortEntry { return append(p, domain.SortEntry{Field: "id"}) }) },
		"ToggleSort":          func(c *Controller) { c.ToggleSort("name", false) },
		"SetFilter":           func(c *Controller) { c.SetFilter("workstream", shared.OpEq, "ws-1") },
		"SetFilters":          func(c *Controller) { c.SetFilters([]shared.Criterion{{Field: "status", Op: shared.OpEq, Value: "active"}}) },
		"SetCriteria":         func(c *Controller) { c.SetCriteria(domain.EmailCriteria{Email: "ana@example.com"}) },
		"SetDateFilter":       func(c *Controller) { c.SetDateFilter("2024-01-01", "2024-01-31") },
		"SetSearch":           func(c *Controller) { c.SetSearch(domain.Contains("name", "ana")) },
		"SetLogLevelFilter":   func(c *Controller) { c.SetLogLevelFilter("ERROR") },
		"SetUserNameFilter":   func(c *Controller) { c.SetUserNameFilter("ana") },
		"SetWorkstreamFilter": func(c *Controller) { c.SetWorkstreamFilter("ws-2") },
		"SetRoleIDFilter":     func(c *Controller) { c.SetRoleIDFilter(3) },
		"SetScalars":          func(c *Controller) { c.SetScalars(domain.ScalarFilters{UserName: domain.OptString("ana")}) },
	}

	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			ctrl := newController(t, domain.TableLogs)
			ctrl.SetPage(4)
			require.Equal(t, 4, ctrl.Query().Page)

			op(ctrl)
			assert.Equal(t, 1, ctrl.Query().Page)
		})
	}
}

func TestController_ClearFilterResetsPage(t *testing.T) {
	ctrl := newController(t, domain.TableFiles)
	ctrl.SetFilter("workstream", shared.OpEq, "ws-1")
	ctrl.SetPage(3)

	ctrl.ClearFilter("workstream")
	q := ctrl.Query()
	assert.Equal(t, 1, q.Page)
	assert.Empty(t, q.Filters)
}

func TestController_SetFieldsKeepsPage(t *testing.T) {
	ctrl := newController(t, domain.TableFiles)
	ctrl.SetPage(3)

	q := ctrl.SetFields([]string{"id", "", "s3key"})
	assert.Equal(t, 3, q.Page)
	assert.Equal(t, []string{"id", "s3key"}, q.Fields)
}

func TestController_PageCoercion(t *testing.T) {
	ctrl := newController(t, domain.TableFiles)

	assert.Equal(t, 1, ctrl.SetPage(0).Page)
	assert.Equal(t, 1, ctrl.SetPage(-7).Page)
	assert.Equal(t, domain.DefaultPageSize, ctrl.SetPageSize(0).PageSize)
}

// Un tamaño por debajo del suelo se sustituye por el de defecto al serializar.
func TestController_PageSizeBelowFloor(t *testing.T) {
	ctrl := newController(t, domain.TableFiles)
	ctrl.SetPage(2)

	q := ctrl.SetPageSize(5)
	assert.Equal(t, 1, q.Page)

	d := ctrl.Descriptor()
	limit, _ := d.Get(domain.ParamLimit)
	page, _ := d.Get(domain.ParamPage)
	assert.Equal(t, "25", limit)
	assert.Equal(t, "1", page)
}

// Borrar el rango de fechas elimina los parámetros.
func TestController_DateFilterCleared(t *testing.T) {
	ctrl := newController(t, domain.TableLogs)

	ctrl.SetDateFilter("2024-01-01", "2024-01-31")
	d := ctrl.Descriptor()
	start, ok := d.Get(domain.ParamStartDate)
	require.True(t, ok)
	assert.Equal(t, "2024-01-01", start)
	end, ok := d.Get(domain.ParamEndDate)
	require.True(t, ok)
	assert.Equal(t, "2024-01-31", end)

	ctrl.SetDateFilter("", "")
	d = ctrl.Descriptor()
	assert.False(t, d.Has(domain.ParamStartDate))
	assert.False(t, d.Has(domain.ParamEndDate))

	ctrl.SetDateFilter("no-es-fecha", "2024-02-01")
	d = ctrl.Descriptor()
	assert.False(t, d.Has(domain.ParamStartDate))
	assert.True(t, d.Has(domain.ParamEndDate))
}

func TestController_ToggleSort(t *testing.T) {
	t.Run("la columna por defecto invierte su dirección", func(t *testing.T) {
		ctrl := newController(t, domain.TableFiles)
		q := ctrl.ToggleSort("updated_at", false)
		assert.Equal(t, []domain.SortEntry{{Field: "updated_at", Desc: false}}, q.Sorting)
		q = ctrl.ToggleSort("updated_at", false)
		assert.Equal(t, []domain.SortEntry{{Field: "updated_at", Desc: true}}, q.Sorting)
	})

	t.Run("una columna nueva sustituye el orden", func(t *testing.T) {
		ctrl := newController(t, domain.TableFiles)
		q := ctrl.ToggleSort("s3key", false)
		assert.Equal(t, []domain.SortEntry{{Field: "s3key"}}, q.Sorting)
	})

	t.Run("multi añade al final y conserva las demás", func(t *testing.T) {
		ctrl := newController(t, domain.TableFiles)
		ctrl.ToggleSort("s3key", true)
		q := ctrl.ToggleSort("id", true)
		assert.Equal(t, []domain.SortEntry{
			{Field: "updated_at", Desc: true},
			{Field: "s3key"},
			{Field: "id"},
		}, q.Sorting)

		q = ctrl.ToggleSort("s3key", true)
		assert.Equal(t, "s3key", q.Sorting[1].Field)
		assert.True(t, q.Sorting[1].Desc)

		d := ctrl.Descriptor()
		v := d.Values()
		assert.Equal(t, "updated_at,DESC", v.Get("sort[0]"))
		assert.Equal(t, "s3key,DESC", v.Get("sort[1]"))
		assert.Equal(t, "id,ASC", v.Get("sort[2]"))
		assert.Equal(t, "updated_at,DESC", v.Get(domain.ParamSort))
	})

	t.Run("campo vacío no cambia nada", func(t *testing.T) {
		ctrl := newController(t, domain.TableFiles)
		ctrl.SetPage(2)
		assert.Equal(t, 2, ctrl.ToggleSort("", false).Page)
	})
}

func TestController_SetSortingDropsDuplicates(t *testing.T) {
	ctrl := newController(t, domain.TableFiles)
	q := ctrl.SetSorting([]domain.SortEntry{{Field: "a"}, {Field: ""}, {Field: "a", Desc: true}, {Field: "b", Desc: true}})
	assert.Equal(t, []domain.SortEntry{{Field: "a"}, {Field: "b", Desc: true}}, q.Sorting)
}

func TestController_SetFilterReplacesByField(t *testing.T) {
	ctrl := newController(t, domain.TableUsers)

	ctrl.SetFilter("status", shared.OpEq, "active")
	ctrl.SetFilter("email", shared.OpILike, "ana")
	q := ctrl.SetFilter("status", shared.OpNe, "blocked")
	require.Len(t, q.Filters, 2)
	assert.Equal(t, shared.Criterion{Field: "email", Op: shared.OpILike, Value: "ana"}, q.Filters[0])
	assert.Equal(t, shared.Criterion{Field: "status", Op: shared.OpNe, Value: "blocked"}, q.Filters[1])

	q = ctrl.SetFilter("email", "", "")
	require.Len(t, q.Filters, 1)
	assert.Equal(t, "status", q.Filters[0].Field)

	q = ctrl.SetFilter("deleted_at", shared.OpIsNull, nil)
	assert.Len(t, q.Filters, 2)
}

func TestController_ScalarFilters(t *testing.T) {
	ctrl := newController(t, domain.TableActivityLogs)
	ctrl.SetLogLevelFilter("INFO")
	ctrl.SetUserNameFilter("ana")
	ctrl.SetWorkstreamFilter("ws-1")
	ctrl.SetRoleIDFilter(2)

	d := ctrl.Descriptor()
	for key, want := range map[string]string{
		domain.ParamLogLevel:  "INFO",
		domain.ParamUserName:  "ana",
		domain.ParamWorkspace: "ws-1",
		domain.ParamRoleID:    "2",
	} {
		got, ok := d.Get(key)
		assert.True(t, ok, key)
		assert.Equal(t, want, got, key)
	}

	ctrl.SetLogLevelFilter("")
	ctrl.SetUserNameFilter("")
	ctrl.SetWorkstreamFilter("")
	ctrl.SetRoleIDFilter(0)
	d = ctrl.Descriptor()
	for _, key := range []string{domain.ParamLogLevel, domain.ParamUserName, domain.ParamWorkspace, domain.ParamRoleID} {
		assert.False(t, d.Has(key), key)
	}
}

func TestController_SetScalarsNotifiesOnce(t *testing.T) {
	ctrl := newController(t, domain.TableActivityLogs)
	ctrl.SetRoleIDFilter(2)
	ctrl.SetPage(3)

	var got []domain.ListQuery
	ctrl.OnChange(func(q domain.ListQuery) { got = append(got, q) })

	empty := ""
	q := ctrl.SetScalars(domain.ScalarFilters{
		LogLevel:   domain.OptString("ERROR"),
		UserName:   domain.OptString("ana"),
		Workstream: &empty,
	})
	require.Len(t, got, 1)
	assert.True(t, q.Equal(got[0]))
	assert.Equal(t, 1, q.Page)

	d := ctrl.Descriptor()
	level, _ := d.Get(domain.ParamLogLevel)
	assert.Equal(t, "ERROR", level)
	user, _ := d.Get(domain.ParamUserName)
	assert.Equal(t, "ana", user)
	assert.False(t, d.Has(domain.ParamWorkspace))
	role, ok := d.Get(domain.ParamRoleID)
	assert.True(t, ok, "las claves ausentes no se tocan")
	assert.Equal(t, "2", role)

	ctrl.SetScalars(domain.ScalarFilters{LogLevel: domain.OptString("ERROR")})
	assert.Len(t, got, 1)
}

func TestController_Reset(t *testing.T) {
	prefs := &memoryPrefs{sizes: map[string]int{domain.TableFiles: 50}}
	ctrl := newController(t, domain.TableFiles, WithPreferences(prefs))
	initial := ctrl.Query()

	ctrl.SetPageSize(100)
	ctrl.SetFilter("workstream", shared.OpEq, "ws-1")
	ctrl.SetPage(3)

	q := ctrl.Reset()
	assert.True(t, q.Equal(initial))
	assert.Equal(t, 50, q.PageSize)
}

func TestController_WithInitialQuery(t *testing.T) {
	initial := domain.ListQuery{Page: 0, PageSize: 0, LogLevel: domain.OptString("ERROR")}
	ctrl := newController(t, domain.TableLogs, WithInitialQuery(initial))

	q := ctrl.Query()
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, domain.DefaultPageSize, q.PageSize)
	require.NotNil(t, q.LogLevel)
	assert.Equal(t, "ERROR", *q.LogLevel)
}

func TestController_OnChange(t *testing.T) {
	ctrl := newController(t, domain.TableFiles)

	var got []domain.ListQuery
	unsub := ctrl.OnChange(func(q domain.ListQuery) {
		// El oyente corre fuera del mutex.
		assert.Equal(t, q.Page, ctrl.Query().Page)
		got = append(got, q)
	})

	// Operaciones que no cambian nada no notifican.
	ctrl.SetFilter("workstream", "", "")
	ctrl.SetSorting(nil)
	ctrl.SetPage(1)
	require.Empty(t, got)

	ctrl.SetPage(2)
	ctrl.SetPage(2)
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].Page)

	ctrl.SetWorkstreamFilter("ws-1")
	assert.Len(t, got, 2)

	unsub()
	ctrl.SetPage(5)
	assert.Len(t, got, 2)
}

func TestController_QueryIsACopy(t *testing.T) {
	ctrl := newController(t, domain.TableFiles)
	ctrl.SetSorting([]domain.SortEntry{{Field: "a"}})

	q := ctrl.Query()
	q.Sorting[0].Field = "mutado"
	assert.Equal(t, "a", ctrl.Query().Sorting[0].Field)
}

// memoryPrefs es un PageSizeStore mínimo para tests del controlador.
type memoryPrefs struct {
	sizes map[string]int
	sets  int
}

func (m *memoryPrefs) Get(_ context.Context, tableID string) (int, bool) {
	n, ok := m.sizes[tableID]
	return n, ok
}

func (m *memoryPrefs) Set(_ context.Context, tableID string, size int) {
	m.sizes[tableID] = size
	m.sets++
}
