package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/davicafu/listdash/internal/listing/application"
	"github.com/davicafu/listdash/internal/listing/domain"
	shared "github.com/davicafu/listdash/internal/shared/domain"
	"github.com/davicafu/listdash/pkg/utils"
)

// ListingHandler expone las sesiones de tabla: el cliente solo emite operaciones del
// controlador y recibe la View resultante.
type ListingHandler struct {
	sessions    *application.SessionManager
	invalidator *application.Invalidator
	notifier    *application.MutationNotifier // nil = sin publicación de eventos
	log         *zap.Logger
}

func NewListingHandler(sessions *application.SessionManager, invalidator *application.Invalidator, notifier *application.MutationNotifier, log *zap.Logger) *ListingHandler {
	return &ListingHandler{
		sessions:    sessions,
		invalidator: invalidator,
		notifier:    notifier,
		log:         log,
	}
}

// ---------------- Tablas y sesiones ----------------

type tableInfo struct {
	ID          string             `json:"id"`
	Path        string             `json:"path"`
	Tags        []string           `json:"tags"`
	PageSizes   []int              `json:"page_sizes"`
	DefaultSort []domain.SortEntry `json:"default_sort"`
}

// ListTables endpoint GET /tables
func (h *ListingHandler) ListTables(c *gin.Context) {
	specs := h.sessions.Tables()
	out := make([]tableInfo, 0, len(specs))
	for _, s := range specs {
		out = append(out, tableInfo{ID: s.ID, Path: s.Path, Tags: s.Tags, PageSizes: s.PageSizes, DefaultSort: s.DefaultSort})
	}
	utils.SendSuccess(c, http.StatusOK, out)
}

// OpenSession endpoint POST /tables/:table/sessions
func (h *ListingHandler) OpenSession(c *gin.Context) {
	s, err := h.sessions.Open(c.Request.Context(), c.Param("table"))
	if err != nil {
		h.sendError(c, err)
		return
	}
	view, err := s.Render(c.Request.Context(), false)
	if err != nil {
		h.sendError(c, err)
		return
	}
	utils.SendSuccess(c, http.StatusCreated, gin.H{"session_id": s.ID(), "table": s.TableID(), "view": view})
}

// GetView endpoint GET /sessions/:id?wait=true
func (h *ListingHandler) GetView(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	h.render(c, s, c.Query("wait") == "true")
}

// GetQuery endpoint GET /sessions/:id/query
func (h *ListingHandler) GetQuery(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	ctrl := s.Controller()
	desc := ctrl.Descriptor()
	utils.SendSuccess(c, http.StatusOK, gin.H{
		"query":      ctrl.Query(),
		"descriptor": desc,
		"query_key":  desc.QueryKey(),
	})
}

// CloseSession endpoint DELETE /sessions/:id
func (h *ListingHandler) CloseSession(c *gin.Context) {
	if err := h.sessions.Close(c.Param("id")); err != nil {
		h.sendError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Retry endpoint POST /sessions/:id/retry
func (h *ListingHandler) Retry(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	view, err := s.Retry(c.Request.Context())
	if err != nil {
		h.sendError(c, err)
		return
	}
	utils.SendSuccess(c, http.StatusOK, view)
}

// ---------------- Operaciones del controlador ----------------

// SetPage endpoint PUT /sessions/:id/page
func (h *ListingHandler) SetPage(c *gin.Context) {
	var req struct {
		Page int `json:"page"`
	}
	h.mutate(c, &req, func(ctrl *application.Controller) { ctrl.SetPage(req.Page) })
}

// SetPageSize endpoint PUT /sessions/:id/page-size
func (h *ListingHandler) SetPageSize(c *gin.Context) {
	var req struct {
		PageSize int `json:"page_size"`
	}
	h.mutate(c, &req, func(ctrl *application.Controller) { ctrl.SetPageSize(req.PageSize) })
}

// SetSorting endpoint PUT /sessions/:id/sorting
func (h *ListingHandler) SetSorting(c *gin.Context) {
	var req struct {
		Sorting []domain.SortEntry `json:"sorting"`
	}
	h.mutate(c, &req, func(ctrl *application.Controller) { ctrl.SetSorting(req.Sorting) })
}

// ToggleSort endpoint POST /sessions/:id/sorting/toggle
func (h *ListingHandler) ToggleSort(c *gin.Context) {
	var req struct {
		Field string `json:"field" binding:"required"`
		Multi bool   `json:"multi"`
	}
	h.mutate(c, &req, func(ctrl *application.Controller) { ctrl.ToggleSort(req.Field, req.Multi) })
}

// SetFilter endpoint PUT /sessions/:id/filters/:field
func (h *ListingHandler) SetFilter(c *gin.Context) {
	var req struct {
		Operator shared.Operator `json:"operator"`
		Value    interface{}     `json:"value"`
	}
	field := c.Param("field")
	h.mutateChecked(c, &req, func(ctrl *application.Controller) error {
		if req.Operator != "" && !req.Operator.Valid() {
			return errors.New("unknown operator " + string(req.Operator))
		}
		ctrl.SetFilter(field, req.Operator, req.Value)
		return nil
	})
}

// ClearFilter endpoint DELETE /sessions/:id/filters/:field
func (h *ListingHandler) ClearFilter(c *gin.Context) {
	field := c.Param("field")
	h.mutate(c, nil, func(ctrl *application.Controller) { ctrl.ClearFilter(field) })
}

// SetDateRange endpoint PUT /sessions/:id/date-range
func (h *ListingHandler) SetDateRange(c *gin.Context) {
	var req struct {
		StartDate string `json:"start_date"`
		EndDate   string `json:"end_date"`
	}
	h.mutate(c, &req, func(ctrl *application.Controller) { ctrl.SetDateFilter(req.StartDate, req.EndDate) })
}

// SetSearch endpoint PUT /sessions/:id/search
func (h *ListingHandler) SetSearch(c *gin.Context) {
	var req domain.SearchCondition
	h.mutate(c, &req, func(ctrl *application.Controller) { ctrl.SetSearch(&req) })
}

// SetScalars endpoint PUT /sessions/:id/scalars. Solo se tocan las claves presentes;
// una cadena vacía (o role_id 0) elimina el filtro.
func (h *ListingHandler) SetScalars(c *gin.Context) {
	var req domain.ScalarFilters
	h.mutate(c, &req, func(ctrl *application.Controller) { ctrl.SetScalars(req) })
}

// SetFields endpoint PUT /sessions/:id/fields
func (h *ListingHandler) SetFields(c *gin.Context) {
	var req struct {
		Fields []string `json:"fields"`
	}
	h.mutate(c, &req, func(ctrl *application.Controller) { ctrl.SetFields(req.Fields) })
}

// Reset endpoint POST /sessions/:id/reset
func (h *ListingHandler) Reset(c *gin.Context) {
	h.mutate(c, nil, func(ctrl *application.Controller) { ctrl.Reset() })
}

// ---------------- Invalidación ----------------

// Invalidate endpoint POST /cache/invalidate
func (h *ListingHandler) Invalidate(c *gin.Context) {
	var req struct {
		Tags []string `json:"tags" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendBadRequest(c, err.Error())
		return
	}
	n := h.invalidator.InvalidateTags(req.Tags...)
	utils.SendSuccess(c, http.StatusOK, gin.H{"invalidated": n})
}

// PublishEvent endpoint POST /events: anuncia una mutación. Con bus configurado se
// publica (y todas las réplicas invalidan al consumirla); sin él se invalida en local.
func (h *ListingHandler) PublishEvent(c *gin.Context) {
	var req struct {
		Type       string `json:"type" binding:"required"`
		Resource   string `json:"resource"`
		ResourceID string `json:"resource_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendBadRequest(c, err.Error())
		return
	}
	evt := domain.MutationEvent{Resource: req.Resource, ResourceID: req.ResourceID}

	if h.notifier != nil {
		if err := h.notifier.Notify(c.Request.Context(), req.Type, evt); err != nil {
			h.sendError(c, err)
			return
		}
		utils.SendSuccess(c, http.StatusAccepted, gin.H{"published": req.Type})
		return
	}
	n, err := h.invalidator.HandleEvent(c.Request.Context(), req.Type)
	if err != nil {
		h.sendError(c, err)
		return
	}
	utils.SendSuccess(c, http.StatusOK, gin.H{"invalidated": n})
}

// ---------------- Helpers ----------------

func (h *ListingHandler) session(c *gin.Context) (application.Session, bool) {
	s, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		h.sendError(c, err)
		return nil, false
	}
	return s, true
}

func (h *ListingHandler) mutate(c *gin.Context, req interface{}, apply func(ctrl *application.Controller)) {
	h.mutateChecked(c, req, func(ctrl *application.Controller) error {
		apply(ctrl)
		return nil
	})
}

// mutateChecked decodifica el cuerpo (si req != nil), aplica la operación y devuelve la View.
func (h *ListingHandler) mutateChecked(c *gin.Context, req interface{}, apply func(ctrl *application.Controller) error) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	if req != nil {
		if err := c.ShouldBindJSON(req); err != nil {
			utils.SendBadRequest(c, err.Error())
			return
		}
	}
	if err := apply(s.Controller()); err != nil {
		utils.SendBadRequest(c, err.Error())
		return
	}
	h.render(c, s, false)
}

func (h *ListingHandler) render(c *gin.Context, s application.Session, wait bool) {
	view, err := s.Render(c.Request.Context(), wait)
	if err != nil {
		h.sendError(c, err)
		return
	}
	utils.SendSuccess(c, http.StatusOK, view)
}

func (h *ListingHandler) sendError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrTableNotFound):
		utils.SendNotFound(c, err.Error())
	case errors.Is(err, domain.ErrInvalidEvent):
		utils.SendBadRequest(c, err.Error())
	case errors.Is(err, domain.ErrCacheClosed):
		utils.SendError(c, http.StatusServiceUnavailable, "unavailable", err.Error())
	default:
		h.log.Error("Listing request failed", zap.String("path", c.FullPath()), zap.Error(err))
		utils.SendInternalServerError(c, err.Error())
	}
}
