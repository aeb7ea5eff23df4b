package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterListingRoutes registra las rutas de tablas, sesiones e invalidación.
func RegisterListingRoutes(r *gin.Engine, handler *ListingHandler) {
	r.GET("/tables", handler.ListTables)
	r.POST("/tables/:table/sessions", handler.OpenSession)

	sessions := r.Group("/sessions/:id")
	{
		sessions.GET("", handler.GetView)
		sessions.DELETE("", handler.CloseSession)
		sessions.GET("/query", handler.GetQuery)
		sessions.POST("/retry", handler.Retry)
		sessions.POST("/reset", handler.Reset)

		sessions.PUT("/page", handler.SetPage)
		sessions.PUT("/page-size", handler.SetPageSize)
		sessions.PUT("/sorting", handler.SetSorting)
		sessions.POST("/sorting/toggle", handler.ToggleSort)
		sessions.PUT("/filters/:field", handler.SetFilter)
		sessions.DELETE("/filters/:field", handler.ClearFilter)
		sessions.PUT("/date-range", handler.SetDateRange)
		sessions.PUT("/search", handler.SetSearch)
		sessions.PUT("/scalars", handler.SetScalars)
		sessions.PUT("/fields", handler.SetFields)
	}

	r.POST("/cache/invalidate", handler.Invalidate)
	r.POST("/events", handler.PublishEvent)
}

// RegisterOpsRoutes registra /health y /metrics.
func RegisterOpsRoutes(r *gin.Engine, gatherer prometheus.Gatherer) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
}
