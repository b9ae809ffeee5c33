package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/boxoffice-sales/internal/handler"
	"github.com/iliyamo/boxoffice-sales/internal/middleware"
)

// Handlers groups everything RegisterRoutes needs.  Cache and DB may be nil.
type Handlers struct {
	Ingestion *handler.IngestionHandler
	Summary   *handler.SummaryHandler
	Report    *handler.ReportHandler
	Cache     *middleware.ReportCache
	DB        handler.Pinger
}

// RegisterRoutes registers the probes, the Prometheus endpoint and the /v1
// API on the provided Echo instance.
func RegisterRoutes(e *echo.Echo, h Handlers) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(h.DB))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := e.Group("/v1")
	v1.POST("/ingestions", h.Ingestion.Upload)

	// Read views are cached until the next write.
	cached := h.Cache.Middleware()
	v1.GET("/summaries", h.Summary.List, cached)
	v1.GET("/reports/company", h.Report.Company, cached)
	v1.GET("/reports/events/:name", h.Report.Event, cached)
	v1.GET("/shows", h.Report.Shows)

	admin := v1.Group("/admin")
	admin.POST("/recompute", h.Summary.Recompute)
	admin.DELETE("/data", h.Summary.Reset)
}
