package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/boxoffice-sales/internal/catalog"
	"github.com/iliyamo/boxoffice-sales/internal/repository"
	"github.com/iliyamo/boxoffice-sales/internal/service"
)

// ReportHandler serves the read-only reporting views.
type ReportHandler struct {
	Reports *service.Reports
	Catalog *catalog.Catalog // optional
}

// NewReportHandler constructs a ReportHandler and panics if reports is nil.
func NewReportHandler(r *service.Reports, cat *catalog.Catalog) *ReportHandler {
	if r == nil {
		panic("nil reports passed to NewReportHandler")
	}
	return &ReportHandler{Reports: r, Catalog: cat}
}

// Company returns totals across every event.
func (h *ReportHandler) Company(c echo.Context) error {
	o, err := h.Reports.Company(c.Request().Context())
	if err != nil {
		slog.Error("company report", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, o)
}

// Event returns the report of the event named in the path.
func (h *ReportHandler) Event(c echo.Context) error {
	name := strings.TrimSpace(c.Param("name"))
	if name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "event name is required"})
	}
	rep, err := h.Reports.Event(c.Request().Context(), name)
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
	}
	if err != nil {
		slog.Error("event report", "event", name, "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, rep)
}

// Shows lists the show catalog.  ?event= narrows it to one event.
func (h *ReportHandler) Shows(c echo.Context) error {
	if h.Catalog == nil {
		return c.JSON(http.StatusOK, echo.Map{"items": []any{}})
	}
	if ev := strings.TrimSpace(c.QueryParam("event")); ev != "" {
		return c.JSON(http.StatusOK, echo.Map{"items": h.Catalog.ForEvent(ev)})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": h.Catalog.Shows()})
}
