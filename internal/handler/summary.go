package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/boxoffice-sales/internal/model"
	"github.com/iliyamo/boxoffice-sales/internal/repository"
	"github.com/iliyamo/boxoffice-sales/internal/summary"
)

// Invalidator drops cached read views.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// SummaryHandler serves the daily summary collection and its maintenance
// operations.
type SummaryHandler struct {
	Aggregator *summary.Aggregator
	Cache      Invalidator // optional
}

// NewSummaryHandler constructs a SummaryHandler and panics if the
// aggregator is nil.  cache may be nil.
func NewSummaryHandler(a *summary.Aggregator, cache Invalidator) *SummaryHandler {
	if a == nil {
		panic("nil aggregator passed to NewSummaryHandler")
	}
	return &SummaryHandler{Aggregator: a, Cache: cache}
}

// SummaryView is one daily bucket as returned by the API.
type SummaryView struct {
	ID                  string          `json:"id"`
	TransactionDate     string          `json:"transaction_date"`
	EventName           string          `json:"event_name"`
	PerformanceType     string          `json:"performance_type"`
	TotalSoldGrossValue decimal.Decimal `json:"total_sold_gross_value"`
	TotalSoldTickets    int64           `json:"total_sold_tickets"`
	TotalCompTickets    int64           `json:"total_comp_tickets"`
}

// List returns buckets, newest date first.  Optional query parameters
// date (YYYY-MM-DD), event and type (Matinee|Evening) narrow the result.
func (h *SummaryHandler) List(c echo.Context) error {
	filter := repository.Filter{}
	if d := strings.TrimSpace(c.QueryParam("date")); d != "" {
		if _, err := time.Parse("2006-01-02", d); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be YYYY-MM-DD"})
		}
		filter[model.FieldTransactionDate] = d
	}
	if ev := strings.TrimSpace(c.QueryParam("event")); ev != "" {
		filter[model.FieldEventName] = ev
	}
	if pt := strings.TrimSpace(c.QueryParam("type")); pt != "" {
		switch model.PerformanceType(pt) {
		case model.Matinee, model.Evening:
			filter[model.FieldPerformanceType] = pt
		default:
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "type must be Matinee or Evening"})
		}
	}

	buckets, err := h.Aggregator.List(c.Request().Context(), filter)
	if err != nil {
		slog.Error("list summaries", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]SummaryView, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, SummaryView{
			ID:                  b.ID,
			TransactionDate:     b.Key.TransactionDate,
			EventName:           b.Key.EventName,
			PerformanceType:     string(b.Key.PerformanceType),
			TotalSoldGrossValue: b.TotalSoldGrossValue,
			TotalSoldTickets:    b.TotalSoldTickets,
			TotalCompTickets:    b.TotalCompTickets,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// Recompute rebuilds every bucket from the stored sales.
func (h *SummaryHandler) Recompute(c echo.Context) error {
	ctx := c.Request().Context()
	n, err := h.Aggregator.Recompute(ctx)
	if err != nil {
		slog.Error("recompute summaries", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "recompute failed"})
	}
	h.invalidate(ctx)
	return c.JSON(http.StatusOK, echo.Map{"buckets": n})
}

// Reset deletes all sales and summaries.
func (h *SummaryHandler) Reset(c echo.Context) error {
	ctx := c.Request().Context()
	if err := h.Aggregator.Reset(ctx); err != nil {
		slog.Error("reset", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reset failed"})
	}
	h.invalidate(ctx)
	return c.NoContent(http.StatusNoContent)
}

func (h *SummaryHandler) invalidate(ctx context.Context) {
	if h.Cache == nil {
		return
	}
	if err := h.Cache.Invalidate(ctx); err != nil {
		slog.Warn("cache invalidation failed", "err", err)
	}
}
