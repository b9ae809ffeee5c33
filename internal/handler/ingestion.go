// Package handler exposes the HTTP surface of the sales service: CSV
// uploads, daily summaries, reports and the show catalog.
package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/boxoffice-sales/internal/ingest"
)

// IngestionHandler accepts sales exports and runs them through the
// orchestrator synchronously.
type IngestionHandler struct {
	Orchestrator   *ingest.Orchestrator
	MaxUploadBytes int64
}

// NewIngestionHandler constructs an IngestionHandler and panics if the
// orchestrator is nil.
func NewIngestionHandler(o *ingest.Orchestrator, maxUploadBytes int64) *IngestionHandler {
	if o == nil {
		panic("nil orchestrator passed to NewIngestionHandler")
	}
	if maxUploadBytes <= 0 {
		maxUploadBytes = 64 << 20
	}
	return &IngestionHandler{Orchestrator: o, MaxUploadBytes: maxUploadBytes}
}

// Upload ingests a CSV sent either as the multipart field "file" or as a
// text/csv request body.  The ingestion report is returned in both the
// success and the storage failure case.
func (h *IngestionHandler) Upload(c echo.Context) error {
	req := c.Request()
	var body io.Reader
	if strings.HasPrefix(req.Header.Get(echo.HeaderContentType), "text/csv") {
		if req.ContentLength > h.MaxUploadBytes {
			return c.JSON(http.StatusRequestEntityTooLarge, echo.Map{"error": "file too large"})
		}
		limited := http.MaxBytesReader(c.Response(), req.Body, h.MaxUploadBytes)
		body = ingest.Sized(limited, req.ContentLength)
	} else {
		fh, err := c.FormFile("file")
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "file is required"})
		}
		if fh.Size > h.MaxUploadBytes {
			return c.JSON(http.StatusRequestEntityTooLarge, echo.Map{"error": "file too large"})
		}
		f, err := fh.Open()
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot read file"})
		}
		defer f.Close()
		body = ingest.Sized(f, fh.Size)
	}

	rep, err := h.Orchestrator.Ingest(req.Context(), body)
	if err != nil {
		var cfgErr *ingest.ConfigurationError
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &cfgErr):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": cfgErr.Error()})
		case errors.As(err, &maxErr):
			return c.JSON(http.StatusRequestEntityTooLarge, echo.Map{"error": "file too large", "report": rep})
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "ingestion cancelled", "report": rep})
		default:
			slog.Error("ingestion failed", "err", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "storage failure", "report": rep})
		}
	}
	return c.JSON(http.StatusOK, rep)
}
