package main // Entry point package

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/boxoffice-sales/internal/app"
	"github.com/iliyamo/boxoffice-sales/internal/config"
	"github.com/iliyamo/boxoffice-sales/internal/handler"
	"github.com/iliyamo/boxoffice-sales/internal/queue"
	"github.com/iliyamo/boxoffice-sales/internal/router"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer a.Close()
	logger := a.Logger

	if a.Catalog != nil {
		stopWatch, err := a.Catalog.Watch()
		if err != nil {
			logger.Warn("show catalog will not be reloaded", "err", err)
		} else {
			defer stopWatch()
		}
	}

	if a.Ingest.ConsumerEnabled && a.Ingest.QueueURL != "" {
		consumer := &queue.Consumer{URL: a.Ingest.QueueURL, LogDir: a.Ingest.LogDir}
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("ingestion consumer stopped", "err", err)
			}
		}()
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())

	h := router.Handlers{
		Ingestion: handler.NewIngestionHandler(a.Orchestrator, a.Ingest.MaxUploadBytes),
		Summary:   handler.NewSummaryHandler(a.Aggregator, nil),
		Report:    handler.NewReportHandler(a.Reports, a.Catalog),
		Cache:     a.Cache,
	}
	if a.Cache != nil {
		h.Summary.Cache = a.Cache
	}
	if a.DB != nil {
		h.DB = a.DB
	}
	router.RegisterRoutes(e, h)

	addr := ":" + cfg.Port
	logger.Info("listening", "addr", addr, "env", cfg.Env, "store", cfg.DBDriver)

	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "err", err)
	}
}
