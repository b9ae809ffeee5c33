// Package app wires configuration, storage and the ingestion pipeline
// together for the server and the CLI.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/boxoffice-sales/internal/catalog"
	"github.com/iliyamo/boxoffice-sales/internal/config"
	"github.com/iliyamo/boxoffice-sales/internal/database"
	"github.com/iliyamo/boxoffice-sales/internal/ingest"
	"github.com/iliyamo/boxoffice-sales/internal/lock"
	"github.com/iliyamo/boxoffice-sales/internal/middleware"
	"github.com/iliyamo/boxoffice-sales/internal/repository"
	"github.com/iliyamo/boxoffice-sales/internal/service"
	"github.com/iliyamo/boxoffice-sales/internal/summary"
	"github.com/iliyamo/boxoffice-sales/internal/validation"
)

// App holds every long-lived component.  Optional parts (DB, Redis,
// Catalog, Publisher) are nil when not configured.
type App struct {
	Config       config.Config
	Ingest       config.IngestConfig
	Store        repository.Store
	DB           *sql.DB
	Redis        *redis.Client
	Catalog      *catalog.Catalog
	Aggregator   *summary.Aggregator
	Reports      *service.Reports
	Cache        *middleware.ReportCache
	Publisher    *service.Publisher
	Orchestrator *ingest.Orchestrator
	Logger       *slog.Logger
}

// NewLogger returns a JSON logger outside dev and a text logger in dev.
// LOG_LEVEL=debug enables state transition logs.
func NewLogger(env string) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(os.Getenv("LOG_LEVEL"))); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if env == "dev" {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

// New builds an App from the environment.  Redis and RabbitMQ are
// optional; a missing or unreachable database is an error.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	a := &App{
		Config: cfg,
		Ingest: config.LoadIngestConfig(),
		Logger: NewLogger(cfg.Env),
	}
	slog.SetDefault(a.Logger)

	if cfg.UsesDatabase() {
		db, err := database.Open(cfg.DBDriver, cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		if err := database.EnsureSchema(ctx, db, cfg.DBDriver); err != nil {
			db.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		dialect, err := repository.DialectFor(cfg.DBDriver)
		if err != nil {
			db.Close()
			return nil, err
		}
		a.DB = db
		a.Store = repository.NewSQLStore(db, dialect)
	} else {
		a.Logger.Warn("using in-memory store; data is lost on exit")
		a.Store = repository.NewMemoryStore()
	}

	a.Redis = config.NewRedisClient()
	if a.Redis == nil {
		a.Logger.Info("redis unavailable; report cache disabled")
	} else {
		a.Cache = middleware.NewReportCache(config.LoadCacheConfig(), a.Redis)
	}

	var aggOpts []summary.Option
	if a.Ingest.LockEnabled {
		if a.Redis != nil {
			aggOpts = append(aggOpts, summary.WithLocker(lock.NewRedisLocker(a.Redis, a.Ingest.LockPrefix, a.Ingest.LockTTL)))
		} else {
			a.Logger.Warn("summary lock falls back to in-process mutex")
			aggOpts = append(aggOpts, summary.WithLocker(lock.NewKeyedMutex()))
		}
	}
	a.Aggregator = summary.New(a.Store, aggOpts...)

	var valOpts []validation.Option
	if a.Ingest.CatalogPath != "" {
		cat, err := catalog.Load(a.Ingest.CatalogPath)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("load show catalog: %w", err)
		}
		a.Catalog = cat
		valOpts = append(valOpts, validation.WithResolver(cat))
	}
	if a.Catalog != nil {
		a.Reports = service.NewReports(a.Store, a.Catalog)
	} else {
		a.Reports = service.NewReports(a.Store, nil)
	}

	orchOpts := []ingest.Option{
		ingest.WithBatchSize(a.Ingest.BatchSize),
		ingest.WithValidator(validation.New(valOpts...)),
		ingest.WithAggregator(a.Aggregator),
		ingest.WithLogger(a.Logger),
	}
	if a.Cache != nil {
		orchOpts = append(orchOpts, ingest.WithNotifier(a.Cache))
	}
	if a.Ingest.QueueURL != "" {
		a.Publisher = service.NewPublisher(a.Ingest.QueueURL)
		orchOpts = append(orchOpts, ingest.WithObserver(a.Publisher), ingest.WithNotifier(a.Publisher))
	}
	a.Orchestrator = ingest.NewOrchestrator(a.Store, orchOpts...)
	return a, nil
}

// Close releases connections.  It is safe to call on a partly built App.
func (a *App) Close() {
	if a.Publisher != nil {
		_ = a.Publisher.Close()
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.DB != nil {
		_ = a.DB.Close()
	}
}
