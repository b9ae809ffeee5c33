package config_test

import (
	"testing"
	"time"

	"github.com/iliyamo/boxoffice-sales/internal/config"
)

func TestLoadIngestConfig_Defaults(t *testing.T) {
	for _, k := range []string{"INGEST_BATCH_SIZE", "SUMMARY_LOCK_ENABLED", "SUMMARY_LOCK_TTL", "SHOW_CATALOG_PATH", "RABBITMQ_URL", "AMQP_URL", "INGEST_MAX_UPLOAD_MB"} {
		t.Setenv(k, "")
	}
	cfg := config.LoadIngestConfig()
	if cfg.BatchSize != 490 || cfg.LockEnabled || cfg.LockTTL != 10*time.Second || cfg.QueueURL != "" {
		t.Errorf("defaults = %+v", cfg)
	}
	if cfg.MaxUploadBytes != 64<<20 {
		t.Errorf("max upload = %d", cfg.MaxUploadBytes)
	}
}

func TestLoadIngestConfig_Overrides(t *testing.T) {
	t.Setenv("INGEST_BATCH_SIZE", "250")
	t.Setenv("SUMMARY_LOCK_ENABLED", "yes")
	t.Setenv("SUMMARY_LOCK_TTL", "3s")
	t.Setenv("RABBITMQ_URL", "")
	t.Setenv("AMQP_URL", "amqp://broker/")
	cfg := config.LoadIngestConfig()
	if cfg.BatchSize != 250 || !cfg.LockEnabled || cfg.LockTTL != 3*time.Second {
		t.Errorf("overrides = %+v", cfg)
	}
	if cfg.QueueURL != "amqp://broker/" {
		t.Errorf("AMQP_URL fallback not used: %q", cfg.QueueURL)
	}
}

func TestLoad_MemoryDriverSkipsDatabase(t *testing.T) {
	t.Setenv("DB_DRIVER", "memory")
	t.Setenv("APP_PORT", "9090")
	cfg := config.Load()
	if cfg.UsesDatabase() || cfg.Port != "9090" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadCacheConfig(t *testing.T) {
	t.Setenv("CACHE_ENABLED", "false")
	t.Setenv("CACHE_TTL", "1m")
	t.Setenv("CACHE_KEY_STRATEGY", "ROUTE")
	cfg := config.LoadCacheConfig()
	if cfg.Enabled || cfg.TTL != time.Minute || cfg.KeyStrategy != "route" || cfg.Prefix != "report-cache" {
		t.Errorf("cache cfg = %+v", cfg)
	}
}

func TestRedisOptions(t *testing.T) {
	t.Setenv("REDIS_ADDR", "cache:6380")
	t.Setenv("REDIS_HOST", "")
	t.Setenv("REDIS_PORT", "")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("REDIS_TLS", "")
	opts := config.RedisOptions()
	if opts.Addr != "cache:6380" || opts.DB != 2 || opts.TLSConfig != nil {
		t.Errorf("options = %+v", opts)
	}

	t.Setenv("REDIS_HOST", "redis")
	t.Setenv("REDIS_PORT", "6379")
	if got := config.RedisOptions().Addr; got != "redis:6379" {
		t.Errorf("host/port should win, got %q", got)
	}
}
