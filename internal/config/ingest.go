package config

import (
	"os"
	"strconv"
	"time"
)

// IngestConfig controls the ingestion pipeline and its side channels.
type IngestConfig struct {
	BatchSize       int           // records per store transaction, clamped by the writer
	LockEnabled     bool          // serialise summary merges per bucket through Redis
	LockTTL         time.Duration // how long a crashed holder keeps a bucket locked
	LockPrefix      string        // Redis key prefix for bucket locks
	CatalogPath     string        // YAML show catalog, empty disables show linking
	QueueURL        string        // RabbitMQ URL, empty disables events
	ConsumerEnabled bool          // run the ingestion.completed log consumer in-process
	LogDir          string        // where the consumer writes ingestion.log
	MaxUploadBytes  int64         // upper bound on an uploaded CSV
}

// LoadIngestConfig reads ingestion settings.  Defaults are used when
// variables are not set.
func LoadIngestConfig() IngestConfig {
	cfg := IngestConfig{
		BatchSize:       envInt("INGEST_BATCH_SIZE", 490),
		LockEnabled:     envBool("SUMMARY_LOCK_ENABLED", false),
		LockTTL:         envDur("SUMMARY_LOCK_TTL", 10*time.Second),
		LockPrefix:      envStr("SUMMARY_LOCK_PREFIX", "summary-lock"),
		CatalogPath:     envStr("SHOW_CATALOG_PATH", ""),
		QueueURL:        envStr("RABBITMQ_URL", os.Getenv("AMQP_URL")),
		ConsumerEnabled: envBool("INGEST_CONSUMER_ENABLED", false),
		LogDir:          envStr("INGEST_LOG_DIR", "logs"),
		MaxUploadBytes:  int64(envInt("INGEST_MAX_UPLOAD_MB", 64)) << 20,
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 10 * time.Second
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 64 << 20
	}
	return cfg
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	if n, err := strconv.Atoi(os.Getenv(k)); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	if dur, err := time.ParseDuration(os.Getenv(k)); err == nil {
		return dur
	}
	return d
}
