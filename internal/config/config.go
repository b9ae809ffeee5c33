package config // package config loads application configuration from environment variables

import (
	"errors"
	"io/fs"
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Config holds the runtime values shared by the server and the CLI.  Each
// field corresponds to an environment variable.
type Config struct {
	Env      string // application environment (e.g. "dev", "prod")
	Port     string // HTTP port to listen on
	DBDriver string // "mysql", "postgres" or "memory"
	DBUser   string // database username
	DBPass   string // database password (optional)
	DBHost   string // database host address
	DBPort   string // database port number
	DBName   string // database name
}

// UsesDatabase reports whether a SQL database is configured.
func (c Config) UsesDatabase() bool { return c.DBDriver != "memory" }

// LoadDotEnv reads a .env file in the working directory when one exists.
// Variables already set in the environment win.
func LoadDotEnv() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("config: .env not loaded: %v", err)
	}
}

// Load reads configuration values from environment variables.  Database
// settings are enforced by must() unless DB_DRIVER is "memory"; missing
// values cause the program to exit with a fatal log message.
func Load() Config {
	LoadDotEnv()
	cfg := Config{
		Env:      envStr("APP_ENV", "dev"),
		Port:     envStr("APP_PORT", "8080"),
		DBDriver: envStr("DB_DRIVER", "mysql"),
	}
	switch cfg.DBDriver {
	case "memory":
		return cfg
	case "mysql", "postgres":
	default:
		log.Fatalf("unsupported DB_DRIVER: %q", cfg.DBDriver)
	}
	cfg.DBUser = must("DB_USER")
	cfg.DBPass = os.Getenv("DB_PASS")
	cfg.DBHost = must("DB_HOST")
	cfg.DBPort = must("DB_PORT")
	cfg.DBName = must("DB_NAME")
	return cfg
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}
