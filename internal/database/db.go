package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
)

// Open connects to MySQL or Postgres and verifies the connection.
func Open(driver, user, pass, host, port, name string) (*sql.DB, error) {
	dsn, err := DSN(driver, user, pass, host, port, name)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	// Ping with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// DSN builds the connection string for driver.
func DSN(driver, user, pass, host, port, name string) (string, error) {
	switch driver {
	case "mysql":
		auth := user
		if pass != "" {
			auth = fmt.Sprintf("%s:%s", user, pass)
		}
		// clientFoundRows -> UPDATE reports matched rows, not changed rows
		return fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC&clientFoundRows=true",
			auth, host, port, name), nil
	case "postgres":
		auth := user
		if pass != "" {
			auth = fmt.Sprintf("%s:%s", user, pass)
		}
		return fmt.Sprintf("postgres://%s@%s:%s/%s?sslmode=disable", auth, host, port, name), nil
	}
	return "", fmt.Errorf("unsupported database driver %q", driver)
}

var schemas = map[string]string{
	"mysql": `CREATE TABLE IF NOT EXISTS documents (
  collection VARCHAR(64) NOT NULL,
  id         VARCHAR(64) NOT NULL,
  body       JSON        NOT NULL,
  PRIMARY KEY (collection, id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	"postgres": `CREATE TABLE IF NOT EXISTS documents (
  collection VARCHAR(64) NOT NULL,
  id         VARCHAR(64) NOT NULL,
  body       JSONB       NOT NULL,
  PRIMARY KEY (collection, id)
)`,
}

// EnsureSchema creates the documents table when it does not exist yet.
func EnsureSchema(ctx context.Context, db *sql.DB, driver string) error {
	ddl, ok := schemas[driver]
	if !ok {
		return fmt.Errorf("unsupported database driver %q", driver)
	}
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create documents table: %w", err)
	}
	return nil
}
