package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Dialect holds the SQL fragments that differ between the supported
// databases.  Documents live in a single table:
//
//	documents(collection, id, body JSON)
//
// with (collection, id) as primary key.
type Dialect struct {
	Name string
	// placeholder renders the n-th (1-based) bind parameter.
	placeholder func(n int) string
	// fieldEquals compares a top-level body field with a JSON encoded
	// parameter.
	fieldEquals func(field, param string) string
	// mergePatch returns the expression that merges a JSON parameter into
	// the stored body.
	mergePatch func(param string) string
}

// MySQL stores bodies in a JSON column (MySQL 5.7.22+ for JSON_MERGE_PATCH).
var MySQL = Dialect{
	Name:        "mysql",
	placeholder: func(int) string { return "?" },
	fieldEquals: func(field, param string) string {
		return fmt.Sprintf("JSON_EXTRACT(body, '$.%s') = CAST(%s AS JSON)", field, param)
	},
	mergePatch: func(param string) string {
		return fmt.Sprintf("JSON_MERGE_PATCH(body, CAST(%s AS JSON))", param)
	},
}

// Postgres stores bodies in a JSONB column.
var Postgres = Dialect{
	Name:        "postgres",
	placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
	fieldEquals: func(field, param string) string {
		return fmt.Sprintf("body -> '%s' = %s::jsonb", field, param)
	},
	mergePatch: func(param string) string {
		return fmt.Sprintf("body || %s::jsonb", param)
	},
}

// DialectFor returns the dialect registered for a database/sql driver name.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "mysql":
		return MySQL, nil
	case "postgres":
		return Postgres, nil
	}
	return Dialect{}, fmt.Errorf("unsupported database driver %q", driver)
}

// SQLStore implements Store on top of a relational database.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

// NewSQLStore constructs a SQLStore with the given DB handle.
func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect}
}

// DB exposes the underlying sql.DB.
func (s *SQLStore) DB() *sql.DB {
	return s.db
}

// Insert stores one document outside any batch.
func (s *SQLStore) Insert(ctx context.Context, collection string, doc Document) (string, error) {
	if err := checkCollection(collection); err != nil {
		return "", err
	}
	body, err := json.Marshal(doc.Fields)
	if err != nil {
		return "", err
	}
	id := doc.ID
	if id == "" {
		id = uuid.NewString()
	}
	p := s.dialect.placeholder
	q := fmt.Sprintf("INSERT INTO documents (collection, id, body) VALUES (%s, %s, %s)", p(1), p(2), p(3))
	if _, err := s.db.ExecContext(ctx, q, collection, id, string(body)); err != nil {
		return "", err
	}
	return id, nil
}

// BatchCommit inserts docs with one multi-row statement inside a
// transaction.  The transaction is rolled back on any error.
func (s *SQLStore) BatchCommit(ctx context.Context, collection string, docs []Document) (err error) {
	if err := checkCollection(collection); err != nil {
		return err
	}
	if len(docs) == 0 {
		return nil
	}
	query := `INSERT INTO documents (collection, id, body) VALUES `
	args := make([]interface{}, 0, len(docs)*3)
	p := s.dialect.placeholder
	for i, d := range docs {
		body, mErr := json.Marshal(d.Fields)
		if mErr != nil {
			return mErr
		}
		id := d.ID
		if id == "" {
			id = uuid.NewString()
		}
		if i > 0 {
			query += ","
		}
		n := i * 3
		query += fmt.Sprintf("(%s, %s, %s)", p(n+1), p(n+2), p(n+3))
		args = append(args, collection, id, string(body))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err = tx.ExecContext(ctx, query, args...); err != nil {
		return err
	}
	return tx.Commit()
}

// Query selects documents whose body fields equal every filter value.
func (s *SQLStore) Query(ctx context.Context, collection string, filter Filter) ([]Document, error) {
	if err := checkCollection(collection); err != nil {
		return nil, err
	}
	keys, err := filter.sortedKeys()
	if err != nil {
		return nil, err
	}
	p := s.dialect.placeholder
	where := []string{"collection = " + p(1)}
	args := []interface{}{collection}
	for i, k := range keys {
		v, mErr := json.Marshal(filter[k])
		if mErr != nil {
			return nil, fmt.Errorf("%w: field %q: %v", ErrInvalidFilter, k, mErr)
		}
		where = append(where, s.dialect.fieldEquals(k, p(i+2)))
		args = append(args, string(v))
	}
	q := "SELECT id, body FROM documents WHERE " + strings.Join(where, " AND ") + " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Document
	for rows.Next() {
		var (
			id   string
			body []byte
		)
		if err := rows.Scan(&id, &body); err != nil {
			return nil, err
		}
		fields, err := decodeFields(body)
		if err != nil {
			return nil, fmt.Errorf("decode %s/%s: %w", collection, id, err)
		}
		out = append(out, Document{ID: id, Fields: fields})
	}
	return out, rows.Err()
}

// Update merges partial into the stored body.  ErrNotFound is returned when
// no row matches; the MySQL DSN must set clientFoundRows so an update that
// leaves the body unchanged still counts as a match.
func (s *SQLStore) Update(ctx context.Context, collection, id string, partial map[string]any) error {
	if err := checkCollection(collection); err != nil {
		return err
	}
	patch, err := json.Marshal(partial)
	if err != nil {
		return err
	}
	p := s.dialect.placeholder
	q := fmt.Sprintf("UPDATE documents SET body = %s WHERE collection = %s AND id = %s",
		s.dialect.mergePatch(p(1)), p(2), p(3))
	res, err := s.db.ExecContext(ctx, q, string(patch), collection, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAll removes every document of the collection.
func (s *SQLStore) DeleteAll(ctx context.Context, collection string) error {
	if err := checkCollection(collection); err != nil {
		return err
	}
	q := "DELETE FROM documents WHERE collection = " + s.dialect.placeholder(1)
	_, err := s.db.ExecContext(ctx, q, collection)
	return err
}
