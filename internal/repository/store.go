package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
)

// Document is one stored record.  Fields hold JSON-compatible values; after a
// round trip through a store numbers come back as json.Number.
type Document struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields"`
}

// Filter selects documents whose fields equal every given value.
type Filter map[string]any

// Store is the document store the ingestion pipeline writes to.  It only
// relies on equality filters and atomic batch writes so any backend that
// offers both can serve it.
type Store interface {
	// Insert stores a new document and returns its id.  An empty ID is
	// generated by the store.
	Insert(ctx context.Context, collection string, doc Document) (string, error)
	// BatchCommit writes all docs in one atomic transaction.  On error none
	// of them is visible.
	BatchCommit(ctx context.Context, collection string, docs []Document) error
	// Query returns documents matching filter ordered by id.  A nil or empty
	// filter returns the whole collection.
	Query(ctx context.Context, collection string, filter Filter) ([]Document, error)
	// Update merges partial into the fields of an existing document.
	Update(ctx context.Context, collection, id string, partial map[string]any) error
	// DeleteAll removes every document of the collection.  It is only used
	// by explicit reset and recompute operations.
	DeleteAll(ctx context.Context, collection string) error
}

var (
	collectionPattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]{0,63}$`)
	fieldPattern      = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]{0,63}$`)
)

func checkCollection(name string) error {
	if !collectionPattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrUnknownCollection, name)
	}
	return nil
}

// sortedKeys returns the filter fields in a stable order so generated SQL
// and argument lists are deterministic.
func (f Filter) sortedKeys() ([]string, error) {
	keys := make([]string, 0, len(f))
	for k := range f {
		if !fieldPattern.MatchString(k) {
			return nil, fmt.Errorf("%w: field %q", ErrInvalidFilter, k)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// normalize round-trips fields through JSON so every backend hands back the
// same value types.
func normalize(fields map[string]any) (map[string]any, error) {
	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	return decodeFields(raw)
}

func decodeFields(raw []byte) (map[string]any, error) {
	var out map[string]any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

// jsonEqual compares two JSON-compatible values by their encoding.
func jsonEqual(a, b any) bool {
	ea, err := json.Marshal(a)
	if err != nil {
		return false
	}
	eb, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return string(ea) == string(eb)
}
