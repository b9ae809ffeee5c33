package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore keeps documents in process memory.  It backs dry runs of the
// CLI and the pipeline tests, and behaves like the SQL store: values are
// normalised through JSON and batch commits are all-or-nothing.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]map[string]any
	commits     int
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]map[string]map[string]any)}
}

func (s *MemoryStore) coll(name string) map[string]map[string]any {
	c, ok := s.collections[name]
	if !ok {
		c = make(map[string]map[string]any)
		s.collections[name] = c
	}
	return c
}

// Insert stores doc, generating an id when doc.ID is empty.
func (s *MemoryStore) Insert(ctx context.Context, collection string, doc Document) (string, error) {
	if err := checkCollection(collection); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fields, err := normalize(doc.Fields)
	if err != nil {
		return "", err
	}
	id := doc.ID
	if id == "" {
		id = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.coll(collection)[id] = fields
	return id, nil
}

// BatchCommit stores every doc or none of them.
func (s *MemoryStore) BatchCommit(ctx context.Context, collection string, docs []Document) error {
	if err := checkCollection(collection); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	staged := make(map[string]map[string]any, len(docs))
	for _, d := range docs {
		fields, err := normalize(d.Fields)
		if err != nil {
			return err
		}
		id := d.ID
		if id == "" {
			id = uuid.NewString()
		}
		staged[id] = fields
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.coll(collection)
	for id, f := range staged {
		c[id] = f
	}
	s.commits++
	return nil
}

// Query returns copies of the matching documents ordered by id.
func (s *MemoryStore) Query(ctx context.Context, collection string, filter Filter) ([]Document, error) {
	if err := checkCollection(collection); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	keys, err := filter.sortedKeys()
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Document
	for id, fields := range s.collections[collection] {
		if !matches(fields, filter, keys) {
			continue
		}
		cp := make(map[string]any, len(fields))
		for k, v := range fields {
			cp[k] = v
		}
		out = append(out, Document{ID: id, Fields: cp})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func matches(fields map[string]any, filter Filter, keys []string) bool {
	for _, k := range keys {
		v, ok := fields[k]
		if !ok || !jsonEqual(v, filter[k]) {
			return false
		}
	}
	return true
}

// Update merges partial into an existing document.
func (s *MemoryStore) Update(ctx context.Context, collection, id string, partial map[string]any) error {
	if err := checkCollection(collection); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	fields, err := normalize(partial)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.collections[collection][id]
	if !ok {
		return ErrNotFound
	}
	for k, v := range fields {
		doc[k] = v
	}
	return nil
}

// DeleteAll drops the collection.
func (s *MemoryStore) DeleteAll(ctx context.Context, collection string) error {
	if err := checkCollection(collection); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections, collection)
	return nil
}

// Count returns the number of documents in a collection.
func (s *MemoryStore) Count(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collections[collection])
}

// Commits returns how many batch commits have succeeded.
func (s *MemoryStore) Commits() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.commits
}
