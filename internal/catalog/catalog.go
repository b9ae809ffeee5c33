// Package catalog holds the show definitions sales rows are linked to.  The
// catalog is a YAML file that operators edit by hand; it is reloaded when
// the file changes.
package catalog

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/iliyamo/boxoffice-sales/internal/model"
)

type file struct {
	Shows []model.ShowDefinition `yaml:"shows"`
}

// Catalog is a set of show definitions.  It is safe for concurrent use.
type Catalog struct {
	path     string
	mu       sync.RWMutex
	shows    []model.ShowDefinition
	onChange []func([]model.ShowDefinition)
}

var validate = validator.New()

// New returns a catalog holding shows.  It is not backed by a file.
func New(shows []model.ShowDefinition) (*Catalog, error) {
	if err := check(shows); err != nil {
		return nil, err
	}
	return &Catalog{shows: shows}, nil
}

// Load reads the catalog at path.
func Load(path string) (*Catalog, error) {
	c := &Catalog{path: path}
	shows, err := c.load()
	if err != nil {
		return nil, err
	}
	c.shows = shows
	return c, nil
}

// Shows returns a copy of the definitions ordered by id.
func (c *Catalog) Shows() []model.ShowDefinition {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.ShowDefinition, len(c.shows))
	copy(out, c.shows)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Resolve returns the id of the show matching an event and performance
// type.  A definition for the exact type wins over one covering both.
func (c *Catalog) Resolve(eventName string, pt model.PerformanceType) (string, bool) {
	if def, ok := c.Find(eventName, pt); ok {
		return def.ID, true
	}
	return "", false
}

// Find is Resolve returning the full definition.
func (c *Catalog) Find(eventName string, pt model.PerformanceType) (model.ShowDefinition, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var fallback *model.ShowDefinition
	for i := range c.shows {
		s := &c.shows[i]
		if !s.Matches(eventName, pt) {
			continue
		}
		if s.PerformanceType == pt {
			return *s, true
		}
		if fallback == nil {
			fallback = s
		}
	}
	if fallback != nil {
		return *fallback, true
	}
	return model.ShowDefinition{}, false
}

// ForEvent returns every definition of an event regardless of type.
func (c *Catalog) ForEvent(eventName string) []model.ShowDefinition {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []model.ShowDefinition
	for _, s := range c.shows {
		if s.Matches(eventName, "") || s.Matches(eventName, model.Matinee) || s.Matches(eventName, model.Evening) {
			out = append(out, s)
		}
	}
	return out
}

// OnChange registers a callback invoked after every successful reload.
func (c *Catalog) OnChange(fn func([]model.ShowDefinition)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = append(c.onChange, fn)
}

// Watch reloads the catalog whenever its file is written.  A file that
// fails to parse or validate is logged and the previous definitions stay
// in place.  Call the returned stop function to clean up.
func (c *Catalog) Watch() (stop func(), err error) {
	if c.path == "" {
		return nil, fmt.Errorf("catalog watcher: catalog is not backed by a file")
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("catalog watcher: %w", err)
	}
	if err := w.Add(c.path); err != nil {
		w.Close()
		return nil, fmt.Errorf("catalog watcher add %s: %w", c.path, err)
	}

	done := make(chan struct{})
	go func() {
		defer w.Close()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
					if _, err := c.Reload(); err != nil {
						slog.Warn("catalog reload skipped", "path", c.path, "err", err)
					}
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.Warn("catalog watcher error", "err", err)
			case <-done:
				return
			}
		}
	}()

	return func() { close(done) }, nil
}

// Reload forces an immediate re-read of the catalog file.
func (c *Catalog) Reload() ([]model.ShowDefinition, error) {
	shows, err := c.load()
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.shows = shows
	callbacks := make([]func([]model.ShowDefinition), len(c.onChange))
	copy(callbacks, c.onChange)
	c.mu.Unlock()
	for _, fn := range callbacks {
		fn(shows)
	}
	return shows, nil
}

func (c *Catalog) load() ([]model.ShowDefinition, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", c.path, err)
	}
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", c.path, err)
	}
	if err := check(f.Shows); err != nil {
		return nil, fmt.Errorf("catalog %s: %w", c.path, err)
	}
	return f.Shows, nil
}

func check(shows []model.ShowDefinition) error {
	seen := make(map[string]bool, len(shows))
	for i, s := range shows {
		if err := validate.Struct(s); err != nil {
			return fmt.Errorf("show %d (%q): %w", i, s.ID, err)
		}
		if seen[s.ID] {
			return fmt.Errorf("duplicate show id %q", s.ID)
		}
		seen[s.ID] = true
	}
	return nil
}
