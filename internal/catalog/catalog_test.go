package catalog_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/iliyamo/boxoffice-sales/internal/catalog"
	"github.com/iliyamo/boxoffice-sales/internal/model"
)

const showsYAML = `
shows:
  - id: ham-eve
    name: Hamilton
    performance_type: Evening
    performance_time: "19:30"
    first_show_date: "2024-12-25"
    tickets_available: 1400
  - id: ham
    name: Hamilton
  - id: wicked
    name: Wicked
    performance_type: Matinee
    tickets_available: 1800
`

func writeCatalog(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shows.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAndResolve(t *testing.T) {
	c, err := catalog.Load(writeCatalog(t, showsYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := len(c.Shows()); got != 3 {
		t.Fatalf("shows = %d", got)
	}

	cases := []struct {
		name string
		pt   model.PerformanceType
		want string
		ok   bool
	}{
		{"Hamilton", model.Evening, "ham-eve", true},
		{"hamilton ", model.Matinee, "ham", true},
		{"Wicked", model.Matinee, "wicked", true},
		{"Wicked", model.Evening, "", false},
		{"Cats", model.Evening, "", false},
	}
	for _, tc := range cases {
		id, ok := c.Resolve(tc.name, tc.pt)
		if id != tc.want || ok != tc.ok {
			t.Errorf("Resolve(%q, %s) = %q, %v; want %q, %v", tc.name, tc.pt, id, ok, tc.want, tc.ok)
		}
	}
	if got := len(c.ForEvent("Hamilton")); got != 2 {
		t.Errorf("ForEvent(Hamilton) = %d definitions", got)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	bad := []string{
		"shows:\n  - name: NoID\n",
		"shows:\n  - id: a\n    name: A\n    performance_type: Night\n",
		"shows:\n  - id: a\n    name: A\n  - id: a\n    name: B\n",
		"shows: [",
	}
	for _, body := range bad {
		if _, err := catalog.Load(writeCatalog(t, body)); err == nil {
			t.Errorf("expected an error for %q", body)
		}
	}
}

func TestReloadKeepsPreviousOnError(t *testing.T) {
	path := writeCatalog(t, showsYAML)
	c, err := catalog.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	var notified int
	c.OnChange(func([]model.ShowDefinition) { notified++ })

	if err := os.WriteFile(path, []byte("shows:\n  - id: only\n    name: Only\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(c.Shows()) != 1 || notified != 1 {
		t.Fatalf("shows = %d, notified = %d", len(c.Shows()), notified)
	}

	if err := os.WriteFile(path, []byte("shows: ["), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Reload(); err == nil {
		t.Fatal("expected a parse error")
	}
	if len(c.Shows()) != 1 || notified != 1 {
		t.Fatalf("failed reload replaced the catalog")
	}
}

func TestWatchPicksUpWrites(t *testing.T) {
	path := writeCatalog(t, showsYAML)
	c, err := catalog.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	changed := make(chan int, 4)
	c.OnChange(func(s []model.ShowDefinition) { changed <- len(s) })
	stop, err := c.Watch()
	if err != nil {
		t.Skipf("watcher unavailable: %v", err)
	}
	defer stop()

	if err := os.WriteFile(path, []byte("shows:\n  - id: only\n    name: Only\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	deadline := time.After(5 * time.Second)
	for {
		select {
		case n := <-changed:
			if n == 1 {
				return
			}
		case <-deadline:
			t.Fatal("no reload observed")
		}
	}
}

func TestNewStatic(t *testing.T) {
	c, err := catalog.New([]model.ShowDefinition{{ID: "x", Name: "X"}})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Watch(); err == nil {
		t.Error("a static catalog cannot be watched")
	}
	if id, ok := c.Resolve("X", model.Evening); !ok || id != "x" {
		t.Errorf("resolve = %q, %v", id, ok)
	}
}
