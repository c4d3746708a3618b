package youtube

import (
	"testing"

	"github.com/ronled86/ClipPilot/internal/model"
)

func TestCacheEvictsOldest(t *testing.T) {
	c := NewCache(2)
	c.Add(model.SearchResult{ID: "a", Title: "A"}, model.SearchResult{ID: "b", Title: "B"})

	// Lookups must not protect an entry from eviction.
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a missing")
	}
	c.Add(model.SearchResult{ID: "c", Title: "C"})

	if _, ok := c.Get("a"); ok {
		t.Error("a should have been evicted")
	}
	if _, ok := c.Get("b"); !ok {
		t.Error("b evicted too early")
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
}

func TestCacheReAddReplaces(t *testing.T) {
	c := NewCache(2)
	c.Add(model.SearchResult{ID: "a", Title: "old"}, model.SearchResult{ID: "b"})
	c.Add(model.SearchResult{ID: "a", Title: "new"})
	c.Add(model.SearchResult{ID: "c"})

	got, ok := c.Get("a")
	if !ok || got.Title != "new" {
		t.Errorf("Get(a) = %+v, %v, want refreshed entry", got, ok)
	}
	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted after a was refreshed")
	}
}

func TestCacheSkipsEmptyID(t *testing.T) {
	c := NewCache(0)
	c.Add(model.SearchResult{Title: "no id"})
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0", c.Len())
	}
}
