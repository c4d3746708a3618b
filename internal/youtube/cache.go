package youtube

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ronled86/ClipPilot/internal/model"
)

// Cache is the bounded result cache keyed by video ID. Lookups use Peek,
// so eviction is by insertion order; re-adding an ID refreshes it.
type Cache struct {
	lru *lru.Cache[string, model.SearchResult]
}

// NewCache returns a cache holding at most size results.
func NewCache(size int) *Cache {
	if size <= 0 {
		size = 500
	}
	c, err := lru.New[string, model.SearchResult](size)
	if err != nil {
		// Only returned for a non-positive size, excluded above.
		panic(err)
	}
	return &Cache{lru: c}
}

// Add stores results, replacing any entry with the same ID.
func (c *Cache) Add(results ...model.SearchResult) {
	for _, r := range results {
		if r.ID == "" {
			continue
		}
		c.lru.Add(r.ID, r)
	}
}

// Get returns the cached result for id.
func (c *Cache) Get(id string) (model.SearchResult, bool) {
	return c.lru.Peek(id)
}

// Len reports the number of cached results.
func (c *Cache) Len() int { return c.lru.Len() }
