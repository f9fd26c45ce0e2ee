package catalog

import (
	"sync"
	"time"
)

// Cache holds one reference data set. Lookups by id are constant time and
// All preserves first-insertion order. Mutation outside a reload is
// append-only: Upsert never removes or reorders entries.
type Cache[T Identifiable] struct {
	mu       sync.RWMutex
	items    []T
	index    map[string]int
	loadedAt time.Time
}

// NewCache creates an empty cache.
func NewCache[T Identifiable]() *Cache[T] {
	return &Cache[T]{index: make(map[string]int)}
}

// Replace swaps the whole snapshot after a fetch. Duplicate ids keep the
// first occurrence.
func (c *Cache[T]) Replace(items []T, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make([]T, 0, len(items))
	c.index = make(map[string]int, len(items))
	for _, item := range items {
		key := item.GetID()
		if key == "" {
			continue
		}
		if _, dup := c.index[key]; dup {
			continue
		}
		c.index[key] = len(c.items)
		c.items = append(c.items, item)
	}
	c.loadedAt = at
}

// Upsert appends item if its id is new and reports whether it was added.
// An existing id is left untouched, so repeated calls are idempotent.
func (c *Cache[T]) Upsert(item T) bool {
	key := item.GetID()
	if key == "" {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.index[key]; ok {
		return false
	}
	c.index[key] = len(c.items)
	c.items = append(c.items, item)
	return true
}

// Get returns the entry with the given id.
func (c *Cache[T]) Get(key string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	i, ok := c.index[key]
	if !ok {
		var zero T
		return zero, false
	}
	return c.items[i], true
}

// All returns a copy of every entry.
func (c *Cache[T]) All() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

// Len returns the number of entries.
func (c *Cache[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// LoadedAt returns when the snapshot was last replaced; zero if never.
func (c *Cache[T]) LoadedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loadedAt
}

// Fresh reports whether the snapshot was loaded within ttl of now.
func (c *Cache[T]) Fresh(now time.Time, ttl time.Duration) bool {
	at := c.LoadedAt()
	return !at.IsZero() && now.Sub(at) < ttl
}

// Expire marks the snapshot stale without dropping entries.
func (c *Cache[T]) Expire() {
	c.mu.Lock()
	c.loadedAt = time.Time{}
	c.mu.Unlock()
}
