// Package cache provides a generic, thread-safe memo table with metrics.
//
// Entries are never evicted or invalidated: a Cache lives for exactly one
// transformation run and only grows.
package cache

import (
	"sync"
	"sync/atomic"
)

// Cache is a generic thread-safe memo table with built-in metrics.
type Cache[K comparable, V any] struct {
	mu    sync.RWMutex
	items map[K]V

	// Metrics (lock-free using atomics)
	hits   atomic.Uint64
	misses atomic.Uint64
	sets   atomic.Uint64
}

// New creates a new Cache. sizeHint pre-sizes the underlying map.
func New[K comparable, V any](sizeHint int) *Cache[K, V] {
	if sizeHint < 0 {
		sizeHint = 0
	}
	return &Cache[K, V]{
		items: make(map[K]V, sizeHint),
	}
}

// Get retrieves a value from the cache.
// Returns the value and true if found, zero value and false otherwise.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	v, ok := c.items[key]
	c.mu.RUnlock()

	if !ok {
		c.misses.Add(1)
		var zero V
		return zero, false
	}

	c.hits.Add(1)
	return v, true
}

// Peek is Get without touching the hit/miss counters.
func (c *Cache[K, V]) Peek(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.items[key]
	return v, ok
}

// Set stores a value. The first Set for a key wins: later calls for the same
// key are ignored and report false.
func (c *Cache[K, V]) Set(key K, value V) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.items[key]; ok {
		return false
	}
	c.items[key] = value
	c.sets.Add(1)
	return true
}

// Len returns the current number of items in the cache.
func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Stats holds cache statistics.
type Stats struct {
	Size    int
	Hits    uint64
	Misses  uint64
	Sets    uint64
	HitRate float64
}

// Stats returns cache statistics.
func (c *Cache[K, V]) Stats() Stats {
	size := c.Len()

	hits := c.hits.Load()
	misses := c.misses.Load()
	total := hits + misses

	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return Stats{
		Size:    size,
		Hits:    hits,
		Misses:  misses,
		Sets:    c.sets.Load(),
		HitRate: hitRate,
	}
}
