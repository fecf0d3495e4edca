package cache

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	// DefaultMaxEntries bounds a cache when no capacity is configured.
	DefaultMaxEntries = 1000

	// DefaultTTL is the absolute lifetime of an entry from insertion.
	DefaultTTL = 15 * time.Minute
)

// Stats reports cumulative cache counters since the last Clear.
type Stats struct {
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	Evictions int64   `json:"evictions"`
	Size      int     `json:"size"`
	HitRate   float64 `json:"hit_rate"`
}

// entry is one cached value with its insertion timestamp.
type entry[V any] struct {
	value     V
	createdAt time.Time
	hitCount  int
}

// Options configure a single cache instance.
type Options struct {
	MaxEntries int           // <= 0 defaults to DefaultMaxEntries
	TTL        time.Duration // <= 0 defaults to DefaultTTL
}

// Cache is a bounded LRU cache with per-entry absolute TTL and statistics.
// Safe for concurrent use.
type Cache[V any] struct {
	mu         sync.Mutex
	lru        *lru.Cache[string, *entry[V]]
	maxEntries int
	ttl        time.Duration
	enabled    bool

	hits      int64
	misses    int64
	evictions int64
}

// New creates a cache with the given options.
func New[V any](opts Options) *Cache[V] {
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = DefaultMaxEntries
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}

	inner, err := lru.New[string, *entry[V]](opts.MaxEntries)
	if err != nil {
		// Only reachable with a non-positive size, which is guarded above.
		inner, _ = lru.New[string, *entry[V]](DefaultMaxEntries)
	}

	return &Cache[V]{
		lru:        inner,
		maxEntries: opts.MaxEntries,
		ttl:        opts.TTL,
		enabled:    true,
	}
}

// Get returns the cached value for key. An expired entry is lazily deleted
// and reported as a miss. A hit bumps the entry's recency.
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.enabled {
		return zero, false
	}

	e, ok := c.lru.Get(key)
	if !ok {
		c.misses++
		return zero, false
	}

	if time.Since(e.createdAt) > c.ttl {
		c.lru.Remove(key)
		c.evictions++
		c.misses++
		return zero, false
	}

	e.hitCount++
	c.hits++
	return e.value, true
}

// Has reports whether key holds a live entry. It lazily deletes expired
// entries but does not bump recency or touch hit/miss counters.
func (c *Cache[V]) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.enabled {
		return false
	}

	e, ok := c.lru.Peek(key)
	if !ok {
		return false
	}

	if time.Since(e.createdAt) > c.ttl {
		c.lru.Remove(key)
		c.evictions++
		return false
	}

	return true
}

// Set stores value under key. Inserting past capacity evicts the
// least-recently-used entry.
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.enabled {
		return
	}

	if c.lru.Len() >= c.maxEntries && !c.lru.Contains(key) {
		c.evictions++
	}

	c.lru.Add(key, &entry[V]{value: value, createdAt: time.Now()})
}

// Delete removes key, reporting whether it was present.
func (c *Cache[V]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Remove(key)
}

// Clear drops every entry and resets statistics.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.purgeLocked()
}

func (c *Cache[V]) purgeLocked() {
	c.lru.Purge()
	c.hits = 0
	c.misses = 0
	c.evictions = 0
}

// Cleanup eagerly sweeps expired entries, returning how many were removed.
func (c *Cache[V]) Cleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.enabled {
		return 0
	}

	removed := 0
	for _, key := range c.lru.Keys() {
		e, ok := c.lru.Peek(key)
		if !ok {
			continue
		}
		if time.Since(e.createdAt) > c.ttl {
			c.lru.Remove(key)
			removed++
		}
	}

	c.evictions += int64(removed)
	return removed
}

// SetEnabled toggles the cache. Disabling is destructive: all entries are
// cleared immediately and lookups and inserts become no-ops.
func (c *Cache[V]) SetEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.enabled && !enabled {
		c.purgeLocked()
	}
	c.enabled = enabled
}

// Enabled reports whether the cache accepts lookups and inserts.
func (c *Cache[V]) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// GetStats returns cumulative counters since the last Clear. HitRate is 0
// when no lookups have occurred.
func (c *Cache[V]) GetStats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Size:      c.lru.Len(),
	}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total)
	}
	return s
}
