// Package cache holds recently resolved videos for a fixed time-to-live.
package cache

import (
	"sync"
	"time"

	"tgvidbot/internal/model"
)

// DefaultTTL is how long a resolution stays valid.
const DefaultTTL = 5 * time.Minute

type entry struct {
	info       model.VideoInfo
	insertedAt time.Time
}

// Cache maps a source URL to its resolved VideoInfo. Entries past the TTL
// are evicted lazily on lookup; there is no background sweep. Values are
// copied in and out so callers may mutate what they get.
type Cache struct {
	mu         sync.Mutex
	ttl        time.Duration
	now        func() time.Time
	maxEntries int
	entries    map[string]entry
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock injects the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// WithMaxEntries bounds the cache; when full, the oldest insert is evicted.
// Zero leaves it unbounded.
func WithMaxEntries(n int) Option {
	return func(c *Cache) {
		c.maxEntries = n
	}
}

// New returns an empty cache. A non-positive ttl uses DefaultTTL.
func New(ttl time.Duration, opts ...Option) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{ttl: ttl, now: time.Now, entries: make(map[string]entry)}
	for _, o := range opts {
		o(c)
	}
	return c
}

// TTL returns the configured time-to-live.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Lookup returns a copy of the entry for url if it is younger than the TTL.
// An expired entry is removed and reported as a miss.
func (c *Cache) Lookup(url string) (model.VideoInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[url]
	if !ok {
		return model.VideoInfo{}, false
	}
	if c.now().Sub(e.insertedAt) >= c.ttl {
		delete(c.entries, url)
		return model.VideoInfo{}, false
	}
	return e.info.Clone(), true
}

// Store overwrites any entry for url and restarts its TTL.
func (c *Cache) Store(url string, info model.VideoInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[url]; !exists && c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		c.evictOldestLocked()
	}
	c.entries[url] = entry{info: info.Clone(), insertedAt: c.now()}
}

// Invalidate removes the entry for url.
func (c *Cache) Invalidate(url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, url)
}

// Clear removes every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) evictOldestLocked() {
	var oldestKey string
	var oldest time.Time
	first := true
	for k, e := range c.entries {
		if first || e.insertedAt.Before(oldest) {
			oldestKey, oldest, first = k, e.insertedAt, false
		}
	}
	if !first {
		delete(c.entries, oldestKey)
	}
}
