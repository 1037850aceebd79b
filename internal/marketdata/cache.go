package marketdata

import (
	"sync"
	"time"

	"github.com/treumlabs/signalforge/internal/core"
)

// DefaultCacheTTL is how long a cached snapshot stays fresh.
const DefaultCacheTTL = 5 * time.Minute

type cacheEntry struct {
	snap    *core.MarketSnapshot
	expires time.Time
}

// Cache is a TTL cache of market snapshots keyed by symbol.
// Writes replace the whole entry, so a refresh is idempotent.
type Cache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]cacheEntry
}

// NewCache creates a snapshot cache. A non-positive ttl falls back to
// DefaultCacheTTL.
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

// Get returns the cached snapshot for symbol if it is still fresh.
func (c *Cache) Get(symbol string) (*core.MarketSnapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[symbol]
	if !ok || time.Now().After(e.expires) {
		return nil, false
	}
	return e.snap, true
}

// Put stores a snapshot with a fresh TTL.
func (c *Cache) Put(symbol string, snap *core.MarketSnapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[symbol] = cacheEntry{
		snap:    snap,
		expires: time.Now().Add(c.ttl),
	}
}

// Purge drops every expired entry. Callers may run it periodically;
// Get already ignores stale entries on its own.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for k, e := range c.entries {
		if now.After(e.expires) {
			delete(c.entries, k)
		}
	}
}

// Len returns the number of entries including expired ones.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
