package cache

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/vitaliisemenov/zqlz/internal/schema"
)

// L1Cache is the in-process hot tier: a size-bounded LRU (eviction handled
// by hashicorp/golang-lru) with a TTL stamp checked on read, so an entry
// can go stale before it's ever evicted for space.
type L1Cache struct {
	mu      sync.Mutex
	lru     *lru.Cache[string, *cacheEntry]
	ttl     time.Duration
	maxSize int64
	evicted int64 // entries the LRU dropped for capacity, not staleness
}

type cacheEntry struct {
	value     *schema.TableInfo
	expiresAt time.Time
}

// NewL1Cache creates a new L1 cache bounded to maxEntries, each entry
// considered stale ttl after it was written.
func NewL1Cache(maxEntries int64, ttl time.Duration) *L1Cache {
	c := &L1Cache{ttl: ttl, maxSize: maxEntries}

	size := int(maxEntries)
	if size <= 0 {
		size = 1
	}
	inner, err := lru.New[string, *cacheEntry](size)
	if err != nil {
		// Only returned for a non-positive size, which we've already guarded.
		panic(err)
	}
	c.lru = inner
	return c
}

// Get retrieves a value from cache. An entry past its TTL is removed and
// reported as a miss.
func (c *L1Cache) Get(key string) (*schema.TableInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		c.lru.Remove(key)
		return nil, false
	}
	return entry.value, true
}

// Set stores a value in cache, refreshing its TTL.
func (c *L1Cache) Set(key string, value *schema.TableInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lru.Add(key, &cacheEntry{value: value, expiresAt: time.Now().Add(c.ttl)}) {
		c.evicted++
	}
}

// Delete removes a key from cache.
func (c *L1Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Remove(key)
}

// Clear removes all entries from cache.
func (c *L1Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
}

// Stats returns cache statistics.
func (c *L1Cache) Stats() map[string]interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()

	expired := 0
	now := time.Now()
	for _, key := range c.lru.Keys() {
		if entry, ok := c.lru.Peek(key); ok && now.After(entry.expiresAt) {
			expired++
		}
	}

	entries := c.lru.Len()
	return map[string]interface{}{
		"entries":          entries,
		"max_entries":      c.maxSize,
		"expired":          expired,
		"capacity_evicted": c.evicted,
		"utilization":      float64(entries) / float64(c.maxSize) * 100,
	}
}
