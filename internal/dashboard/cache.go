package dashboard

import (
	"sync"
	"time"
)

// Cache is the cache-aside contract the dashboard service runs against.
// Implementations are non-authoritative: losing an entry only costs a
// recompute from the task store.
type Cache interface {
	GetOrCompute(key string, ttl time.Duration, compute func() (any, error)) (any, error)
	Invalidate(keys ...string)
}

type cacheEntry struct {
	value     any
	expiresAt time.Time
}

// MemoryCache is an in-process TTL cache.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry

	now func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

func (c *MemoryCache) GetOrCompute(key string, ttl time.Duration, compute func() (any, error)) (any, error) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok && c.now().Before(e.expiresAt) {
		c.mu.Unlock()
		return e.value, nil
	}
	c.mu.Unlock()

	// Compute outside the lock; a concurrent duplicate compute is harmless
	// and cheaper than holding the lock across a store query.
	value, err := compute()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[key] = cacheEntry{value: value, expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()

	return value, nil
}

func (c *MemoryCache) Invalidate(keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, key := range keys {
		delete(c.entries, key)
	}
}
