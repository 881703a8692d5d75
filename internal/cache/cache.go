// Package cache is a trivial in-memory TTL memoizer, used to avoid
// recomputing site statistics on every request.
package cache

import (
	"sync"
	"time"
)

type item struct {
	value   any
	expires time.Time
}

// TTL caches values by key for a fixed duration. Zero duration means
// entries never expire.
type TTL struct {
	ttl time.Duration
	now func() time.Time

	mu    sync.Mutex
	items map[string]item
}

func New(ttl time.Duration) *TTL {
	return &TTL{ttl: ttl, now: time.Now, items: make(map[string]item)}
}

// Get returns the cached value for key, if present and not expired.
func (c *TTL) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	it, ok := c.items[key]
	if !ok {
		return nil, false
	}
	if !it.expires.IsZero() && !c.now().Before(it.expires) {
		delete(c.items, key)
		return nil, false
	}
	return it.value, true
}

// Set stores value under key for the cache's TTL.
func (c *TTL) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var exp time.Time
	if c.ttl > 0 {
		exp = c.now().Add(c.ttl)
	}
	c.items[key] = item{value: value, expires: exp}
}

// Delete removes key from the cache.
func (c *TTL) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// Clear removes all entries.
func (c *TTL) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]item)
}
