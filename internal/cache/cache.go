// Package cache provides a small TTL'd LRU used for in-memory result caches.
// Entries expire passively on read; the LRU bound keeps memory flat.
package cache

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type entry[V any] struct {
	value    V
	storedAt time.Time
	ttl      time.Duration
}

// TTL is a bounded cache whose entries expire after a per-entry TTL.
type TTL[V any] struct {
	defaultTTL time.Duration
	mu         sync.RWMutex
	store      *lru.Cache[string, entry[V]]
}

// NewTTL creates a cache holding at most maxEntries values.
func NewTTL[V any](maxEntries int, defaultTTL time.Duration) *TTL[V] {
	store, _ := lru.New[string, entry[V]](maxEntries)
	return &TTL[V]{
		defaultTTL: defaultTTL,
		store:      store,
	}
}

// Get returns the cached value if present and not expired.
func (c *TTL[V]) Get(key string) (V, bool) {
	var zero V
	c.mu.RLock()
	e, ok := c.store.Get(key)
	c.mu.RUnlock()
	if !ok {
		return zero, false
	}
	if e.ttl > 0 && time.Since(e.storedAt) > e.ttl {
		c.mu.Lock()
		c.store.Remove(key)
		c.mu.Unlock()
		return zero, false
	}
	return e.value, true
}

// Set stores a value with the default TTL.
func (c *TTL[V]) Set(key string, value V) {
	c.SetWithTTL(key, value, c.defaultTTL)
}

// SetWithTTL stores a value with an explicit TTL. A zero TTL never expires
// (the LRU bound still applies).
func (c *TTL[V]) SetWithTTL(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	c.store.Add(key, entry[V]{value: value, storedAt: time.Now(), ttl: ttl})
	c.mu.Unlock()
}

// Delete removes a key.
func (c *TTL[V]) Delete(key string) {
	c.mu.Lock()
	c.store.Remove(key)
	c.mu.Unlock()
}
