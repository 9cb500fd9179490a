package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// MemoryCache is a size-bounded in-process cache with a single expiry for all entries.
type MemoryCache struct {
	lru *expirable.LRU[string, []byte]
}

// NewMemoryCache creates a cache holding at most maxItems entries for ttl each.
// maxItems <= 0 means unbounded, ttl <= 0 means entries never expire.
func NewMemoryCache(maxItems int, ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		lru: expirable.NewLRU[string, []byte](maxItems, nil, ttl),
	}
}

// Get returns the cached value for key
func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	value, ok := m.lru.Get(key)
	return value, ok, nil
}

// Set stores value. Entries share the cache-wide TTL, so ttl is ignored.
func (m *MemoryCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.lru.Add(key, value)
	return nil
}

// Delete removes key
func (m *MemoryCache) Delete(_ context.Context, key string) error {
	m.lru.Remove(key)
	return nil
}

// Purge removes every entry
func (m *MemoryCache) Purge(context.Context) error {
	m.lru.Purge()
	return nil
}

// Len returns the number of live entries
func (m *MemoryCache) Len() int {
	return m.lru.Len()
}
