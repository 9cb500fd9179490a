// Package cache provides the evaluation result cache: an in-process LRU, an optional
// Redis tier, and a tiered cache combining both.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// Cache stores opaque payloads by key.
// A zero ttl means the cache's default TTL.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Purge(ctx context.Context) error
}

// Stats tracks cache performance counters
type Stats struct {
	Hits        int64 `json:"hits"`
	Misses      int64 `json:"misses"`
	MemoryHits  int64 `json:"memory_hits"`
	RedisHits   int64 `json:"redis_hits"`
	RedisErrors int64 `json:"redis_errors"`
	MemoryItems int   `json:"memory_items"`
}

// HitRate returns the fraction of lookups served from cache
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Fingerprint derives a stable cache key from the JSON encoding of v.
func Fingerprint(namespace string, v interface{}) (string, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode cache key: %w", err)
	}
	hash := sha256.Sum256(append([]byte(namespace+"::"), payload...))
	return namespace + ":" + hex.EncodeToString(hash[:]), nil
}
