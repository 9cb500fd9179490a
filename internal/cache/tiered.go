package cache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// TieredCache checks memory first and Redis second, back-filling memory on a Redis hit.
// Redis failures are logged and treated as misses so an outage never fails a request.
type TieredCache struct {
	memory *MemoryCache
	redis  Cache
	logger *logrus.Logger

	hits        int64
	misses      int64
	memoryHits  int64
	redisHits   int64
	redisErrors int64
}

// NewTieredCache creates a tiered cache. redis may be nil for a memory-only cache.
func NewTieredCache(memory *MemoryCache, redis Cache, logger *logrus.Logger) *TieredCache {
	return &TieredCache{
		memory: memory,
		redis:  redis,
		logger: logger,
	}
}

// Get looks key up in each tier in turn
func (t *TieredCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if value, ok, _ := t.memory.Get(ctx, key); ok {
		atomic.AddInt64(&t.hits, 1)
		atomic.AddInt64(&t.memoryHits, 1)
		return value, true, nil
	}

	if t.redis != nil {
		value, ok, err := t.redis.Get(ctx, key)
		if err != nil {
			t.redisFailed(err, "get")
		} else if ok {
			atomic.AddInt64(&t.hits, 1)
			atomic.AddInt64(&t.redisHits, 1)
			_ = t.memory.Set(ctx, key, value, 0)
			return value, true, nil
		}
	}

	atomic.AddInt64(&t.misses, 1)
	return nil, false, nil
}

// Set writes to every tier
func (t *TieredCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_ = t.memory.Set(ctx, key, value, ttl)
	if t.redis != nil {
		if err := t.redis.Set(ctx, key, value, ttl); err != nil {
			t.redisFailed(err, "set")
		}
	}
	return nil
}

// Delete removes key from every tier
func (t *TieredCache) Delete(ctx context.Context, key string) error {
	_ = t.memory.Delete(ctx, key)
	if t.redis != nil {
		if err := t.redis.Delete(ctx, key); err != nil {
			t.redisFailed(err, "delete")
		}
	}
	return nil
}

// Purge empties every tier
func (t *TieredCache) Purge(ctx context.Context) error {
	_ = t.memory.Purge(ctx)
	if t.redis != nil {
		if err := t.redis.Purge(ctx); err != nil {
			t.redisFailed(err, "purge")
		}
	}
	return nil
}

// Stats returns a snapshot of the cache counters
func (t *TieredCache) Stats() Stats {
	return Stats{
		Hits:        atomic.LoadInt64(&t.hits),
		Misses:      atomic.LoadInt64(&t.misses),
		MemoryHits:  atomic.LoadInt64(&t.memoryHits),
		RedisHits:   atomic.LoadInt64(&t.redisHits),
		RedisErrors: atomic.LoadInt64(&t.redisErrors),
		MemoryItems: t.memory.Len(),
	}
}

func (t *TieredCache) redisFailed(err error, op string) {
	atomic.AddInt64(&t.redisErrors, 1)
	if t.logger != nil {
		t.logger.WithError(err).WithField("operation", op).Warn("Redis cache unavailable, continuing without it")
	}
}
