// Package cache provides a Redis-backed cache for per-user task lists, used
// in a cache-aside pattern by the task service.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache wraps a Redis client with key prefixing, a default TTL, and
// hit/miss counters.
type Cache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	stats  Stats
}

// Stats tracks cache counters.
type Stats struct {
	Hits          uint64 `json:"hits"`
	Misses        uint64 `json:"misses"`
	Sets          uint64 `json:"sets"`
	Invalidations uint64 `json:"invalidations"`
	Errors        uint64 `json:"errors"`
}

func New(client *redis.Client, prefix string, ttl time.Duration) *Cache {
	return &Cache{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

// Get retrieves a value from the cache into dest. The boolean reports a
// cache hit.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			atomic.AddUint64(&c.stats.Misses, 1)
			return false, nil
		}
		atomic.AddUint64(&c.stats.Errors, 1)
		return false, fmt.Errorf("cache get error: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		atomic.AddUint64(&c.stats.Errors, 1)
		return false, fmt.Errorf("cache unmarshal error: %w", err)
	}

	atomic.AddUint64(&c.stats.Hits, 1)
	return true, nil
}

// Set stores a value in the cache with the default TTL.
func (c *Cache) Set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		atomic.AddUint64(&c.stats.Errors, 1)
		return fmt.Errorf("cache marshal error: %w", err)
	}

	if err := c.client.Set(ctx, c.prefix+key, data, c.ttl).Err(); err != nil {
		atomic.AddUint64(&c.stats.Errors, 1)
		return fmt.Errorf("cache set error: %w", err)
	}

	atomic.AddUint64(&c.stats.Sets, 1)
	return nil
}

// InvalidateAll removes every key under the cache prefix. Used after any
// successful mutation: correctness by recompute rather than patching.
func (c *Cache) InvalidateAll(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		atomic.AddUint64(&c.stats.Errors, 1)
		return fmt.Errorf("cache scan error: %w", err)
	}

	if len(keys) > 0 {
		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			atomic.AddUint64(&c.stats.Errors, 1)
			return fmt.Errorf("cache invalidate error: %w", err)
		}
	}

	atomic.AddUint64(&c.stats.Invalidations, 1)
	return nil
}

// Snapshot returns a copy of the current counters.
func (c *Cache) Snapshot() Stats {
	return Stats{
		Hits:          atomic.LoadUint64(&c.stats.Hits),
		Misses:        atomic.LoadUint64(&c.stats.Misses),
		Sets:          atomic.LoadUint64(&c.stats.Sets),
		Invalidations: atomic.LoadUint64(&c.stats.Invalidations),
		Errors:        atomic.LoadUint64(&c.stats.Errors),
	}
}
