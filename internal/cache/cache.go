// Package cache provides a read-through Redis cache for catalog entities.
// Bookings and showtime admission never go through the cache; it only
// serves movie and theater reads, which change rarely.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"ms-moviebooking/internal/logger"
)

const defaultTTL = 10 * time.Minute

type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logger.Logger
}

// New returns a cache backed by client. A nil client yields a disabled
// cache whose operations are no-ops.
func New(client *redis.Client, log *logger.Logger) *Cache {
	return &Cache{
		client: client,
		ttl:    defaultTTL,
		logger: log,
	}
}

func (c *Cache) Enabled() bool {
	return c != nil && c.client != nil
}

// Get unmarshals the cached value for key into dest. The boolean result
// reports whether the key was present.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !c.Enabled() {
		return false, nil
	}
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(val), dest); err != nil {
		return false, fmt.Errorf("cache decode %s: %w", key, err)
	}
	if c.logger != nil {
		c.logger.LogCache("HIT", key, "served from cache")
	}
	return true, nil
}

// Set stores v under key with the configured TTL.
func (c *Cache) Set(ctx context.Context, key string, v interface{}) error {
	if !c.Enabled() {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

// Invalidate removes the given keys. Missing keys are not an error.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) error {
	if !c.Enabled() || len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache invalidate: %w", err)
	}
	if c.logger != nil {
		c.logger.LogCache("INVALIDATE", fmt.Sprintf("%v", keys), "removed from cache")
	}
	return nil
}

// MovieKey builds the cache key for a single movie.
func MovieKey(id int64) string { return fmt.Sprintf("movie:%d", id) }

// TheaterKey builds the cache key for a single theater.
func TheaterKey(id int64) string { return fmt.Sprintf("theater:%d", id) }
