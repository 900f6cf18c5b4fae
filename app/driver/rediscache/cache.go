package rediscache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"session-hub/app/cachekeys"
	"session-hub/app/config"
	"session-hub/app/port"
)

// keyPrefix namespaces our entries inside a shared Redis instance.
const keyPrefix = "session-hub:"

const scanBatchSize = 200

// Cache is a Redis-backed port.Cache for deployments where multiple
// instances must observe the same invalidations.
type Cache struct {
	client *redis.Client
	logger *slog.Logger
}

// New connects to Redis and verifies the connection.
func New(cfg *config.Config, logger *slog.Logger) (port.Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	logger.Info("redis cache connected", "addr", cfg.RedisAddr)

	return &Cache{
		client: client,
		logger: logger.With("component", "rediscache"),
	}, nil
}

func (c *Cache) Get(ctx context.Context, key cachekeys.Key) ([]byte, bool) {
	value, err := c.client.Get(ctx, storageKey(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("redis get failed", "key", key, "error", err)
		}
		return nil, false
	}
	return value, true
}

func (c *Cache) Set(ctx context.Context, key cachekeys.Key, value []byte, ttl time.Duration) {
	if err := c.client.Set(ctx, storageKey(key), value, ttl).Err(); err != nil {
		c.logger.Warn("redis set failed", "key", key, "error", err)
	}
}

func (c *Cache) Invalidate(ctx context.Context, key cachekeys.Key) {
	if err := c.client.Del(ctx, storageKey(key)).Err(); err != nil {
		c.logger.Warn("redis delete failed", "key", key, "error", err)
	}
}

func (c *Cache) InvalidateMatching(ctx context.Context, match func(cachekeys.Key) bool) {
	removed := 0
	err := c.scan(ctx, func(raw string) error {
		if !match(cacheKey(raw)) {
			return nil
		}
		if err := c.client.Del(ctx, raw).Err(); err != nil {
			return err
		}
		removed++
		return nil
	})
	if err != nil {
		c.logger.Warn("scoped invalidation incomplete", "removed", removed, "error", err)
		return
	}
	c.logger.Debug("scoped invalidation completed", "removed", removed)
}

func (c *Cache) Clear(ctx context.Context) {
	err := c.scan(ctx, func(raw string) error {
		return c.client.Del(ctx, raw).Err()
	})
	if err != nil {
		c.logger.Warn("cache clear incomplete", "error", err)
		return
	}
	c.logger.Debug("cache cleared")
}

// scan walks all of our keys with SCAN and invokes fn for each. Only keys
// under our prefix are visited, so other tenants of the instance are safe.
func (c *Cache) scan(ctx context.Context, fn func(raw string) error) error {
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, keyPrefix+"*", scanBatchSize).Result()
		if err != nil {
			return err
		}
		for _, raw := range keys {
			if err := fn(raw); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Close releases the underlying connection pool.
func (c *Cache) Close() error {
	return c.client.Close()
}

func storageKey(key cachekeys.Key) string {
	return keyPrefix + string(key)
}

func cacheKey(raw string) cachekeys.Key {
	return cachekeys.Key(strings.TrimPrefix(raw, keyPrefix))
}
