package memcache

import (
	"context"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"session-hub/app/cachekeys"
	"session-hub/app/port"
)

type entry struct {
	value     []byte
	expiresAt time.Time
}

func (e entry) expired() bool {
	return !e.expiresAt.IsZero() && time.Now().After(e.expiresAt)
}

// Cache is an in-process LRU cache. It is the default port.Cache
// implementation when no Redis address is configured.
type Cache struct {
	lru    *lru.Cache[cachekeys.Key, entry]
	logger *slog.Logger
}

// New creates an in-memory cache holding at most size entries.
func New(size int, logger *slog.Logger) (port.Cache, error) {
	backing, err := lru.New[cachekeys.Key, entry](size)
	if err != nil {
		return nil, err
	}
	return &Cache{
		lru:    backing,
		logger: logger.With("component", "memcache"),
	}, nil
}

func (c *Cache) Get(_ context.Context, key cachekeys.Key) ([]byte, bool) {
	e, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	if e.expired() {
		c.lru.Remove(key)
		return nil, false
	}
	return e.value, true
}

func (c *Cache) Set(_ context.Context, key cachekeys.Key, value []byte, ttl time.Duration) {
	e := entry{value: value}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	}
	c.lru.Add(key, e)
}

func (c *Cache) Invalidate(_ context.Context, key cachekeys.Key) {
	c.lru.Remove(key)
}

func (c *Cache) InvalidateMatching(_ context.Context, match func(cachekeys.Key) bool) {
	removed := 0
	for _, key := range c.lru.Keys() {
		if match(key) {
			c.lru.Remove(key)
			removed++
		}
	}
	c.logger.Debug("scoped invalidation completed", "removed", removed)
}

func (c *Cache) Clear(_ context.Context) {
	c.lru.Purge()
	c.logger.Debug("cache cleared")
}
