package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"orderagent/internal/menu"
)

const DefaultCacheKey = "orderagent:menu:entries"

// kv is the subset of redis.Cmdable the cache needs.
type kv interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// RedisCache keeps a JSON copy of the catalog in Redis so replicas share one
// snapshot per interval instead of each hitting the catalog store. Redis
// failures fall through to the wrapped source.
type RedisCache struct {
	inner  menu.Source
	rdb    kv
	key    string
	ttl    time.Duration
	logger *slog.Logger
}

func NewRedisCache(inner menu.Source, rdb kv, ttl time.Duration, logger *slog.Logger) *RedisCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisCache{
		inner:  inner,
		rdb:    rdb,
		key:    DefaultCacheKey,
		ttl:    ttl,
		logger: logger,
	}
}

func (c *RedisCache) ListMenuEntries(ctx context.Context) ([]menu.Entry, error) {
	val, err := c.rdb.Get(ctx, c.key).Result()
	switch {
	case err == nil:
		var entries []menu.Entry
		if err := json.Unmarshal([]byte(val), &entries); err == nil {
			return entries, nil
		}
		c.logger.Warn("discarding corrupt menu cache", "key", c.key)
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("menu cache read failed", "err", err)
	}

	entries, err := c.inner.ListMenuEntries(ctx)
	if err != nil {
		return nil, err
	}

	b, err := json.Marshal(entries)
	if err != nil {
		return entries, nil
	}
	if err := c.rdb.Set(ctx, c.key, b, c.ttl).Err(); err != nil {
		c.logger.Warn("menu cache write failed", "err", err)
	}

	return entries, nil
}
