// Package cache keeps hot read paths off PostgreSQL. Redis is optional: a
// nil client degrades every call to a miss so the API works without it.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hifarrer/NuSong-sub002/internal/infra"
)

const trendingKey = "gallery:trending:v1"

// TrendingCache stores the serialized public gallery listing.
type TrendingCache struct {
	client *redis.Client
	ttl    time.Duration
	logger infra.Logger
}

// NewTrendingCache wraps an optional redis client. ttl bounds staleness of
// the gallery between play events.
func NewTrendingCache(client *redis.Client, ttl time.Duration, logger infra.Logger) *TrendingCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &TrendingCache{client: client, ttl: ttl, logger: logger}
}

// Get unmarshals the cached listing into dest. ok is false on a miss, a
// disabled cache, or a redis error; errors never surface to callers because
// the database is always the fallback.
func (c *TrendingCache) Get(ctx context.Context, dest any) bool {
	if c.client == nil {
		return false
	}
	raw, err := c.client.Get(ctx, trendingKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn().Err(err).Msg("cache: trending read failed")
		}
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		c.logger.Warn().Err(err).Msg("cache: trending payload corrupt")
		return false
	}
	return true
}

// Set stores the listing with the configured TTL. Failures are logged and
// swallowed.
func (c *TrendingCache) Set(ctx context.Context, value any) {
	if c.client == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn().Err(err).Msg("cache: trending marshal failed")
		return
	}
	if err := c.client.Set(ctx, trendingKey, raw, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("cache: trending write failed")
	}
}

// Invalidate drops the cached listing, used after a play event lands.
func (c *TrendingCache) Invalidate(ctx context.Context) {
	if c.client == nil {
		return
	}
	if err := c.client.Del(ctx, trendingKey).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("cache: trending invalidate failed")
	}
}

// NewRedisClient dials redis when an address is configured, otherwise
// returns nil and the cache stays disabled.
func NewRedisClient(addr, password string) *redis.Client {
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: addr, Password: password})
}
