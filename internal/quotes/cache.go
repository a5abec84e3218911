package quotes

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"gold-pulse/internal/domain"

	"github.com/redis/go-redis/v9"
)

// SeriesCache stores the last known-good series per request key. Set
// replaces the entry wholesale.
type SeriesCache interface {
	Get(ctx context.Context, key string) (domain.TimeSeries, bool, error)
	Set(ctx context.Context, key string, series domain.TimeSeries) error
}

// MemoryCache is the in-process SeriesCache.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]domain.TimeSeries
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]domain.TimeSeries)}
}

func (c *MemoryCache) Get(_ context.Context, key string) (domain.TimeSeries, bool, error) {
	c.mu.RLock()
	s, ok := c.entries[key]
	c.mu.RUnlock()
	return s, ok, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, series domain.TimeSeries) error {
	series.Points = append([]domain.PricePoint(nil), series.Points...)
	c.mu.Lock()
	c.entries[key] = series
	c.mu.Unlock()
	return nil
}

type RedisClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

const (
	redisKeyPrefix = "series:"
	// DefaultRedisTTL keeps a fallback around long enough to ride out a
	// provider outage without serving week-old prices.
	DefaultRedisTTL = 24 * time.Hour
)

// RedisCache persists last known-good series as JSON so a restart does not
// lose the fallback. A single SET replaces the value atomically.
type RedisCache struct {
	client RedisClient
	ttl    time.Duration
}

// NewRedisCache stores entries under ttl, DefaultRedisTTL when ttl <= 0.
func NewRedisCache(client RedisClient, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultRedisTTL
	}
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, key string) (domain.TimeSeries, bool, error) {
	data, err := c.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.TimeSeries{}, false, nil
	}
	if err != nil {
		return domain.TimeSeries{}, false, err
	}
	var s domain.TimeSeries
	if err := json.Unmarshal(data, &s); err != nil {
		return domain.TimeSeries{}, false, err
	}
	return s, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, series domain.TimeSeries) error {
	data, err := json.Marshal(series)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, redisKeyPrefix+key, data, c.ttl).Err()
}

// LayeredCache reads the in-process cache first and falls through to a
// shared store, warming the local copy on a hit. Writes go to both.
type LayeredCache struct {
	local  SeriesCache
	shared SeriesCache
}

func NewLayeredCache(local, shared SeriesCache) *LayeredCache {
	return &LayeredCache{local: local, shared: shared}
}

func (c *LayeredCache) Get(ctx context.Context, key string) (domain.TimeSeries, bool, error) {
	if s, ok, _ := c.local.Get(ctx, key); ok {
		return s, true, nil
	}
	s, ok, err := c.shared.Get(ctx, key)
	if err != nil || !ok {
		return domain.TimeSeries{}, false, err
	}
	_ = c.local.Set(ctx, key, s)
	return s, true, nil
}

func (c *LayeredCache) Set(ctx context.Context, key string, series domain.TimeSeries) error {
	_ = c.local.Set(ctx, key, series)
	return c.shared.Set(ctx, key, series)
}
