package quotes

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"gold-pulse/internal/domain"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRedis struct {
	data   map[string][]byte
	ttls   map[string]time.Duration
	getErr error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: make(map[string][]byte), ttls: make(map[string]time.Duration)}
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	switch v := value.(type) {
	case []byte:
		f.data[key] = append([]byte(nil), v...)
	case string:
		f.data[key] = []byte(v)
	default:
		b, _ := json.Marshal(v)
		f.data[key] = b
	}
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	if v, ok := f.data[key]; ok {
		return redis.NewStringResult(string(v), nil)
	}
	return redis.NewStringResult("", redis.Nil)
}

func TestMemoryCacheCopiesPoints(t *testing.T) {
	c := NewMemoryCache()
	s := makeSeries(domain.SourceCoinGecko, 8, 2300)
	require.NoError(t, c.Set(context.Background(), "k", s))

	s.Points[0].Close = -1
	got, ok, err := c.Get(context.Background(), "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2300.0, got.Points[0].Close)
}

func TestRedisCacheRoundTrip(t *testing.T) {
	fr := newFakeRedis()
	c := NewRedisCache(fr, 0)
	s := makeSeries(domain.SourceYahoo, 8, 2300)

	require.NoError(t, c.Set(context.Background(), "1W|GC=F,pax-gold", s))
	assert.Equal(t, DefaultRedisTTL, fr.ttls["series:1W|GC=F,pax-gold"])

	got, ok, err := c.Get(context.Background(), "1W|GC=F,pax-gold")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, s.Source, got.Source)
	assert.Equal(t, s.Len(), got.Len())
	assert.True(t, s.Points[3].Timestamp.Equal(got.Points[3].Timestamp))

	_, ok, err = c.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLayeredCacheWarmsLocal(t *testing.T) {
	fr := newFakeRedis()
	shared := NewRedisCache(fr, time.Hour)
	local := NewMemoryCache()
	require.NoError(t, shared.Set(context.Background(), "k", makeSeries(domain.SourceCoinGecko, 8, 2300)))

	c := NewLayeredCache(local, shared)
	_, ok, err := c.Get(context.Background(), "k")
	require.NoError(t, err)
	require.True(t, ok)

	fr.getErr = errors.New("redis down")
	got, ok, err := c.Get(context.Background(), "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 8, got.Len())
}
