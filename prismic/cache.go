package prismic

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/redis/go-redis/v9"
)

// Cache stores raw response bodies keyed by request URL. Keys include the
// ref, so publishing new content naturally misses the old entries.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
}

// MemoryCache is a bounded in-process cache; cost is the body size in bytes.
type MemoryCache struct {
	c *ristretto.Cache[string, []byte]
}

// NewMemoryCache creates a MemoryCache holding up to maxBytes of bodies.
func NewMemoryCache(maxBytes int64) (*MemoryCache, error) {
	c, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: 1e5,
		MaxCost:     maxBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &MemoryCache{c: c}, nil
}

func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	return m.c.Get(key)
}

func (m *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	m.c.SetWithTTL(key, value, int64(len(value)), ttl)
}

// Wait blocks until buffered writes are applied. Mostly useful in tests.
func (m *MemoryCache) Wait() {
	m.c.Wait()
}

// Close releases the cache's background goroutines.
func (m *MemoryCache) Close() {
	m.c.Close()
}

// RedisCache shares responses between instances through Redis.
// Errors are treated as misses; the repository stays the source of truth.
type RedisCache struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisCache wraps rdb; every key is stored under prefix.
func NewRedisCache(rdb *redis.Client, prefix string) *RedisCache {
	return &RedisCache{rdb: rdb, prefix: prefix}
}

func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	data, err := r.rdb.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		return nil, false
	}
	return data, true
}

func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	_ = r.rdb.Set(ctx, r.prefix+key, value, ttl).Err()
}
