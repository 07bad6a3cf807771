package core

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheClient is the minimal redis surface used by the catalog cache and
// metrics counters. Narrowed so tests can swap in miniredis-backed clients.
type CacheClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

func isRedisNil(err error) bool {
	return errors.Is(err, redis.Nil)
}

// NewRedisClient returns a configured go-redis client from URL (e.g., redis://localhost:6379/0).
func NewRedisClient(redisURL string) (*redis.Client, error) {
	if redisURL == "" {
		return nil, errors.New("empty redis url")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return client, nil
}

// CatalogCache is a read-through cache for rendered catalog payloads. The
// movie list changes only via seeding, so a short TTL plus explicit
// invalidation on seed is enough.
type CatalogCache struct {
	client CacheClient
	ttl    time.Duration
}

// NewCatalogCache wraps a redis client with catalog cache helpers.
func NewCatalogCache(client CacheClient, ttl time.Duration) *CatalogCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CatalogCache{client: client, ttl: ttl}
}

// MovieListKey is the cache key for the rendered movie list payload.
const MovieListKey = "filmforge:cache:movies"

// Get returns the cached payload for key. A cache miss reports found=false
// with a nil error; errors are real redis failures.
func (c *CatalogCache) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, err
	}
	return val, true, nil
}

// Set stores payload under key with the configured TTL.
func (c *CatalogCache) Set(ctx context.Context, key, payload string) error {
	return c.client.Set(ctx, key, payload, c.ttl).Err()
}

// Invalidate drops the given keys.
func (c *CatalogCache) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}
