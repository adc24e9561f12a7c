package cache

import (
	"context"
	"errors"
	"fmt"
	"go-cms-app/internal/config"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "cms:"

// RedisCache stores entries in Redis, which expires them on its own.
type RedisCache struct {
	client *redis.Client
}

// NewRedis connects to the configured Redis server.
func NewRedis(cfg config.CacheConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis cache: %w", err)
	}
	return &RedisCache{client: client}, nil
}

// Get retrieves an item; a missing key is a miss, not an error.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get item from cache: %w", err)
	}
	return val, nil
}

// Set stores an item with the given TTL.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, redisKeyPrefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set item in cache: %w", err)
	}
	return nil
}

// Delete removes items from the cache.
func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = redisKeyPrefix + k
	}
	if err := c.client.Del(ctx, prefixed...).Err(); err != nil {
		return fmt.Errorf("failed to delete item from cache: %w", err)
	}
	return nil
}

// Purge is a no-op: Redis evicts expired keys itself.
func (c *RedisCache) Purge(ctx context.Context) (int64, error) {
	return 0, nil
}

// Close closes the client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
