package cache

import (
	"context"
	"fmt"
	"go-cms-app/internal/config"
	"time"
)

// Cache stores rendered content for a limited time.
// Get returns nil without error on a miss.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Purge(ctx context.Context) (int64, error)
	Close() error
}

// New creates the cache backend selected by the configuration.
func New(cfg config.CacheConfig) (Cache, error) {
	switch cfg.Driver {
	case "", "sqlite":
		return NewSQLite(cfg.FilePath)
	case "redis":
		return NewRedis(cfg)
	default:
		return nil, fmt.Errorf("unsupported cache driver %q", cfg.Driver)
	}
}
