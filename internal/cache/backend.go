package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/soundbridge/internal/shared"
)

// Backend is a string key-value store with per-entry expiry.
//
// Implementations must be safe for concurrent use. A ttl of zero or less stores the entry without expiry.
type Backend interface {
	// Get returns the stored value and true, or false when the key is absent or expired.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores value under key for ttl.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the backend.
	Close() error
}

// Clearer is implemented by backends that can drop every key under a prefix.
type Clearer interface {
	Clear(ctx context.Context, prefix string) (int, error)
}

// Open builds the backend selected by cfg.Backend.
func Open(cfg shared.CacheConfig, logger *log.Logger) (Backend, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemory(), nil
	case "redis":
		return NewRedis(RedisConfig{URL: cfg.RedisURL}, logger)
	case "bolt":
		return NewBolt(shared.ExpandPath(cfg.BoltPath), logger)
	default:
		return nil, fmt.Errorf("%w: unknown cache backend %q", shared.ErrInvalidConfig, cfg.Backend)
	}
}
