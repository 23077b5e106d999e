package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/soundbridge/internal/shared"
	"github.com/tidwall/gjson"
)

// Failer is implemented by values that can describe an unsuccessful result without returning an error.
type Failer interface {
	Failed() bool
}

// Cache is a read-through cache over a [Backend].
type Cache struct {
	backend Backend
	logger  *log.Logger
}

// New creates a Cache. A nil backend selects [Memory].
func New(backend Backend, logger *log.Logger) *Cache {
	if backend == nil {
		backend = NewMemory()
	}
	return &Cache{backend: backend, logger: shared.WithLogger(logger, "component", "cache")}
}

// Backend returns the underlying store.
func (c *Cache) Backend() Backend { return c.backend }

// Clear drops every entry under prefix. Backends that cannot enumerate keys report [shared.ErrNotImplemented].
func (c *Cache) Clear(ctx context.Context, prefix string) (int, error) {
	clearer, ok := c.backend.(Clearer)
	if !ok {
		return 0, shared.ErrNotImplemented
	}
	return clearer.Clear(ctx, prefix)
}

// Close closes the backend.
func (c *Cache) Close() error { return c.backend.Close() }

// GetOrCompute returns the cached value for key, computing and storing it on a miss.
//
// fn is not called on a hit. Failed results are returned to the caller but never stored, and no backend error is
// ever surfaced. ttl <= 0 calls fn directly.
func GetOrCompute[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if c == nil || ttl <= 0 {
		return fn(ctx)
	}

	if v, ok := lookup[T](ctx, c, key); ok {
		cacheRequests.WithLabelValues(resultHit).Inc()
		return v, nil
	}
	cacheRequests.WithLabelValues(resultMiss).Inc()

	value, err := fn(ctx)
	if err != nil {
		return value, err
	}

	if f, ok := any(value).(Failer); ok && f.Failed() {
		return value, nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("failed to encode cache entry", "key", key, "error", err)
		return value, nil
	}
	if reportsFailure(data) {
		return value, nil
	}

	if err := c.backend.Set(ctx, key, string(data), ttl); err != nil {
		cacheRequests.WithLabelValues(resultError).Inc()
		c.logger.Warn("failed to write cache entry", "key", key, "error", err)
	}

	return value, nil
}

// lookup reads and decodes key. Any backend or decoding error counts as a miss.
func lookup[T any](ctx context.Context, c *Cache, key string) (T, bool) {
	var zero T

	raw, ok, err := c.backend.Get(ctx, key)
	if err != nil {
		cacheRequests.WithLabelValues(resultError).Inc()
		c.logger.Warn("failed to read cache entry", "key", key, "error", err)
		return zero, false
	}
	if !ok {
		return zero, false
	}

	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		c.logger.Warn("discarding undecodable cache entry", "key", key, "error", err)
		return zero, false
	}
	return v, true
}

// reportsFailure detects an encoded top-level "success": false.
func reportsFailure(data []byte) bool {
	success := gjson.GetBytes(data, "success")
	return success.Exists() && success.Type == gjson.False
}
