package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/desertthunder/soundbridge/internal/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// backendContract exercises behavior every Backend must share.
func backendContract(t *testing.T, b Backend) {
	ctx := context.Background()

	t.Run("Missing Key", func(t *testing.T) {
		_, ok, err := b.Get(ctx, "sbx:missing:")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Set Get Delete", func(t *testing.T) {
		require.NoError(t, b.Set(ctx, "sbx:track:id=1", `{"id":"1"}`, time.Minute))

		v, ok, err := b.Get(ctx, "sbx:track:id=1")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, `{"id":"1"}`, v)

		require.NoError(t, b.Delete(ctx, "sbx:track:id=1"))
		_, ok, err = b.Get(ctx, "sbx:track:id=1")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Delete Missing", func(t *testing.T) {
		assert.NoError(t, b.Delete(ctx, "sbx:nothing:"))
	})

	t.Run("Overwrite", func(t *testing.T) {
		require.NoError(t, b.Set(ctx, "sbx:k:", "1", time.Minute))
		require.NoError(t, b.Set(ctx, "sbx:k:", "2", 0))
		v, ok, err := b.Get(ctx, "sbx:k:")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "2", v)
	})

	t.Run("Clear Prefix", func(t *testing.T) {
		clearer, ok := b.(Clearer)
		require.True(t, ok)

		require.NoError(t, b.Set(ctx, "sbx:search:q=a", "1", time.Minute))
		require.NoError(t, b.Set(ctx, "sbx:search:q=b", "1", time.Minute))
		require.NoError(t, b.Set(ctx, "sbx:album:id=1", "1", time.Minute))

		n, err := clearer.Clear(ctx, "sbx:search:")
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		_, ok, err = b.Get(ctx, "sbx:album:id=1")
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestMemory(t *testing.T) {
	backendContract(t, NewMemory())
}

func TestRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	r, err := NewRedis(RedisConfig{URL: "redis://" + mr.Addr()}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })

	backendContract(t, r)

	t.Run("Expiry", func(t *testing.T) {
		ctx := context.Background()
		require.NoError(t, r.Set(ctx, "sbx:ttl:", "v", time.Minute))
		assert.True(t, mr.TTL("sbx:ttl:") > 0)

		mr.FastForward(2 * time.Minute)
		_, ok, err := r.Get(ctx, "sbx:ttl:")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Invalid URL", func(t *testing.T) {
		_, err := NewRedis(RedisConfig{URL: "not a url"}, nil)
		assert.ErrorIs(t, err, shared.ErrInvalidConfig)
	})

	t.Run("Unreachable Server", func(t *testing.T) {
		down := miniredis.RunT(t)
		addr := down.Addr()
		down.Close()

		_, err := NewRedis(RedisConfig{URL: "redis://" + addr, DialTimeout: 500 * time.Millisecond}, nil)
		assert.Error(t, err)
	})
}

func TestBolt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cache.db")

	b, err := NewBolt(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })

	backendContract(t, b)

	t.Run("Expiry", func(t *testing.T) {
		ctx := context.Background()
		now := time.Now()
		b.now = func() time.Time { return now }
		t.Cleanup(func() { b.now = time.Now })

		require.NoError(t, b.Set(ctx, "sbx:ttl:", "v", time.Minute))
		now = now.Add(time.Minute)

		_, ok, err := b.Get(ctx, "sbx:ttl:")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Eviction Keeps Rewritten Entry", func(t *testing.T) {
		ctx := context.Background()
		now := time.Now()
		b.now = func() time.Time { return now }
		t.Cleanup(func() { b.now = time.Now })

		require.NoError(t, b.Set(ctx, "sbx:session:k=s1", "old", time.Minute))
		now = now.Add(2 * time.Minute)

		// A write lands between the expired read and the delete.
		require.NoError(t, b.Set(ctx, "sbx:session:k=s1", "fresh", time.Minute))
		require.NoError(t, b.evict("sbx:session:k=s1"))

		v, ok, err := b.Get(ctx, "sbx:session:k=s1")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "fresh", v)
	})

	t.Run("Eviction Removes Expired Entry", func(t *testing.T) {
		ctx := context.Background()
		now := time.Now()
		b.now = func() time.Time { return now }
		t.Cleanup(func() { b.now = time.Now })

		require.NoError(t, b.Set(ctx, "sbx:evict:", "v", time.Minute))
		now = now.Add(2 * time.Minute)
		require.NoError(t, b.evict("sbx:evict:"))

		b.now = time.Now
		_, ok, err := b.Get(ctx, "sbx:evict:")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Persists Across Reopen", func(t *testing.T) {
		ctx := context.Background()
		reopenPath := filepath.Join(t.TempDir(), "cache.db")

		first, err := NewBolt(reopenPath, nil)
		require.NoError(t, err)
		require.NoError(t, first.Set(ctx, "sbx:k:", "kept", 0))
		require.NoError(t, first.Close())

		second, err := NewBolt(reopenPath, nil)
		require.NoError(t, err)
		defer second.Close()

		v, ok, err := second.Get(ctx, "sbx:k:")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "kept", v)
	})
}

func TestOpen(t *testing.T) {
	t.Run("Memory Default", func(t *testing.T) {
		b, err := Open(shared.CacheConfig{}, nil)
		require.NoError(t, err)
		assert.IsType(t, &Memory{}, b)
	})

	t.Run("Bolt", func(t *testing.T) {
		b, err := Open(shared.CacheConfig{Backend: "bolt", BoltPath: filepath.Join(t.TempDir(), "c.db")}, nil)
		require.NoError(t, err)
		defer b.Close()
		assert.IsType(t, &Bolt{}, b)
	})

	t.Run("Redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		b, err := Open(shared.CacheConfig{Backend: "redis", RedisURL: "redis://" + mr.Addr()}, nil)
		require.NoError(t, err)
		defer b.Close()
		assert.IsType(t, &Redis{}, b)
	})

	t.Run("Unknown", func(t *testing.T) {
		_, err := Open(shared.CacheConfig{Backend: "memcached"}, nil)
		assert.ErrorIs(t, err, shared.ErrInvalidConfig)
	})
}
