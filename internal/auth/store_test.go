package auth

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/desertthunder/soundbridge/internal/cache"
	"github.com/desertthunder/soundbridge/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKVStore(t *testing.T) {
	ctx := context.Background()

	bolt, err := cache.NewBolt(filepath.Join(t.TempDir(), "sessions.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { bolt.Close() })

	mr := miniredis.RunT(t)
	redis, err := cache.NewRedis(cache.RedisConfig{URL: "redis://" + mr.Addr()}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { redis.Close() })

	backends := map[string]cache.Backend{
		"Memory": cache.NewMemory(),
		"Bolt":   bolt,
		"Redis":  redis,
	}

	for name, backend := range backends {
		t.Run(name, func(t *testing.T) {
			store := NewKVStore(backend)

			cred, err := store.Get(ctx, "missing")
			require.NoError(t, err)
			assert.Nil(t, cred)

			want := &models.Credential{
				AccessToken:  "access",
				RefreshToken: "refresh",
				ExpiresAt:    time.Now().Add(time.Hour).UnixMilli(),
				Scope:        "user-read-private",
			}
			require.NoError(t, store.Set(ctx, "session-1", want, time.Hour))

			got, err := store.Get(ctx, "session-1")
			require.NoError(t, err)
			assert.Equal(t, want, got)

			require.NoError(t, store.Delete(ctx, "session-1"))
			got, err = store.Get(ctx, "session-1")
			require.NoError(t, err)
			assert.Nil(t, got)
		})
	}

	t.Run("Corrupt Record", func(t *testing.T) {
		mem := cache.NewMemory()
		require.NoError(t, mem.Set(ctx, sessionKey("bad"), "not json", 0))

		_, err := NewKVStore(mem).Get(ctx, "bad")
		assert.Error(t, err)
	})
}
