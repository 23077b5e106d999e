package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type album struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type envelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type lookupResult struct {
	Items []string `json:"items"`
	bad   bool
}

func (r lookupResult) Failed() bool { return r.bad }

type failingBackend struct {
	getErr error
	setErr error
	sets   int
}

func (f *failingBackend) Get(context.Context, string) (string, bool, error) { return "", false, f.getErr }
func (f *failingBackend) Set(context.Context, string, string, time.Duration) error {
	f.sets++
	return f.setErr
}
func (f *failingBackend) Delete(context.Context, string) error { return nil }
func (f *failingBackend) Close() error                         { return nil }

func counting[T any](calls *int, v T, err error) func(context.Context) (T, error) {
	return func(context.Context) (T, error) {
		*calls++
		return v, err
	}
}

func TestGetOrCompute(t *testing.T) {
	ctx := context.Background()

	t.Run("Hit Skips Compute", func(t *testing.T) {
		c := New(NewMemory(), nil)
		calls := 0
		fn := counting(&calls, album{ID: "a1", Name: "Blue"}, nil)

		first, err := GetOrCompute(ctx, c, Key("album", "id", "a1"), TTLAlbum, fn)
		require.NoError(t, err)
		second, err := GetOrCompute(ctx, c, Key("album", "id", "a1"), TTLAlbum, fn)
		require.NoError(t, err)

		assert.Equal(t, 1, calls)
		assert.Equal(t, first, second)
		assert.Equal(t, "Blue", second.Name)
	})

	t.Run("Hit And Miss Counters", func(t *testing.T) {
		hits := testutil.ToFloat64(cacheRequests.WithLabelValues(resultHit))
		misses := testutil.ToFloat64(cacheRequests.WithLabelValues(resultMiss))

		c := New(NewMemory(), nil)
		calls := 0
		fn := counting(&calls, album{ID: "a2"}, nil)
		_, _ = GetOrCompute(ctx, c, "k", time.Minute, fn)
		_, _ = GetOrCompute(ctx, c, "k", time.Minute, fn)

		assert.Equal(t, hits+1, testutil.ToFloat64(cacheRequests.WithLabelValues(resultHit)))
		assert.Equal(t, misses+1, testutil.ToFloat64(cacheRequests.WithLabelValues(resultMiss)))
	})

	t.Run("Errors Are Not Stored", func(t *testing.T) {
		mem := NewMemory()
		c := New(mem, nil)
		calls := 0
		boom := errors.New("upstream down")

		_, err := GetOrCompute(ctx, c, "k", time.Minute, counting(&calls, album{}, boom))
		require.ErrorIs(t, err, boom)
		assert.Equal(t, 0, mem.Len())

		_, err = GetOrCompute(ctx, c, "k", time.Minute, counting(&calls, album{ID: "ok"}, nil))
		require.NoError(t, err)
		assert.Equal(t, 2, calls)
	})

	t.Run("Success False Is Not Stored", func(t *testing.T) {
		mem := NewMemory()
		c := New(mem, nil)
		calls := 0
		fn := counting(&calls, envelope{Success: false, Error: "rate limited"}, nil)

		v, err := GetOrCompute(ctx, c, "k", time.Minute, fn)
		require.NoError(t, err)
		assert.Equal(t, "rate limited", v.Error)

		_, _ = GetOrCompute(ctx, c, "k", time.Minute, fn)
		assert.Equal(t, 2, calls)
		assert.Equal(t, 0, mem.Len())
	})

	t.Run("Success True Is Stored", func(t *testing.T) {
		mem := NewMemory()
		c := New(mem, nil)
		calls := 0
		fn := counting(&calls, envelope{Success: true}, nil)

		_, _ = GetOrCompute(ctx, c, "k", time.Minute, fn)
		_, _ = GetOrCompute(ctx, c, "k", time.Minute, fn)
		assert.Equal(t, 1, calls)
	})

	t.Run("Failer Is Not Stored", func(t *testing.T) {
		mem := NewMemory()
		c := New(mem, nil)
		calls := 0

		_, err := GetOrCompute(ctx, c, "k", time.Minute, counting(&calls, lookupResult{bad: true}, nil))
		require.NoError(t, err)
		assert.Equal(t, 0, mem.Len())
	})

	t.Run("Zero TTL Bypasses", func(t *testing.T) {
		mem := NewMemory()
		c := New(mem, nil)
		calls := 0
		fn := counting(&calls, album{ID: "saved"}, nil)

		_, _ = GetOrCompute(ctx, c, "k", TTLSavedTracks, fn)
		_, _ = GetOrCompute(ctx, c, "k", TTLSavedTracks, fn)
		assert.Equal(t, 2, calls)
		assert.Equal(t, 0, mem.Len())
	})

	t.Run("Nil Cache Computes", func(t *testing.T) {
		calls := 0
		v, err := GetOrCompute[album](ctx, nil, "k", time.Minute, counting(&calls, album{ID: "x"}, nil))
		require.NoError(t, err)
		assert.Equal(t, "x", v.ID)
	})

	t.Run("Backend Errors Are Swallowed", func(t *testing.T) {
		backend := &failingBackend{getErr: errors.New("read failed"), setErr: errors.New("write failed")}
		c := New(backend, nil)
		calls := 0

		v, err := GetOrCompute(ctx, c, "k", time.Minute, counting(&calls, album{ID: "x"}, nil))
		require.NoError(t, err)
		assert.Equal(t, "x", v.ID)
		assert.Equal(t, 1, backend.sets)
	})

	t.Run("Undecodable Entry Is A Miss", func(t *testing.T) {
		mem := NewMemory()
		require.NoError(t, mem.Set(ctx, "k", "{not json", time.Minute))
		c := New(mem, nil)
		calls := 0

		v, err := GetOrCompute(ctx, c, "k", time.Minute, counting(&calls, album{ID: "fresh"}, nil))
		require.NoError(t, err)
		assert.Equal(t, "fresh", v.ID)
		assert.Equal(t, 1, calls)
	})

	t.Run("Expired Entry Recomputes", func(t *testing.T) {
		mem := NewMemory()
		now := time.Now()
		mem.now = func() time.Time { return now }
		c := New(mem, nil)
		calls := 0
		fn := counting(&calls, album{ID: "x"}, nil)

		_, _ = GetOrCompute(ctx, c, "k", time.Minute, fn)
		now = now.Add(2 * time.Minute)
		_, _ = GetOrCompute(ctx, c, "k", time.Minute, fn)
		assert.Equal(t, 2, calls)
	})
}

func TestKey(t *testing.T) {
	t.Run("Sorted Params", func(t *testing.T) {
		a := Key("search", "q", "love", "limit", "20")
		b := Key("search", "limit", "20", "q", "love")
		assert.Equal(t, a, b)
		assert.Equal(t, "sbx:search:limit=20&q=love", a)
	})

	t.Run("No Params", func(t *testing.T) {
		assert.Equal(t, "sbx:categories:", Key("categories"))
	})

	t.Run("Dangling Name Ignored", func(t *testing.T) {
		assert.Equal(t, "sbx:track:id=1", Key("track", "id", "1", "market"))
	})

	t.Run("Text", func(t *testing.T) {
		assert.Equal(t, "hello world", Text("  Hello \t World "))
	})

	t.Run("OpPrefix", func(t *testing.T) {
		assert.Equal(t, "sbx:search:", OpPrefix("search"))
		assert.Equal(t, "sbx:", OpPrefix(""))
	})
}

func TestCacheClear(t *testing.T) {
	ctx := context.Background()

	t.Run("Memory", func(t *testing.T) {
		c := New(NewMemory(), nil)
		require.NoError(t, c.Backend().Set(ctx, Key("search", "q", "a"), "1", time.Minute))
		require.NoError(t, c.Backend().Set(ctx, Key("track", "id", "1"), "1", time.Minute))

		n, err := c.Clear(ctx, OpPrefix("search"))
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		_, ok, _ := c.Backend().Get(ctx, Key("track", "id", "1"))
		assert.True(t, ok)
	})

	t.Run("Unsupported Backend", func(t *testing.T) {
		c := New(&failingBackend{}, nil)
		_, err := c.Clear(ctx, KeyPrefix)
		assert.Error(t, err)
	})
}
