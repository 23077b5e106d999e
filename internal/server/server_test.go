package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/soundbridge/internal/models"
	"github.com/desertthunder/soundbridge/internal/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuthorizer struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (f *fakeAuthorizer) Authorize(ctx context.Context, sessionKey, code string) (*models.Credential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, sessionKey+":"+code)
	if f.err != nil {
		return nil, f.err
	}
	return &models.Credential{AccessToken: "at-" + code, RefreshToken: "rt", ExpiresAt: time.Now().Add(time.Hour).UnixMilli()}, nil
}

func callback(t *testing.T, h http.Handler, query string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?"+query, nil))
	return rec
}

func TestOAuthHandler(t *testing.T) {
	t.Run("authorizes session", func(t *testing.T) {
		auth := &fakeAuthorizer{}
		h := NewOAuthHandler(auth, "sess-1", "xyz", "")

		rec := callback(t, h, "state=xyz&code=abc")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Signed in")

		result := <-h.Result()
		require.NoError(t, result.Error())
		assert.Equal(t, "at-abc", result.Credential.AccessToken)
		assert.Equal(t, []string{"sess-1:abc"}, auth.calls)
	})

	t.Run("state mismatch", func(t *testing.T) {
		auth := &fakeAuthorizer{}
		h := NewOAuthHandler(auth, "sess-1", "xyz", "/callback")

		rec := callback(t, h, "state=other&code=abc")
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		result := <-h.Result()
		assert.ErrorIs(t, result.Error(), shared.ErrInvalidInput)
		assert.Empty(t, auth.calls)
	})

	t.Run("provider denied", func(t *testing.T) {
		h := NewOAuthHandler(&fakeAuthorizer{}, "sess-1", "xyz", "")

		rec := callback(t, h, "state=xyz&error=access_denied")
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		result := <-h.Result()
		assert.ErrorIs(t, result.Error(), shared.ErrUnauthenticated)
		assert.Contains(t, result.Error().Error(), "access_denied")
	})

	t.Run("exchange failure", func(t *testing.T) {
		h := NewOAuthHandler(&fakeAuthorizer{err: shared.ErrTransient}, "sess-1", "xyz", "")

		rec := callback(t, h, "state=xyz&code=abc")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)

		result := <-h.Result()
		assert.ErrorIs(t, result.Error(), shared.ErrTransient)
	})

	t.Run("second callback rejected", func(t *testing.T) {
		auth := &fakeAuthorizer{}
		h := NewOAuthHandler(auth, "sess-1", "xyz", "")

		callback(t, h, "state=xyz&code=one")
		rec := callback(t, h, "state=xyz&code=two")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, []string{"sess-1:one"}, auth.calls)

		_, open := <-h.Result()
		assert.True(t, open)
		_, open = <-h.Result()
		assert.False(t, open, "channel closes after one result")
	})
}

func TestBasicRouter(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	r := NewBasicRouter()
	r.Use(mark("outer"), mark("inner"))
	r.Handle("get", "/ping", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, "pong")
	}))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, "pong", rec.Body.String())
	assert.Equal(t, []string{"outer", "inner"}, order)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ping", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestListenAndAwait(t *testing.T) {
	auth := &fakeAuthorizer{}
	h := NewOAuthHandler(auth, "sess-1", "xyz", "/cb")

	router := NewBasicRouter()
	router.Use(Logging(nil))
	router.Handler(h)

	srv, err := Listen("127.0.0.1:0", router, nil)
	require.NoError(t, err)
	t.Cleanup(func() { srv.Shutdown(context.Background()) })

	resp, err := http.Get("http://" + srv.Addr() + "/cb?state=xyz&code=live")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	result, err := Await(ctx, srv, h)
	require.NoError(t, err)
	require.NoError(t, result.Error())
	assert.Equal(t, "at-live", result.Credential.AccessToken)
}

func TestAwaitTimeout(t *testing.T) {
	h := NewOAuthHandler(&fakeAuthorizer{}, "sess-1", "xyz", "")
	srv, err := Listen("127.0.0.1:0", NewBasicRouter(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { srv.Shutdown(context.Background()) })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = Await(ctx, srv, h)
	assert.ErrorIs(t, err, shared.ErrTimeout)

	ctx, cancel = context.WithCancel(context.Background())
	cancel()
	_, err = Await(ctx, srv, h)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestListenPortInUse(t *testing.T) {
	srv, err := Listen("127.0.0.1:0", NewBasicRouter(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { srv.Shutdown(context.Background()) })

	_, err = Listen(srv.Addr(), NewBasicRouter(), nil)
	assert.Error(t, err)
}
