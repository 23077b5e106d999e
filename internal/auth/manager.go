package auth

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/soundbridge/internal/models"
	"github.com/desertthunder/soundbridge/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

// Manager hands out valid access tokens per session and owns every write to the [CredentialStore].
type Manager struct {
	oauth     *oauth2.Config
	store     CredentialStore
	app       *AppToken
	client    *http.Client
	recordTTL time.Duration
	flights   singleflight.Group
	now       func() time.Time
	logger    *log.Logger
}

// NewManager creates a Manager backed by store.
func NewManager(opts Options, store CredentialStore) *Manager {
	opts = opts.withDefaults()
	return &Manager{
		oauth:     opts.oauthConfig(),
		store:     store,
		app:       NewAppToken(opts),
		client:    opts.HTTPClient,
		recordTTL: opts.RecordTTL,
		now:       time.Now,
		logger:    shared.WithLogger(opts.Logger, "component", "auth"),
	}
}

// App returns the process-wide client-credentials token.
func (m *Manager) App() *AppToken { return m.app }

func (m *Manager) providerContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, m.client)
}

// AccessToken returns a token valid for at least [models.RefreshMargin] for sessionKey.
//
// An empty sessionKey returns the app-level token. A session without a record yields [shared.ErrUnauthenticated].
func (m *Manager) AccessToken(ctx context.Context, sessionKey string) (string, error) {
	if sessionKey == "" {
		return m.app.Token(ctx)
	}

	cred, err := m.store.Get(ctx, sessionKey)
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrTransient, err)
	}
	if cred == nil {
		return "", shared.ErrUnauthenticated
	}
	if cred.Usable(m.now()) {
		return cred.AccessToken, nil
	}

	// The flight outlives any single waiter so a cancelled caller cannot abort a refresh others are waiting on.
	ch := m.flights.DoChan(sessionKey, func() (any, error) {
		return m.refresh(context.WithoutCancel(ctx), sessionKey)
	})

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %v", shared.ErrTransient, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// refresh runs inside a flight for sessionKey.
func (m *Manager) refresh(ctx context.Context, sessionKey string) (string, error) {
	logger := m.logger.With("session", shortKey(sessionKey))

	cred, err := m.store.Get(ctx, sessionKey)
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrTransient, err)
	}
	if cred == nil {
		return "", shared.ErrUnauthenticated
	}
	if cred.Usable(m.now()) {
		return cred.AccessToken, nil
	}

	if cred.RefreshToken == "" {
		m.drop(ctx, sessionKey, logger)
		tokenRefreshes.WithLabelValues(kindUser, resultUnauthenticated).Inc()
		return "", fmt.Errorf("%w: no refresh token", shared.ErrUnauthenticated)
	}

	src := m.oauth.TokenSource(m.providerContext(ctx), &oauth2.Token{RefreshToken: cred.RefreshToken})
	tok, err := src.Token()
	if err != nil {
		result, mapped := classify(err)
		tokenRefreshes.WithLabelValues(kindUser, result).Inc()
		if result == resultUnauthenticated {
			m.drop(ctx, sessionKey, logger)
		}
		logger.Warn("token refresh failed", "result", result, "error", err)
		return "", mapped
	}

	next := credentialFrom(tok, cred, m.now())
	if err := m.store.Set(ctx, sessionKey, next, m.recordTTL); err != nil {
		tokenRefreshes.WithLabelValues(kindUser, resultTransient).Inc()
		logger.Error("failed to persist refreshed credential", "error", err)
		return "", fmt.Errorf("%w: failed to persist refreshed credential: %v", shared.ErrTransient, err)
	}

	tokenRefreshes.WithLabelValues(kindUser, resultSuccess).Inc()
	logger.Debug("token refreshed", "expires_at", next.Expiry())
	return next.AccessToken, nil
}

func (m *Manager) drop(ctx context.Context, sessionKey string, logger *log.Logger) {
	if err := m.store.Delete(ctx, sessionKey); err != nil {
		logger.Error("failed to delete rejected credential", "error", err)
	}
}

// AuthCodeURL returns the provider URL a user visits to grant access.
func (m *Manager) AuthCodeURL(state string) string {
	return m.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Authorize exchanges an authorization code and stores the resulting record under sessionKey.
func (m *Manager) Authorize(ctx context.Context, sessionKey, code string) (*models.Credential, error) {
	if sessionKey == "" {
		return nil, fmt.Errorf("%w: session key", shared.ErrMissingArgument)
	}
	if code == "" {
		return nil, fmt.Errorf("%w: authorization code", shared.ErrMissingArgument)
	}

	tok, err := m.oauth.Exchange(m.providerContext(ctx), code)
	if err != nil {
		result, mapped := classify(err)
		tokenRefreshes.WithLabelValues(kindAuthorize, result).Inc()
		return nil, mapped
	}

	cred := credentialFrom(tok, nil, m.now())
	if err := m.store.Set(ctx, sessionKey, cred, m.recordTTL); err != nil {
		return nil, fmt.Errorf("failed to store credential: %w", err)
	}

	tokenRefreshes.WithLabelValues(kindAuthorize, resultSuccess).Inc()
	m.logger.Info("session authorized", "session", shortKey(sessionKey), "scope", cred.Scope)
	return cred, nil
}

// Status returns the stored record for sessionKey or [shared.ErrUnauthenticated].
func (m *Manager) Status(ctx context.Context, sessionKey string) (*models.Credential, error) {
	if sessionKey == "" {
		return nil, shared.ErrUnauthenticated
	}
	cred, err := m.store.Get(ctx, sessionKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrTransient, err)
	}
	if cred == nil {
		return nil, shared.ErrUnauthenticated
	}
	return cred, nil
}

// Logout destroys the record for sessionKey.
func (m *Manager) Logout(ctx context.Context, sessionKey string) error {
	if sessionKey == "" {
		return nil
	}
	if err := m.store.Delete(ctx, sessionKey); err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}
	m.logger.Info("session logged out", "session", shortKey(sessionKey))
	return nil
}

// shortKey keeps session keys out of logs in full.
func shortKey(key string) string {
	if len(key) <= 8 {
		return key
	}
	return key[:8]
}
