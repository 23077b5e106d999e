package auth

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/desertthunder/soundbridge/internal/models"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// AppToken is the process-wide client-credentials token used for anonymous catalog calls.
type AppToken struct {
	mu     sync.Mutex
	config *clientcredentials.Config
	client *http.Client
	token  *oauth2.Token
	now    func() time.Time
}

// NewAppToken creates an AppToken. No request is made until [AppToken.Token] is called.
func NewAppToken(opts Options) *AppToken {
	opts = opts.withDefaults()
	return &AppToken{
		config: &clientcredentials.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			TokenURL:     opts.TokenURL,
			AuthStyle:    oauth2.AuthStyleInHeader,
		},
		client: opts.HTTPClient,
		now:    time.Now,
	}
}

// Token returns the cached app token or fetches a new one when it is within [models.RefreshMargin] of expiry.
//
// Concurrent callers wait on one fetch.
func (a *AppToken) Token(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.token != nil && a.token.Expiry.Sub(a.now()) > models.RefreshMargin {
		return a.token.AccessToken, nil
	}

	tok, err := a.config.Token(context.WithValue(ctx, oauth2.HTTPClient, a.client))
	if err != nil {
		result, mapped := classify(err)
		tokenRefreshes.WithLabelValues(kindApp, result).Inc()
		return "", mapped
	}
	if tok.Expiry.IsZero() {
		tok.Expiry = a.now().Add(fallbackLifetime)
	}

	tokenRefreshes.WithLabelValues(kindApp, resultSuccess).Inc()
	a.token = tok
	return tok.AccessToken, nil
}
