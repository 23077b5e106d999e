package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/soundbridge/internal/models"
	"github.com/desertthunder/soundbridge/internal/shared"
	"golang.org/x/oauth2"
)

const (
	SpotifyAuthURL  = "https://accounts.spotify.com/authorize"
	SpotifyTokenURL = "https://accounts.spotify.com/api/token"

	// DefaultRecordTTL bounds how long an unused credential record is kept.
	DefaultRecordTTL = 30 * 24 * time.Hour

	// fallbackLifetime applies when the provider omits expires_in.
	fallbackLifetime = time.Hour
)

// DefaultScopes are requested when the configuration lists none.
var DefaultScopes = []string{
	"user-read-private",
	"user-read-email",
	"user-library-read",
	"playlist-read-private",
	"playlist-read-collaborative",
}

// Options configures a [Manager] and its [AppToken].
type Options struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string

	// AuthURL and TokenURL default to Spotify's accounts service.
	AuthURL  string
	TokenURL string

	HTTPClient *http.Client
	Logger     *log.Logger
	RecordTTL  time.Duration
}

// OptionsFromConfig builds Options from the [credentials.spotify] config section.
func OptionsFromConfig(cfg shared.SpotifyConfig, client *http.Client, logger *log.Logger) Options {
	return Options{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Scopes:       cfg.Scopes,
		HTTPClient:   client,
		Logger:       logger,
	}
}

func (o Options) withDefaults() Options {
	if o.AuthURL == "" {
		o.AuthURL = SpotifyAuthURL
	}
	if o.TokenURL == "" {
		o.TokenURL = SpotifyTokenURL
	}
	if len(o.Scopes) == 0 {
		o.Scopes = DefaultScopes
	}
	if o.HTTPClient == nil {
		o.HTTPClient = shared.NewHTTPClient(shared.DefaultHTTPTimeout)
	}
	if o.RecordTTL <= 0 {
		o.RecordTTL = DefaultRecordTTL
	}
	return o
}

func (o Options) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     o.ClientID,
		ClientSecret: o.ClientSecret,
		RedirectURL:  o.RedirectURL,
		Scopes:       o.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   o.AuthURL,
			TokenURL:  o.TokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
}

// classify maps a token endpoint error onto the failure taxonomy.
//
// Only a response from the provider with a 4xx status means the grant is dead. 408 and 429 are throttling or
// timeouts and leave the grant intact.
func classify(err error) (result string, mapped error) {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.Response != nil && rejectsGrant(re.Response.StatusCode) {
		reason := re.ErrorCode
		if reason == "" {
			reason = re.Response.Status
		}
		return resultUnauthenticated, fmt.Errorf("%w: provider rejected grant: %s", shared.ErrUnauthenticated, reason)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return resultTransient, fmt.Errorf("%w: %w: %v", shared.ErrTransient, shared.ErrTimeout, err)
	}
	return resultTransient, fmt.Errorf("%w: token request failed: %v", shared.ErrTransient, err)
}

func rejectsGrant(status int) bool {
	switch status {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return false
	}
	return status >= 400 && status < 500
}

// credentialFrom converts a provider token into a record, keeping prev's refresh token and scope when the
// provider omits them.
func credentialFrom(tok *oauth2.Token, prev *models.Credential, now time.Time) *models.Credential {
	cred := &models.Credential{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
	}

	if tok.Expiry.IsZero() {
		cred.ExpiresAt = models.ExpiresAtFrom(now, fallbackLifetime)
	} else {
		cred.ExpiresAt = tok.Expiry.UnixMilli()
	}

	if scope, ok := tok.Extra("scope").(string); ok {
		cred.Scope = scope
	}

	if prev != nil {
		if cred.RefreshToken == "" {
			cred.RefreshToken = prev.RefreshToken
		}
		if cred.Scope == "" {
			cred.Scope = prev.Scope
		}
	}
	return cred
}
