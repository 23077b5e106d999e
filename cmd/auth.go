package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/desertthunder/soundbridge/internal/formatter"
	"github.com/desertthunder/soundbridge/internal/server"
	"github.com/desertthunder/soundbridge/internal/shared"
	"github.com/urfave/cli/v3"
)

const loginTimeout = 2 * time.Minute

// AuthLogin runs the authorization-code flow through a local callback server and stores the new session key.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(ctx); err != nil {
		return err
	}
	if r.auth == nil {
		return fmt.Errorf("%w: no token manager configured", shared.ErrMissingConfig)
	}

	sessionKey := shared.GenerateID()
	state := shared.GenerateID()

	addr, path := r.callbackAddr()
	handler := server.NewOAuthHandler(r.auth, sessionKey, state, path)
	router := server.NewBasicRouter()
	router.Use(server.Logging(r.logger))
	router.Handler(handler)

	srv, err := server.Listen(addr, router, r.logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := srv.Shutdown(context.Background()); err != nil {
			r.logger.Warn("error shutting down callback server", "error", err)
		}
	}()

	authURL := r.auth.AuthCodeURL(state)
	r.writePlain("→ Opening browser for Spotify sign-in...\n")
	if cmd.Bool("no-browser") {
		r.writePlain("Open this URL in your browser:\n%s\n\n", authURL)
	} else if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warn("failed to open browser automatically", "error", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (%s timeout)...\n", loginTimeout)

	waitCtx, cancel := context.WithTimeout(ctx, loginTimeout)
	defer cancel()

	result, err := server.Await(waitCtx, srv, handler)
	if err != nil {
		return err
	}
	if result.Error() != nil {
		return fmt.Errorf("authorization failed: %w", result.Error())
	}

	if err := r.saveSessionKey(sessionKey); err != nil {
		return err
	}

	r.logger.Info("signed in", "session_file", r.sessionPath())
	r.writePlain("✓ Signed in\n")
	return r.writePlain("%s", formatter.RenderCredential(result.Credential, r.now()))
}

// callbackAddr derives the listen address and path from the configured redirect URI, falling back to the [server]
// section when the URI does not name a port.
func (r *Runner) callbackAddr() (addr, path string) {
	host, port := r.config.Server.Host, r.config.Server.Port
	path = "/callback"

	if u, err := url.Parse(r.config.Credentials.Spotify.RedirectURI); err == nil && u.Host != "" {
		if u.Path != "" {
			path = u.Path
		}
		if p := u.Port(); p != "" {
			if n, err := strconv.Atoi(p); err == nil {
				port = n
			}
		}
		if h := u.Hostname(); h != "" && host == "" {
			host = h
		}
	}
	return net.JoinHostPort(host, strconv.Itoa(port)), path
}

// AuthLogout deletes the stored credential and forgets the session key.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	key := r.sessionKey()
	if key == "" {
		return r.writePlain("Not signed in\n")
	}

	if err := r.connect(ctx); err != nil {
		return err
	}
	if r.auth != nil {
		if err := r.auth.Logout(ctx, key); err != nil {
			return err
		}
	}
	if err := r.clearSessionKey(); err != nil {
		return err
	}
	return r.writePlain("✓ Signed out\n")
}

// AuthStatus shows the stored credential for the current session and, when it is usable, the account profile.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(ctx); err != nil {
		return err
	}
	if r.auth == nil {
		return fmt.Errorf("%w: no token manager configured", shared.ErrMissingConfig)
	}

	key := r.sessionKey()
	cred, err := r.auth.Status(ctx, key)
	if err != nil {
		if errors.Is(err, shared.ErrUnauthenticated) {
			r.writePlain("✗ Not signed in. Run 'sbx auth login'.\n")
		}
		return err
	}

	if err := r.writePlain("%s", formatter.RenderCredential(cred, r.now())); err != nil {
		return err
	}

	profile, err := r.spotify.UserProfile(ctx, key)
	if err != nil {
		r.logger.Warn("failed to load profile", "error", err)
		return nil
	}
	return r.writePlain("\n%s", formatter.RenderProfile(profile))
}
