package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/soundbridge/internal/cache"
	"github.com/desertthunder/soundbridge/internal/media"
	"github.com/desertthunder/soundbridge/internal/services"
	"github.com/desertthunder/soundbridge/internal/shared"
	tu "github.com/desertthunder/soundbridge/internal/testing"
)

const (
	trackJSON = `{"id":"t1","name":"Bohemian Rhapsody","duration_ms":354000,"popularity":90,
		"artists":[{"id":"a1","name":"Queen"}],"album":{"id":"al1","name":"A Night at the Opera","images":[]}}`
	shortTrackJSON = `{"id":"t2","name":"Interlude","duration_ms":60000,"popularity":10,
		"artists":[{"id":"a1","name":"Queen"}],"album":{"id":"al1","name":"A Night at the Opera","images":[]}}`
)

func catalogServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"tracks":{"items":[` + trackJSON + `],"total":1,"limit":50,"offset":0},
			"artists":{"items":[{"id":"a1","name":"Queen","popularity":85,"followers":{"total":100},"genres":["rock"],"images":[]}],"total":1,"limit":50,"offset":0},
			"albums":{"items":[],"total":0,"limit":50,"offset":0},
			"playlists":{"items":[],"total":0,"limit":50,"offset":0}
		}`))
	})
	mux.HandleFunc("/tracks/t1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(trackJSON))
	})
	mux.HandleFunc("/playlists/p1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"p1","name":"Road Trip","description":"","owner":{"id":"u1","display_name":"someone"},"tracks":{"total":2},"images":[]}`))
	})
	mux.HandleFunc("/playlists/p1/tracks", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items":[{"track":` + trackJSON + `},{"track":` + shortTrackJSON + `}],"total":2,"limit":50,"offset":0,"next":null}`))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"status":404,"message":"Non existing id"}}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

type testEnv struct {
	runner *Runner
	output *bytes.Buffer
	ytdlp  *tu.FakeYtdlp
	dir    string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dir := t.TempDir()
	srv := catalogServer(t)

	config := shared.DefaultConfig()
	config.Session.Path = filepath.Join(dir, "session")
	config.Media.OutputDir = filepath.Join(dir, "downloads")
	config.Database.Path = filepath.Join(dir, "sbx.db")

	c := cache.New(cache.NewMemory(), nil)
	spotify, err := services.NewSpotifyService(&tu.StaticTokens{AppToken: "app"}, services.SpotifyOptions{
		BaseURL: srv.URL,
		Cache:   c,
		Market:  "US",
	})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}

	ytdlp := &tu.FakeYtdlp{Default: tu.NDJSON(tu.Candidate("abc", "Queen - Bohemian Rhapsody", "Queen Official", 355))}
	resolver := media.NewResolver(media.Options{Runner: ytdlp, Ledger: &tu.MemoryLedger{}})

	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{
		Config:   config,
		Output:   output,
		Cache:    c,
		Spotify:  spotify,
		Resolver: resolver,
	})

	return &testEnv{runner: runner, output: output, ytdlp: ytdlp, dir: dir}
}

func (e *testEnv) run(t *testing.T, args ...string) error {
	t.Helper()
	argv := append([]string{"sbx", "--config", filepath.Join(e.dir, "missing.toml")}, args...)
	return newApp(e.runner).Run(context.Background(), argv)
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}

			runner := NewRunner(RunnerOpts{
				Config:     config,
				Logger:     logger,
				Output:     output,
				HTTPClient: httpClient,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Config: nil})
			if runner.config == nil {
				t.Error("expected default config to be set")
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Logger: nil})
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: nil})
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("with configPath sets field", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{ConfigPath: "/test/path/config.toml"})
			if runner.configPath != "/test/path/config.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if result := output.String(); result != expected {
				t.Errorf("expected %q, got %q", expected, result)
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(make(chan int), false)
			if err == nil || !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if result := output.String(); result != "hello world" {
				t.Errorf("expected 'hello world', got %q", result)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		seen := map[string]bool{}
		for i, cmd := range commands {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			if seen[cmd.Name] {
				t.Errorf("duplicate command %s", cmd.Name)
			}
			seen[cmd.Name] = true
		}

		for _, name := range []string{"auth", "search", "artist", "album", "track", "playlist", "browse", "saved", "fetch", "fetch-playlist", "fetch-album", "cache", "setup"} {
			if !seen[name] {
				t.Errorf("expected command %s to be registered", name)
			}
		}
	})

	t.Run("session", func(t *testing.T) {
		config := shared.DefaultConfig()
		config.Session.Path = filepath.Join(t.TempDir(), "nested", "session")
		runner := NewRunner(RunnerOpts{Config: config, Output: &bytes.Buffer{}})

		if key := runner.sessionKey(); key != "" {
			t.Errorf("expected anonymous session, got %q", key)
		}
		if err := runner.saveSessionKey("abc-123"); err != nil {
			t.Fatalf("failed to save session: %v", err)
		}
		if key := runner.sessionKey(); key != "abc-123" {
			t.Errorf("expected saved key, got %q", key)
		}

		info, err := os.Stat(config.Session.Path)
		if err != nil {
			t.Fatalf("expected session file: %v", err)
		}
		if info.Mode().Perm() != 0600 {
			t.Errorf("expected 0600 session file, got %v", info.Mode().Perm())
		}

		if err := runner.clearSessionKey(); err != nil {
			t.Fatalf("failed to clear session: %v", err)
		}
		if err := runner.clearSessionKey(); err != nil {
			t.Errorf("clearing twice should not fail: %v", err)
		}
		if key := runner.sessionKey(); key != "" {
			t.Errorf("expected cleared session, got %q", key)
		}
	})

	t.Run("callbackAddr", func(t *testing.T) {
		config := shared.DefaultConfig()
		config.Server.Host = "127.0.0.1"
		config.Server.Port = 3000
		config.Credentials.Spotify.RedirectURI = "http://127.0.0.1:8888/auth/done"
		runner := NewRunner(RunnerOpts{Config: config})

		addr, path := runner.callbackAddr()
		if addr != "127.0.0.1:8888" {
			t.Errorf("expected port from redirect URI, got %s", addr)
		}
		if path != "/auth/done" {
			t.Errorf("expected path from redirect URI, got %s", path)
		}

		config.Credentials.Spotify.RedirectURI = ""
		addr, path = runner.callbackAddr()
		if addr != "127.0.0.1:3000" || path != "/callback" {
			t.Errorf("expected server defaults, got %s %s", addr, path)
		}
	})
}

func TestCommands(t *testing.T) {
	t.Run("search", func(t *testing.T) {
		env := newTestEnv(t)
		if err := env.run(t, "search", "--json", "queen"); err != nil {
			t.Fatalf("search failed: %v", err)
		}

		out := env.output.String()
		if !strings.Contains(out, `"query": "queen"`) {
			t.Errorf("expected query in JSON, got %s", out)
		}
		if !strings.Contains(out, "Bohemian Rhapsody") {
			t.Errorf("expected track in results, got %s", out)
		}
	})

	t.Run("search without query", func(t *testing.T) {
		env := newTestEnv(t)
		if err := env.run(t, "search"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("track", func(t *testing.T) {
		env := newTestEnv(t)
		if err := env.run(t, "track", "t1"); err != nil {
			t.Fatalf("track failed: %v", err)
		}

		out := env.output.String()
		if !strings.Contains(out, "Bohemian Rhapsody") || !strings.Contains(out, "5:54") {
			t.Errorf("expected rendered track, got %s", out)
		}
	})

	t.Run("unknown track maps to not found", func(t *testing.T) {
		env := newTestEnv(t)
		err := env.run(t, "track", "nope")
		if code := shared.ExitCode(err); code != shared.ExitNotFound {
			t.Errorf("expected exit code %d, got %d (%v)", shared.ExitNotFound, code, err)
		}
	})

	t.Run("saved requires sign-in", func(t *testing.T) {
		env := newTestEnv(t)
		err := env.run(t, "saved")
		if code := shared.ExitCode(err); code != shared.ExitUnauthenticated {
			t.Errorf("expected exit code %d, got %d (%v)", shared.ExitUnauthenticated, code, err)
		}
	})

	t.Run("fetch", func(t *testing.T) {
		env := newTestEnv(t)
		if err := env.run(t, "fetch", "t1"); err != nil {
			t.Fatalf("fetch failed: %v", err)
		}

		tu.AssertFileExists(t, filepath.Join(env.dir, "downloads", "Queen - Bohemian Rhapsody.mp3"))
		if !strings.Contains(env.output.String(), "downloaded") {
			t.Errorf("expected download summary, got %s", env.output.String())
		}

		env.output.Reset()
		if err := env.run(t, "fetch", "t1"); err != nil {
			t.Fatalf("second fetch failed: %v", err)
		}
		if !strings.Contains(env.output.String(), "already downloaded") {
			t.Errorf("expected reuse on second fetch, got %s", env.output.String())
		}
		if env.ytdlp.Downloads() != 1 {
			t.Errorf("expected one download, got %d", env.ytdlp.Downloads())
		}
	})

	t.Run("fetch-playlist", func(t *testing.T) {
		env := newTestEnv(t)
		if err := env.run(t, "fetch-playlist", "--manifest", "csv", "p1"); err != nil {
			t.Fatalf("fetch-playlist failed: %v", err)
		}

		dir := filepath.Join(env.dir, "downloads", "Road Trip")
		tu.AssertFileExists(t, filepath.Join(dir, "Queen - Bohemian Rhapsody.mp3"))

		manifest := tu.MustReadFile(t, filepath.Join(dir, "manifest.csv"))
		if !strings.Contains(manifest, "t1,Bohemian Rhapsody") || !strings.Contains(manifest, "not_found") {
			t.Errorf("unexpected manifest: %s", manifest)
		}

		out := env.output.String()
		if !strings.Contains(out, "1/2") || !strings.Contains(out, "Queen - Interlude") {
			t.Errorf("expected fetch summary, got %s", out)
		}
	})

	t.Run("cache clear", func(t *testing.T) {
		env := newTestEnv(t)
		if err := env.run(t, "track", "t1"); err != nil {
			t.Fatalf("track failed: %v", err)
		}

		env.output.Reset()
		if err := env.run(t, "cache", "clear"); err != nil {
			t.Fatalf("cache clear failed: %v", err)
		}
		if !strings.Contains(env.output.String(), "Cleared 1 cached entries") {
			t.Errorf("expected one cleared entry, got %s", env.output.String())
		}
	})

	t.Run("logout without session", func(t *testing.T) {
		env := newTestEnv(t)
		if err := env.run(t, "auth", "logout"); err != nil {
			t.Fatalf("logout failed: %v", err)
		}
		if !strings.Contains(env.output.String(), "Not signed in") {
			t.Errorf("expected not signed in, got %s", env.output.String())
		}
	})

	t.Run("setup config", func(t *testing.T) {
		env := newTestEnv(t)
		path := filepath.Join(env.dir, "config.toml")
		if err := newApp(env.runner).Run(context.Background(), []string{"sbx", "--config", path, "setup", "config"}); err != nil {
			t.Fatalf("setup config failed: %v", err)
		}
		tu.AssertFileExists(t, path)

		if err := newApp(env.runner).Run(context.Background(), []string{"sbx", "--config", path, "setup", "config"}); err == nil {
			t.Error("expected error when config already exists")
		}
	})

	t.Run("setup database", func(t *testing.T) {
		env := newTestEnv(t)
		if err := env.run(t, "setup", "database"); err != nil {
			t.Fatalf("setup database failed: %v", err)
		}
		tu.AssertFileExists(t, filepath.Join(env.dir, "sbx.db"))
	})

	t.Run("setup database purges lapsed sessions", func(t *testing.T) {
		env := newTestEnv(t)
		if err := env.run(t, "setup", "database"); err != nil {
			t.Fatalf("setup database failed: %v", err)
		}

		db, err := shared.NewDatabase(filepath.Join(env.dir, "sbx.db"))
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		insert := `INSERT INTO credentials (session_key, access_token, refresh_token, expires_at, record_expires_at)
			VALUES (?, 'a', 'r', 0, ?)`
		if _, err := db.Exec(insert, "lapsed", time.Now().UTC().Add(-time.Hour)); err != nil {
			t.Fatalf("failed to seed lapsed session: %v", err)
		}
		if _, err := db.Exec(insert, "live", time.Now().UTC().Add(time.Hour)); err != nil {
			t.Fatalf("failed to seed live session: %v", err)
		}
		db.Close()

		env.output.Reset()
		if err := env.run(t, "setup", "database"); err != nil {
			t.Fatalf("second setup database failed: %v", err)
		}
		if !strings.Contains(env.output.String(), "Removed 1 expired session") {
			t.Errorf("expected purge summary, got %s", env.output.String())
		}

		db, err = shared.NewDatabase(filepath.Join(env.dir, "sbx.db"))
		if err != nil {
			t.Fatalf("failed to reopen database: %v", err)
		}
		defer db.Close()

		var keys []string
		rows, err := db.Query("SELECT session_key FROM credentials")
		if err != nil {
			t.Fatalf("failed to list sessions: %v", err)
		}
		defer rows.Close()
		for rows.Next() {
			var k string
			if err := rows.Scan(&k); err != nil {
				t.Fatalf("failed to scan: %v", err)
			}
			keys = append(keys, k)
		}
		if len(keys) != 1 || keys[0] != "live" {
			t.Errorf("expected only the live session to remain, got %v", keys)
		}
	})
}
