package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/soundbridge/internal/auth"
	"github.com/desertthunder/soundbridge/internal/cache"
	"github.com/desertthunder/soundbridge/internal/media"
	"github.com/desertthunder/soundbridge/internal/repositories"
	"github.com/desertthunder/soundbridge/internal/search"
	"github.com/desertthunder/soundbridge/internal/services"
	"github.com/desertthunder/soundbridge/internal/shared"
	"github.com/desertthunder/soundbridge/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Catalog-facing dependencies are built on first use by [Runner.connect], so commands like setup work without
// credentials.
type Runner struct {
	config     *shared.Config
	configPath string
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	now        func() time.Time

	db         *sql.DB
	cache      *cache.Cache
	auth       *auth.Manager
	spotify    *services.SpotifyService
	aggregator *search.Aggregator
	resolver   *media.Resolver
	engine     *tasks.FetchEngine
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Any dependency left nil is built from Config when a command first needs it.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	Now        func() time.Time

	DB       *sql.DB
	Cache    *cache.Cache
	Auth     *auth.Manager
	Spotify  *services.SpotifyService
	Resolver *media.Resolver
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		now:        opts.Now,
		db:         opts.DB,
		cache:      opts.Cache,
		auth:       opts.Auth,
		spotify:    opts.Spotify,
		resolver:   opts.Resolver,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, searchCommand, artistCommand, albumCommand, trackCommand, playlistCommand,
		browseCommand, savedCommand, fetchCommand, fetchPlaylistCommand, fetchAlbumCommand, cacheCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// load reads the config file (when present), .env and environment overrides. Used as the root Before hook.
func (r *Runner) load(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if err := shared.LoadEnv(); err != nil {
		r.logger.Warn("failed to load .env", "error", err)
	}

	if path := cmd.String("config"); path != "" {
		r.configPath = path
		if _, err := os.Stat(path); err == nil {
			config, err := shared.LoadConfig(path)
			if err != nil {
				return ctx, err
			}
			r.config = config
		} else {
			r.logger.Debug("config file not found, using defaults", "path", path)
		}
	}

	r.config.ApplyEnv()
	shared.SetLogLevel(r.logger, r.config.Log.Level)
	if cmd.Bool("debug") {
		r.logger.SetLevel(log.DebugLevel)
	}
	return ctx, nil
}

// connect builds every catalog-facing dependency that was not injected.
func (r *Runner) connect(ctx context.Context) error {
	if r.spotify != nil && r.resolver != nil {
		r.wire()
		return nil
	}

	if err := r.config.Validate(); err != nil {
		return err
	}

	if r.httpClient == nil {
		r.httpClient = shared.NewHTTPClient(r.config.HTTP.Timeout)
	}

	if r.cache == nil {
		backend, err := cache.Open(r.config.Cache, r.logger)
		if err != nil {
			return fmt.Errorf("failed to open cache: %w", err)
		}
		r.cache = cache.New(backend, r.logger)
	}

	if r.db == nil {
		db, err := r.openDatabase()
		if err != nil {
			return err
		}
		r.db = db
	}

	if r.auth == nil {
		var store auth.CredentialStore
		switch r.config.Session.Store {
		case "cache":
			store = auth.NewKVStore(r.cache.Backend())
		default:
			repo := repositories.NewCredentialRepository(r.db)
			r.purgeCredentials(ctx, repo)
			store = repo
		}
		r.auth = auth.NewManager(auth.OptionsFromConfig(r.config.Credentials.Spotify, r.httpClient, r.logger), store)
	}

	if r.spotify == nil {
		spotify, err := services.NewSpotifyService(r.auth, services.SpotifyOptions{
			HTTPClient: r.httpClient,
			Cache:      r.cache,
			Logger:     r.logger,
			Market:     r.config.Credentials.Spotify.Market,
			RateLimit:  r.config.HTTP.RateLimit,
			Burst:      r.config.HTTP.Burst,
		})
		if err != nil {
			return err
		}
		r.spotify = spotify
	}

	if r.resolver == nil {
		ledger := repositories.NewDownloadRepository(r.db)
		r.resolver = media.NewResolver(media.OptionsFromConfig(r.config.Media, ledger, r.logger))
	}

	r.wire()
	r.logger.Debug("connected", "cache", r.config.Cache.Backend, "session_store", r.config.Session.Store)
	return nil
}

func (r *Runner) wire() {
	if r.aggregator == nil {
		r.aggregator = search.NewAggregator(r.spotify, r.cache, r.logger)
	}
	if r.engine == nil {
		r.engine = tasks.NewFetchEngine(r.spotify, r.resolver, r.config.Media.Concurrency, r.logger)
	}
}

func (r *Runner) openDatabase() (*sql.DB, error) {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, err
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

// purgeCredentials drops session records whose own lifetime has passed. Failures are only logged.
func (r *Runner) purgeCredentials(ctx context.Context, repo *repositories.CredentialRepository) int64 {
	n, err := repo.PurgeExpired(ctx)
	if err != nil {
		r.logger.Warn("failed to purge expired credentials", "error", err)
		return 0
	}
	if n > 0 {
		r.logger.Debug("purged expired credentials", "count", n)
	}
	return n
}

// Close releases the database and cache backend.
func (r *Runner) Close() error {
	var errs []error
	if r.cache != nil {
		errs = append(errs, r.cache.Close())
	}
	if r.db != nil {
		errs = append(errs, r.db.Close())
	}
	return errors.Join(errs...)
}

func (r *Runner) sessionPath() string {
	return shared.ExpandPath(r.config.Session.Path)
}

// sessionKey returns the stored session key, or "" for an anonymous caller.
func (r *Runner) sessionKey() string {
	data, err := os.ReadFile(r.sessionPath())
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			r.logger.Warn("failed to read session file", "error", err)
		}
		return ""
	}
	return strings.TrimSpace(string(data))
}

func (r *Runner) saveSessionKey(key string) error {
	path := r.sessionPath()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(key+"\n"), 0600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

func (r *Runner) clearSessionKey() error {
	if err := os.Remove(r.sessionPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// render writes either JSON or the formatter's text for v.
func (r *Runner) render(cmd *cli.Command, v any, text func() string) error {
	if cmd.Bool("json") {
		return r.writeJSON(v, true)
	}
	return r.writePlain("%s", text())
}
