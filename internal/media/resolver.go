package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/soundbridge/internal/models"
	"github.com/desertthunder/soundbridge/internal/shared"
)

const (
	DefaultYtdlpPath       = "yt-dlp"
	DefaultAudioFormat     = "mp3"
	DefaultSearchTimeout   = 30 * time.Second
	DefaultDownloadTimeout = 5 * time.Minute

	// searchResults is how many index hits are considered per query.
	searchResults = 3

	stderrTailLines = 5
)

// Ledger remembers which file was fetched for a catalog track.
type Ledger interface {
	GetByTrackID(ctx context.Context, trackID string) (*models.Download, error)
	Record(ctx context.Context, d *models.Download) error
}

// LocalFile is a fetched audio file.
type LocalFile struct {
	Path            string  `json:"path"`
	Title           string  `json:"title"`
	Uploader        string  `json:"uploader"`
	SourceURL       string  `json:"source_url"`
	DurationSeconds float64 `json:"duration_seconds"`

	// Reused is set when an earlier download was returned instead of fetching again.
	Reused bool `json:"reused,omitempty"`
}

// Options configures a [Resolver].
type Options struct {
	YtdlpPath       string
	AudioFormat     string
	SearchTimeout   time.Duration
	DownloadTimeout time.Duration
	Runner          Runner
	Ledger          Ledger
	Logger          *log.Logger
}

// OptionsFromConfig maps the [media] config section onto Options.
func OptionsFromConfig(cfg shared.MediaConfig, ledger Ledger, logger *log.Logger) Options {
	return Options{
		YtdlpPath:       shared.ExpandPath(cfg.YtdlpPath),
		AudioFormat:     cfg.AudioFormat,
		SearchTimeout:   cfg.SearchTimeout,
		DownloadTimeout: cfg.DownloadTimeout,
		Ledger:          ledger,
		Logger:          logger,
	}
}

// Resolver finds and downloads audio for catalog tracks.
type Resolver struct {
	ytdlp           string
	format          string
	searchTimeout   time.Duration
	downloadTimeout time.Duration
	runner          Runner
	ledger          Ledger
	logger          *log.Logger
}

// NewResolver creates a Resolver, filling unset options with defaults.
func NewResolver(opts Options) *Resolver {
	r := &Resolver{
		ytdlp:           opts.YtdlpPath,
		format:          opts.AudioFormat,
		searchTimeout:   opts.SearchTimeout,
		downloadTimeout: opts.DownloadTimeout,
		runner:          opts.Runner,
		ledger:          opts.Ledger,
		logger:          shared.WithLogger(opts.Logger, "component", "media"),
	}

	if r.ytdlp == "" {
		r.ytdlp = DefaultYtdlpPath
	}
	if r.format == "" {
		r.format = DefaultAudioFormat
	}
	if r.searchTimeout <= 0 {
		r.searchTimeout = DefaultSearchTimeout
	}
	if r.downloadTimeout <= 0 {
		r.downloadTimeout = DefaultDownloadTimeout
	}
	if r.runner == nil {
		r.runner = ExecRunner{}
	}
	return r
}

// Search queries the media index for the top candidates of query.
func (r *Resolver) Search(ctx context.Context, query string) ([]Candidate, error) {
	q := cleanQuery(query)
	if q == "" {
		return nil, fmt.Errorf("%w: empty media query", shared.ErrInvalidArgument)
	}

	ctx, cancel := context.WithTimeout(ctx, r.searchTimeout)
	defer cancel()

	args := []string{
		"ytsearch" + strconv.Itoa(searchResults) + ":" + q,
		"--dump-json",
		"--flat-playlist",
		"--no-warnings",
	}

	stdout, stderr, err := r.runner.Run(ctx, r.ytdlp, args...)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &shared.Failure{Message: "media search timed out", Err: shared.ErrTimeout}
		}
		return nil, &shared.Failure{Message: "media search failed: " + tail(stderr), Err: err}
	}

	candidates := ParseCandidates(stdout)
	r.logger.Debug("media search", "query", q, "candidates", len(candidates))
	return candidates, nil
}

// Resolve returns the first candidate for query within the duration tolerance of targetMs.
func (r *Resolver) Resolve(ctx context.Context, query string, targetMs int) (*Candidate, error) {
	candidates, err := r.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	c, ok := Select(candidates, targetMs)
	if !ok && len(candidates) == 0 {
		return nil, fmt.Errorf("%w: no media for %q", shared.ErrNotFound, cleanQuery(query))
	}
	if !ok {
		return nil, fmt.Errorf("%w: no media for %q within %.0fs of %s",
			shared.ErrNotFound, cleanQuery(query), Tolerance(float64(targetMs)/1000), shared.FormatDuration(targetMs))
	}
	return &c, nil
}

// Download extracts the audio of c to outputPath.
//
// The audio format's extension is appended when outputPath lacks it. A downloader error is ignored when the output
// file was written anyway.
func (r *Resolver) Download(ctx context.Context, c Candidate, outputPath string) (*LocalFile, error) {
	path := r.audioPath(outputPath)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, &shared.Failure{Message: "failed to create output directory", Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, r.downloadTimeout)
	defer cancel()

	args := []string{
		"-x",
		"--audio-format", r.format,
		"--audio-quality", "0",
		"--no-playlist",
		"--no-progress",
		"-o", strings.TrimSuffix(path, filepath.Ext(path)) + ".%(ext)s",
		c.URL,
	}

	_, stderr, err := r.runner.Run(ctx, r.ytdlp, args...)
	if err != nil {
		if !exists(path) {
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, &shared.Failure{Message: "media download timed out", Err: shared.ErrTimeout}
			}
			return nil, &shared.Failure{Message: "media download failed: " + tail(stderr), Err: err}
		}
		r.logger.Warn("downloader reported an error but produced output", "path", path, "error", err)
	} else if !exists(path) {
		return nil, &shared.Failure{Message: "downloader produced no file at " + path}
	}

	return &LocalFile{
		Path:            path,
		Title:           c.Title,
		Uploader:        c.Uploader,
		SourceURL:       c.URL,
		DurationSeconds: c.DurationSeconds,
	}, nil
}

// ResolveAndFetch resolves query against targetMs and downloads the accepted candidate to outputPath.
//
// No match yields [shared.ErrNotFound]; process errors yield a [*shared.Failure].
func (r *Resolver) ResolveAndFetch(ctx context.Context, query string, targetMs int, outputPath string) (*LocalFile, error) {
	c, err := r.Resolve(ctx, query, targetMs)
	if err != nil {
		resolutions.WithLabelValues(outcome(err)).Inc()
		return nil, err
	}

	file, err := r.Download(ctx, *c, outputPath)
	if err != nil {
		resolutions.WithLabelValues(resultFailed).Inc()
		return nil, err
	}

	resolutions.WithLabelValues(resultFound).Inc()
	r.logger.Info("fetched media", "query", query, "source", file.SourceURL, "path", file.Path)
	return file, nil
}

// FetchTrack downloads audio for a catalog track into dir, named "<artist> - <title>".
//
// A file already recorded for the track and still on disk is returned without searching again.
func (r *Resolver) FetchTrack(ctx context.Context, item models.Item, dir string) (*LocalFile, error) {
	if item.Type != models.TypeTrack {
		return nil, fmt.Errorf("%w: %s %q is not a track", shared.ErrInvalidArgument, item.Type, item.ID)
	}

	if file := r.recorded(ctx, item.ID); file != nil {
		resolutions.WithLabelValues(resultReused).Inc()
		return file, nil
	}

	query := strings.TrimSpace(item.Name + " " + item.Artist)
	name := shared.SanitizeFilename(item.Artist + " - " + item.Name)
	if item.Artist == "" {
		name = shared.SanitizeFilename(item.Name)
	}

	file, err := r.ResolveAndFetch(ctx, query, item.DurationMs(), filepath.Join(shared.ExpandPath(dir), name))
	if err != nil {
		return nil, err
	}

	if r.ledger != nil && item.ID != "" {
		err := r.ledger.Record(ctx, &models.Download{
			TrackID:         item.ID,
			Path:            file.Path,
			SourceURL:       file.SourceURL,
			Title:           file.Title,
			Uploader:        file.Uploader,
			DurationSeconds: file.DurationSeconds,
		})
		if err != nil {
			r.logger.Warn("failed to record download", "track", item.ID, "error", err)
		}
	}
	return file, nil
}

func (r *Resolver) recorded(ctx context.Context, trackID string) *LocalFile {
	if r.ledger == nil || trackID == "" {
		return nil
	}

	d, err := r.ledger.GetByTrackID(ctx, trackID)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			r.logger.Warn("failed to read download ledger", "track", trackID, "error", err)
		}
		return nil
	}
	if !exists(d.Path) {
		return nil
	}

	return &LocalFile{
		Path:            d.Path,
		Title:           d.Title,
		Uploader:        d.Uploader,
		SourceURL:       d.SourceURL,
		DurationSeconds: d.DurationSeconds,
		Reused:          true,
	}
}

func (r *Resolver) audioPath(outputPath string) string {
	ext := "." + r.format
	if strings.EqualFold(filepath.Ext(outputPath), ext) {
		return outputPath
	}
	return outputPath + ext
}

func outcome(err error) string {
	if errors.Is(err, shared.ErrNotFound) {
		return resultNotFound
	}
	return resultFailed
}

func exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// tail returns the last few non-empty lines of a process diagnostic.
func tail(stderr []byte) string {
	lines := strings.Split(strings.TrimSpace(string(stderr)), "\n")
	if len(lines) > stderrTailLines {
		lines = lines[len(lines)-stderrTailLines:]
	}
	msg := strings.TrimSpace(strings.Join(lines, "\n"))
	if msg == "" {
		return "no diagnostic output"
	}
	return msg
}
