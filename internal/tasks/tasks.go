// package tasks implements bulk media fetches for catalog collections.
//
// The core abstraction is FetchEngine, which lists a collection's tracks and resolves each one to a local file.
// Operations emit progress updates via channels for non-blocking status reporting to the CLI layer.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/soundbridge/internal/media"
	"github.com/desertthunder/soundbridge/internal/models"
	"github.com/desertthunder/soundbridge/internal/shared"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds parallel downloads when none is configured.
const DefaultConcurrency = 3

// Catalog lists the tracks of playlists and albums.
type Catalog interface {
	Playlist(ctx context.Context, sessionKey, id string) (*models.Item, error)
	AllPlaylistTracks(ctx context.Context, sessionKey, id string) ([]models.Item, error)
	Album(ctx context.Context, sessionKey, id string) (*models.Item, error)
	AllAlbumTracks(ctx context.Context, sessionKey, id string) ([]models.Item, error)
}

// Fetcher downloads the audio for one catalog track.
type Fetcher interface {
	FetchTrack(ctx context.Context, item models.Item, dir string) (*media.LocalFile, error)
}

// Status is the outcome of fetching one track.
type Status int

const (
	StatusFound Status = iota
	StatusNotFound
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusFound:
		return "found"
	case StatusNotFound:
		return "not_found"
	case StatusFailed:
		return "failed"
	default:
		return ""
	}
}

// TrackResult represents the result of fetching a single track.
type TrackResult struct {
	Track  models.Item      // Catalog track
	File   *media.LocalFile // Downloaded file (nil unless found)
	Status Status
	Error  error
}

// FetchResult contains all data from a bulk fetch.
type FetchResult struct {
	Collection models.Item   // Playlist or album that was fetched
	Directory  string        // Directory files were written to
	Tracks     []TrackResult // Per-track results in collection order
	Found      int
	NotFound   int
	Failed     int
	Total      int
}

// FetchEngine resolves whole collections through a [Fetcher].
type FetchEngine struct {
	catalog     Catalog
	fetcher     Fetcher
	concurrency int
	logger      *log.Logger
}

// NewFetchEngine creates a FetchEngine running at most concurrency fetches at once.
func NewFetchEngine(catalog Catalog, fetcher Fetcher, concurrency int, logger *log.Logger) *FetchEngine {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &FetchEngine{
		catalog:     catalog,
		fetcher:     fetcher,
		concurrency: concurrency,
		logger:      shared.WithLogger(logger, "component", "tasks"),
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *FetchEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// FetchPlaylist downloads every track of a playlist into a folder named after it under dir.
func (e *FetchEngine) FetchPlaylist(ctx context.Context, sessionKey, id, dir string, progress chan<- ProgressUpdate) (*FetchResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	e.sendProgress(progress, fetchingSourceUpdate(models.TypePlaylist, id))
	playlist, err := e.catalog.Playlist(ctx, sessionKey, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get playlist %s: %w", id, err)
	}

	tracks, err := e.catalog.AllPlaylistTracks(ctx, sessionKey, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list tracks of playlist %s: %w", id, err)
	}

	return e.FetchTracks(ctx, *playlist, tracks, dir, progress)
}

// FetchAlbum downloads every track of an album into a folder named after it under dir.
func (e *FetchEngine) FetchAlbum(ctx context.Context, sessionKey, id, dir string, progress chan<- ProgressUpdate) (*FetchResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	e.sendProgress(progress, fetchingSourceUpdate(models.TypeAlbum, id))
	album, err := e.catalog.Album(ctx, sessionKey, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get album %s: %w", id, err)
	}

	tracks, err := e.catalog.AllAlbumTracks(ctx, sessionKey, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list tracks of album %s: %w", id, err)
	}

	return e.FetchTracks(ctx, *album, tracks, dir, progress)
}

// FetchTracks downloads tracks into a folder named after collection under dir.
//
// Per-track failures are recorded in the result. The returned error is non-nil only when ctx ends early, in which
// case the partial result is returned with it.
func (e *FetchEngine) FetchTracks(ctx context.Context, collection models.Item, tracks []models.Item, dir string, progress chan<- ProgressUpdate) (*FetchResult, error) {
	if e.fetcher == nil {
		return nil, fmt.Errorf("%w: fetcher", shared.ErrMissingArgument)
	}

	total := len(tracks)
	result := &FetchResult{
		Collection: collection,
		Directory:  filepath.Join(shared.ExpandPath(dir), shared.SanitizeFilename(collection.Name)),
		Tracks:     make([]TrackResult, total),
		Total:      total,
	}
	e.sendProgress(progress, foundCollectionUpdate(&collection, total))

	var completed atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for i, track := range tracks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				result.Tracks[i] = TrackResult{Track: track, Status: StatusFailed, Error: err}
				return err
			}

			res := e.fetchOne(gctx, track, result.Directory)
			result.Tracks[i] = res
			e.sendProgress(progress, trackDoneUpdate(int(completed.Add(1)), total, res))
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	for _, res := range result.Tracks {
		switch res.Status {
		case StatusFound:
			result.Found++
		case StatusNotFound:
			result.NotFound++
		default:
			result.Failed++
		}
	}

	e.logger.Info("bulk fetch finished",
		"collection", collection.Name, "found", result.Found, "not_found", result.NotFound, "failed", result.Failed)
	e.sendProgress(progress, completeUpdate(result))

	if err != nil {
		return result, fmt.Errorf("bulk fetch interrupted: %w", err)
	}
	return result, nil
}

func (e *FetchEngine) fetchOne(ctx context.Context, track models.Item, dir string) TrackResult {
	file, err := e.fetcher.FetchTrack(ctx, track, dir)
	switch {
	case err == nil:
		return TrackResult{Track: track, File: file, Status: StatusFound}
	case errors.Is(err, shared.ErrNotFound):
		return TrackResult{Track: track, Status: StatusNotFound, Error: err}
	default:
		e.logger.Warn("track fetch failed", "track", track.ID, "error", err)
		return TrackResult{Track: track, Status: StatusFailed, Error: err}
	}
}

func (e *FetchEngine) ready() error {
	if e.catalog == nil {
		return fmt.Errorf("%w: catalog", shared.ErrMissingArgument)
	}
	if e.fetcher == nil {
		return fmt.Errorf("%w: fetcher", shared.ErrMissingArgument)
	}
	return nil
}
