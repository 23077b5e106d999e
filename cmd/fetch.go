package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/soundbridge/internal/formatter"
	"github.com/desertthunder/soundbridge/internal/models"
	"github.com/desertthunder/soundbridge/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Fetch resolves one catalog track to a local audio file.
func (r *Runner) Fetch(ctx context.Context, cmd *cli.Command) error {
	id, err := requireID(cmd)
	if err != nil {
		return err
	}
	if err := r.connect(ctx); err != nil {
		return err
	}

	track, err := r.spotify.Track(ctx, r.sessionKey(), id)
	if err != nil {
		return err
	}

	r.logger.Info("fetching track", "id", id, "artist", track.Artist, "name", track.Name)
	file, err := r.resolver.FetchTrack(ctx, *track, r.outputDir(cmd))
	if err != nil {
		return err
	}
	return r.render(cmd, file, func() string { return formatter.RenderLocalFile(file) })
}

// FetchPlaylist downloads every track of a playlist.
func (r *Runner) FetchPlaylist(ctx context.Context, cmd *cli.Command) error {
	return r.fetchCollection(ctx, cmd, models.TypePlaylist)
}

// FetchAlbum downloads every track of an album.
func (r *Runner) FetchAlbum(ctx context.Context, cmd *cli.Command) error {
	return r.fetchCollection(ctx, cmd, models.TypeAlbum)
}

func (r *Runner) fetchCollection(ctx context.Context, cmd *cli.Command, kind models.ItemType) error {
	id, err := requireID(cmd)
	if err != nil {
		return err
	}
	if err := r.connect(ctx); err != nil {
		return err
	}

	engine := r.engine
	if n := cmd.Int("concurrency"); n > 0 {
		engine = tasks.NewFetchEngine(r.spotify, r.resolver, n, r.logger)
	}
	run := engine.FetchPlaylist
	if kind == models.TypeAlbum {
		run = engine.FetchAlbum
	}

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			switch update.Phase {
			case tasks.FetchSource:
				r.writePlain("📥 %s\n", update.Message)
			case tasks.ListTracks:
				r.writePlain("🎵 %s\n\n", update.Message)
			case tasks.FetchTracks:
				r.writePlain("   %s\n", update.Message)
			case tasks.Complete:
				r.logger.Debug(update.Message)
			}
		}
	}()

	result, err := run(ctx, r.sessionKey(), id, r.outputDir(cmd), progressCh)
	close(progressCh)
	<-done

	if result == nil {
		return err
	}

	if format := cmd.String("manifest"); format != "none" {
		if path, mErr := formatter.WriteManifest(result, format); mErr != nil {
			r.logger.Warn("failed to write manifest", "error", mErr)
		} else {
			r.logger.Info("manifest written", "path", path)
		}
	}

	if cmd.Bool("json") {
		data, jErr := formatter.ExportToJSON(result)
		if jErr != nil {
			return jErr
		}
		r.writePlain("%s", data)
	} else {
		r.writePlain("\n%s", formatter.RenderFetchResult(result))
	}

	if err != nil {
		return err
	}
	if result.Failed > 0 {
		return fmt.Errorf("%d of %d tracks failed", result.Failed, result.Total)
	}
	return nil
}

func (r *Runner) outputDir(cmd *cli.Command) string {
	if dir := cmd.String("output"); dir != "" {
		return dir
	}
	return r.config.Media.OutputDir
}
