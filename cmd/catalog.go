package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/soundbridge/internal/formatter"
	"github.com/desertthunder/soundbridge/internal/models"
	"github.com/desertthunder/soundbridge/internal/shared"
	"github.com/urfave/cli/v3"
)

// Search runs the multi-type search aggregator.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	query := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("%w: query", shared.ErrMissingArgument)
	}
	if err := r.connect(ctx); err != nil {
		return err
	}

	r.logger.Debug("searching", "query", query, "limit", cmd.Int("limit"))
	results, err := r.aggregator.SearchMultiType(ctx, r.sessionKey(), query, cmd.Int("limit"))
	if err != nil {
		return err
	}
	return r.render(cmd, results, func() string { return formatter.RenderResults(results) })
}

// Artist shows an artist with its top tracks and albums.
func (r *Runner) Artist(ctx context.Context, cmd *cli.Command) error {
	id, err := requireID(cmd)
	if err != nil {
		return err
	}
	if err := r.connect(ctx); err != nil {
		return err
	}

	key := r.sessionKey()
	artist, err := r.spotify.Artist(ctx, key, id)
	if err != nil {
		return err
	}
	top, err := r.spotify.ArtistTopTracks(ctx, key, id)
	if err != nil {
		return err
	}
	albums, err := r.spotify.ArtistAlbums(ctx, key, id, cmd.Int("limit"), cmd.Int("offset"))
	if err != nil {
		return err
	}

	out := struct {
		Artist    *models.Item              `json:"artist"`
		TopTracks []models.Item             `json:"top_tracks"`
		Albums    *models.Page[models.Item] `json:"albums"`
	}{artist, top, albums}

	return r.render(cmd, out, func() string {
		return formatter.RenderItem(*artist) + "\n" +
			formatter.RenderPage("Top tracks", &models.Page[models.Item]{Items: top, Total: len(top)}) + "\n" +
			formatter.RenderPage("Albums", albums)
	})
}

// Album shows an album and one page of its tracks.
func (r *Runner) Album(ctx context.Context, cmd *cli.Command) error {
	id, err := requireID(cmd)
	if err != nil {
		return err
	}
	if err := r.connect(ctx); err != nil {
		return err
	}

	key := r.sessionKey()
	album, err := r.spotify.Album(ctx, key, id)
	if err != nil {
		return err
	}
	tracks, err := r.spotify.AlbumTracks(ctx, key, id, cmd.Int("limit"), cmd.Int("offset"))
	if err != nil {
		return err
	}

	out := struct {
		Album  *models.Item              `json:"album"`
		Tracks *models.Page[models.Item] `json:"tracks"`
	}{album, tracks}

	return r.render(cmd, out, func() string {
		return formatter.RenderItem(*album) + "\n" + formatter.RenderPage("Tracks", tracks)
	})
}

// Track shows one track.
func (r *Runner) Track(ctx context.Context, cmd *cli.Command) error {
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
	return r.render(cmd, track, func() string { return formatter.RenderItem(*track) })
}

// Playlist shows a playlist and one page of its tracks.
func (r *Runner) Playlist(ctx context.Context, cmd *cli.Command) error {
	id, err := requireID(cmd)
	if err != nil {
		return err
	}
	if err := r.connect(ctx); err != nil {
		return err
	}

	key := r.sessionKey()
	playlist, err := r.spotify.Playlist(ctx, key, id)
	if err != nil {
		return err
	}
	tracks, err := r.spotify.PlaylistTracks(ctx, key, id, cmd.Int("limit"), cmd.Int("offset"))
	if err != nil {
		return err
	}

	out := struct {
		Playlist *models.Item              `json:"playlist"`
		Tracks   *models.Page[models.Item] `json:"tracks"`
	}{playlist, tracks}

	return r.render(cmd, out, func() string {
		return formatter.RenderItem(*playlist) + "\n" + formatter.RenderPage("Tracks", tracks)
	})
}

// BrowseNewReleases lists new album releases.
func (r *Runner) BrowseNewReleases(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(ctx); err != nil {
		return err
	}
	page, err := r.spotify.NewReleases(ctx, r.sessionKey(), cmd.Int("limit"), cmd.Int("offset"))
	if err != nil {
		return err
	}
	return r.render(cmd, page, func() string { return formatter.RenderPage("New releases", page) })
}

// BrowseFeatured lists featured playlists.
func (r *Runner) BrowseFeatured(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(ctx); err != nil {
		return err
	}
	page, err := r.spotify.FeaturedPlaylists(ctx, r.sessionKey(), cmd.Int("limit"), cmd.Int("offset"))
	if err != nil {
		return err
	}
	return r.render(cmd, page, func() string { return formatter.RenderPage("Featured playlists", page) })
}

// BrowseCategories lists browse categories.
func (r *Runner) BrowseCategories(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(ctx); err != nil {
		return err
	}
	page, err := r.spotify.Categories(ctx, r.sessionKey(), cmd.Int("limit"), cmd.Int("offset"))
	if err != nil {
		return err
	}
	return r.render(cmd, page, func() string { return formatter.RenderCategories(page) })
}

// Saved lists the signed-in user's saved tracks. Requires a session.
func (r *Runner) Saved(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(ctx); err != nil {
		return err
	}
	page, err := r.spotify.SavedTracks(ctx, r.sessionKey(), cmd.Int("limit"), cmd.Int("offset"))
	if err != nil {
		return err
	}
	return r.render(cmd, page, func() string { return formatter.RenderPage("Saved tracks", page) })
}

func requireID(cmd *cli.Command) (string, error) {
	id := strings.TrimSpace(cmd.StringArg("id"))
	if id == "" {
		return "", fmt.Errorf("%w: id", shared.ErrMissingArgument)
	}
	return id, nil
}
