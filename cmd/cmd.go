// submodule cmd contains command definitions
package main

import (
	"github.com/desertthunder/soundbridge/internal/search"
	"github.com/urfave/cli/v3"
)

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "json",
		Usage: "Output JSON",
	}
}

func pageFlags(limit int) []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:    "limit",
			Aliases: []string{"l"},
			Usage:   "Page size (1-50)",
			Value:   limit,
		},
		&cli.IntFlag{
			Name:  "offset",
			Usage: "Index of the first item",
		},
		jsonFlag(),
	}
}

func idArg() []cli.Argument {
	return []cli.Argument{&cli.StringArg{Name: "id"}}
}

func outputFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage:   "Directory to write audio files to (defaults to [media] output_dir)",
	}
}

// setupCommand initializes configuration and storage
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create a config file or initialize the database",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write an example config.toml",
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Action: r.SetupDatabase,
			},
		},
	}
}

// authCommand handles Spotify sign-in
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage the Spotify session",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Sign in with Spotify using OAuth2",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "no-browser",
						Usage: "Print the sign-in URL instead of opening a browser",
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "logout",
				Usage:  "Delete the stored credential",
				Action: r.AuthLogout,
			},
			{
				Name:   "status",
				Usage:  "Show the stored credential and account",
				Action: r.AuthStatus,
			},
		},
	}
}

func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Aliases:   []string{"s"},
		Usage:     "Search tracks, artists, albums and playlists",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"l"},
				Usage:   "Maximum number of results",
				Value:   search.DefaultLimit,
			},
			jsonFlag(),
		},
		Action: r.Search,
	}
}

func artistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "artist",
		Usage:     "Show an artist, its top tracks and albums",
		Arguments: idArg(),
		Flags:     pageFlags(10),
		Action:    r.Artist,
	}
}

func albumCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "album",
		Usage:     "Show an album and its tracks",
		Arguments: idArg(),
		Flags:     pageFlags(50),
		Action:    r.Album,
	}
}

func trackCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "track",
		Usage:     "Show a track",
		Arguments: idArg(),
		Flags:     []cli.Flag{jsonFlag()},
		Action:    r.Track,
	}
}

func playlistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "playlist",
		Usage:     "Show a playlist and its tracks",
		Arguments: idArg(),
		Flags:     pageFlags(50),
		Action:    r.Playlist,
	}
}

func browseCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "browse",
		Usage: "Browse new releases, featured playlists and categories",
		Commands: []*cli.Command{
			{
				Name:   "new-releases",
				Usage:  "List new album releases",
				Flags:  pageFlags(20),
				Action: r.BrowseNewReleases,
			},
			{
				Name:   "featured",
				Usage:  "List featured playlists",
				Flags:  pageFlags(20),
				Action: r.BrowseFeatured,
			},
			{
				Name:   "categories",
				Usage:  "List browse categories",
				Flags:  pageFlags(20),
				Action: r.BrowseCategories,
			},
		},
	}
}

func savedCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "saved",
		Usage:  "List your saved tracks (requires sign-in)",
		Flags:  pageFlags(20),
		Action: r.Saved,
	}
}

func fetchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "fetch",
		Usage:     "Download audio for a catalog track",
		Arguments: idArg(),
		Flags:     []cli.Flag{outputFlag(), jsonFlag()},
		Action:    r.Fetch,
	}
}

func collectionFetchFlags() []cli.Flag {
	return []cli.Flag{
		outputFlag(),
		&cli.IntFlag{
			Name:    "concurrency",
			Aliases: []string{"j"},
			Usage:   "Parallel downloads (defaults to [media] concurrency)",
		},
		&cli.StringFlag{
			Name:  "manifest",
			Usage: "Manifest written next to the files: json, csv, md or none",
			Value: "json",
		},
		jsonFlag(),
	}
}

func fetchPlaylistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "fetch-playlist",
		Usage:     "Download audio for every track of a playlist",
		Arguments: idArg(),
		Flags:     collectionFetchFlags(),
		Action:    r.FetchPlaylist,
	}
}

func fetchAlbumCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "fetch-album",
		Usage:     "Download audio for every track of an album",
		Arguments: idArg(),
		Flags:     collectionFetchFlags(),
		Action:    r.FetchAlbum,
	}
}

// cacheCommand manages the read-through cache
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Manage cached catalog responses",
		Commands: []*cli.Command{
			{
				Name:  "clear",
				Usage: "Drop cached entries",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "prefix",
						Usage: "Only drop keys under this namespace, e.g. spotify.album",
					},
				},
				Action: r.CacheClear,
			},
		},
	}
}
