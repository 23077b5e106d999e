package services

import (
	"github.com/desertthunder/soundbridge/internal/models"
)

func firstImage(images []SpotifyImage) *string {
	for _, img := range images {
		if img.URL != "" {
			url := img.URL
			return &url
		}
	}
	return nil
}

func artistNames(artists []SpotifyArtist) []string {
	names := make([]string, 0, len(artists))
	for _, a := range artists {
		names = append(names, a.Name)
	}
	return names
}

func primaryArtist(artists []SpotifyArtist) string {
	if len(artists) == 0 {
		return ""
	}
	return artists[0].Name
}

// TrackItem converts a Spotify track into a normalized track item.
func TrackItem(t *SpotifyTrack) models.Item {
	info := &models.TrackInfo{
		DurationMs: t.DurationMS,
		Explicit:   t.Explicit,
		ISRC:       t.ExternalIDs.ISRC,
		PreviewURL: t.PreviewURL,
		Artists:    artistNames(t.Artists),
	}

	item := models.Item{
		Type:       models.TypeTrack,
		ID:         t.ID,
		Name:       t.Name,
		Artist:     primaryArtist(t.Artists),
		Popularity: t.Popularity,
		TrackInfo:  info,
	}

	if t.Album != nil {
		info.Album = t.Album.Name
		info.AlbumID = t.Album.ID
		item.ImageURL = firstImage(t.Album.Images)
	}
	return item
}

// ArtistItem converts a Spotify artist into a normalized artist item.
func ArtistItem(a *SpotifyArtist) models.Item {
	info := &models.ArtistInfo{Genres: a.Genres}
	if info.Genres == nil {
		info.Genres = []string{}
	}
	if a.Followers != nil {
		info.Followers = a.Followers.Total
	}

	return models.Item{
		Type:       models.TypeArtist,
		ID:         a.ID,
		Name:       a.Name,
		Artist:     a.Name,
		ImageURL:   firstImage(a.Images),
		Popularity: a.Popularity,
		ArtistInfo: info,
	}
}

// AlbumItem converts a Spotify album into a normalized album item.
func AlbumItem(a *SpotifyAlbum) models.Item {
	return models.Item{
		Type:       models.TypeAlbum,
		ID:         a.ID,
		Name:       a.Name,
		Artist:     primaryArtist(a.Artists),
		ImageURL:   firstImage(a.Images),
		Popularity: a.Popularity,
		AlbumInfo: &models.AlbumInfo{
			ReleaseDate: a.ReleaseDate,
			TotalTracks: a.TotalTracks,
			AlbumType:   a.AlbumType,
		},
	}
}

// PlaylistItem converts a Spotify playlist into a normalized playlist item.
func PlaylistItem(p *SpotifyPlaylist) models.Item {
	info := &models.PlaylistInfo{
		Description: p.Description,
		Owner:       p.Owner.DisplayName,
		TrackCount:  p.Tracks.Total,
	}
	if info.Owner == "" {
		info.Owner = p.Owner.ID
	}
	if p.Followers != nil {
		info.Followers = p.Followers.Total
	}

	return models.Item{
		Type:         models.TypePlaylist,
		ID:           p.ID,
		Name:         p.Name,
		Artist:       info.Owner,
		ImageURL:     firstImage(p.Images),
		PlaylistInfo: info,
	}
}

// pageOf converts a Spotify page, skipping nil entries Spotify returns for unavailable items.
func pageOf[S any](p *SpotifyPaging[*S], convert func(*S) models.Item) models.Page[models.Item] {
	if p == nil {
		return models.Page[models.Item]{Items: []models.Item{}}
	}

	page := models.Page[models.Item]{
		Items:    make([]models.Item, 0, len(p.Items)),
		Total:    p.Total,
		Limit:    p.Limit,
		Offset:   p.Offset,
		Next:     p.Next,
		Previous: p.Previous,
	}
	for _, item := range p.Items {
		if item == nil {
			continue
		}
		page.Items = append(page.Items, convert(item))
	}
	return page
}

// trackPageOf converts a playlist or library page, skipping entries whose track is gone.
func trackPageOf(p *SpotifyPaging[SpotifyPlaylistTrack]) models.Page[models.Item] {
	page := models.Page[models.Item]{
		Items:    make([]models.Item, 0, len(p.Items)),
		Total:    p.Total,
		Limit:    p.Limit,
		Offset:   p.Offset,
		Next:     p.Next,
		Previous: p.Previous,
	}
	for _, entry := range p.Items {
		if entry.Track == nil || entry.Track.ID == "" {
			continue
		}
		page.Items = append(page.Items, TrackItem(entry.Track))
	}
	return page
}
