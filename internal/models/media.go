package models

// ItemType discriminates the [Item] union.
type ItemType string

const (
	TypeTrack    ItemType = "track"
	TypeArtist   ItemType = "artist"
	TypeAlbum    ItemType = "album"
	TypePlaylist ItemType = "playlist"
)

// Item is a normalized catalog entity.
//
// Exactly one of the *Info pointers is set, matching Type.
type Item struct {
	Type       ItemType `json:"type"`
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Artist     string   `json:"artist,omitempty"`
	ImageURL   *string  `json:"image_url"`
	Relevance  float64  `json:"relevance,omitempty"`
	Popularity *int     `json:"popularity,omitempty"`

	TrackInfo    *TrackInfo    `json:"track,omitempty"`
	ArtistInfo   *ArtistInfo   `json:"artist_info,omitempty"`
	AlbumInfo    *AlbumInfo    `json:"album,omitempty"`
	PlaylistInfo *PlaylistInfo `json:"playlist,omitempty"`
}

// TrackInfo holds track-only fields.
type TrackInfo struct {
	DurationMs int      `json:"duration_ms"`
	Album      string   `json:"album"`
	AlbumID    string   `json:"album_id,omitempty"`
	Explicit   bool     `json:"explicit"`
	ISRC       string   `json:"isrc,omitempty"`
	PreviewURL *string  `json:"preview_url"`
	Artists    []string `json:"artists"`
}

// ArtistInfo holds artist-only fields.
type ArtistInfo struct {
	Followers int      `json:"followers"`
	Genres    []string `json:"genres"`
}

// AlbumInfo holds album-only fields.
type AlbumInfo struct {
	ReleaseDate string `json:"release_date"`
	TotalTracks int    `json:"total_tracks"`
	AlbumType   string `json:"album_type"`
}

// PlaylistInfo holds playlist-only fields.
type PlaylistInfo struct {
	Description string `json:"description"`
	Owner       string `json:"owner"`
	TrackCount  int    `json:"track_count"`
	Followers   int    `json:"followers"`
}

// PopularityOrZero returns the popularity score or 0 when the catalog omitted it.
func (i *Item) PopularityOrZero() int {
	if i.Popularity == nil {
		return 0
	}
	return *i.Popularity
}

// Followers returns the follower count for artists and playlists, 0 otherwise.
func (i *Item) Followers() int {
	switch {
	case i.ArtistInfo != nil:
		return i.ArtistInfo.Followers
	case i.PlaylistInfo != nil:
		return i.PlaylistInfo.Followers
	}
	return 0
}

// DurationMs returns the track duration or 0 for non-track items.
func (i *Item) DurationMs() int {
	if i.TrackInfo == nil {
		return 0
	}
	return i.TrackInfo.DurationMs
}

// Page is a normalized pagination envelope.
type Page[T any] struct {
	Items    []T     `json:"items"`
	Total    int     `json:"total"`
	Limit    int     `json:"limit"`
	Offset   int     `json:"offset"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
}

// HasNext reports whether the catalog advertised another page.
func (p *Page[T]) HasNext() bool {
	return p != nil && p.Next != nil && *p.Next != ""
}
