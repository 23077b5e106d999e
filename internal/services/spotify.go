package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/soundbridge/internal/cache"
	"github.com/desertthunder/soundbridge/internal/models"
	"github.com/desertthunder/soundbridge/internal/shared"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

const (
	spotifyBaseURL = "https://api.spotify.com/v1"

	// maxResponseBytes caps how much of a response body is read.
	maxResponseBytes = 8 << 20

	defaultPageLimit = 20
	maxPageLimit     = 50
)

// SearchTypes lists every category the combined search endpoint accepts.
var SearchTypes = []string{"track", "artist", "album", "playlist"}

// SpotifyOptions configures a [SpotifyService].
type SpotifyOptions struct {
	// BaseURL defaults to the public Web API.
	BaseURL    string
	HTTPClient *http.Client
	Cache      *cache.Cache
	Logger     *log.Logger
	Market     string

	// RateLimit is requests per second; zero disables limiting.
	RateLimit float64
	Burst     int
}

// SpotifyService is the catalog query layer for the Spotify Web API.
type SpotifyService struct {
	tokens  TokenSource
	client  *http.Client
	cache   *cache.Cache
	limiter *rate.Limiter
	baseURL string
	market  string
	logger  *log.Logger
}

// NewSpotifyService creates a SpotifyService resolving bearer tokens through tokens.
func NewSpotifyService(tokens TokenSource, opts SpotifyOptions) (*SpotifyService, error) {
	if tokens == nil {
		return nil, fmt.Errorf("%w: token source", shared.ErrMissingArgument)
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = spotifyBaseURL
	}

	client := opts.HTTPClient
	if client == nil {
		client = shared.NewHTTPClient(shared.DefaultHTTPTimeout)
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	return &SpotifyService{
		tokens:  tokens,
		client:  client,
		cache:   opts.Cache,
		limiter: limiter,
		baseURL: baseURL,
		market:  opts.Market,
		logger:  shared.WithLogger(opts.Logger, "component", "spotify"),
	}, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// Request performs one authenticated call and returns the raw JSON body.
//
// A nil result with a nil error means the API answered with no content.
func (s *SpotifyService) Request(ctx context.Context, sessionKey, method, endpoint string, body any) (json.RawMessage, error) {
	return s.do(ctx, sessionKey, method, endpoint, body, false)
}

// bearer resolves the token for sessionKey. When userOnly is false, a session without a record falls back to the
// app-level token.
func (s *SpotifyService) bearer(ctx context.Context, sessionKey string, userOnly bool) (string, error) {
	if sessionKey == "" {
		if userOnly {
			return "", fmt.Errorf("%w: this request needs a signed-in session", shared.ErrUnauthenticated)
		}
		return s.tokens.AccessToken(ctx, "")
	}

	token, err := s.tokens.AccessToken(ctx, sessionKey)
	if err == nil {
		return token, nil
	}
	if userOnly || !errors.Is(err, shared.ErrUnauthenticated) {
		return "", err
	}

	s.logger.Debug("session has no credential, using app token")
	return s.tokens.AccessToken(ctx, "")
}

func (s *SpotifyService) do(ctx context.Context, sessionKey, method, endpoint string, body any, userOnly bool) (json.RawMessage, error) {
	token, err := s.bearer(ctx, sessionKey, userOnly)
	if err != nil {
		return nil, err
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limiter: %v", shared.ErrTransient, err)
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %w: %s %s", shared.ErrTransient, shared.ErrTimeout, method, endpoint)
		}
		return nil, fmt.Errorf("%w: request failed: %v", shared.ErrTransient, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", shared.ErrTransient, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := parseAPIError(resp.StatusCode, data)
		s.logger.Debug("catalog request rejected", "method", method, "endpoint", endpoint, "status", resp.StatusCode)
		return nil, apiErr
	}

	if resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	return data, nil
}

// parseAPIError extracts the provider's message from an error body.
func parseAPIError(status int, data []byte) *shared.APIError {
	apiErr := &shared.APIError{Status: status}

	for _, path := range []string{"error.message", "error_description", "error"} {
		if v := gjson.GetBytes(data, path); v.Type == gjson.String && v.String() != "" {
			apiErr.Message = v.String()
			return apiErr
		}
	}

	apiErr.Message = http.StatusText(status)
	return apiErr
}

// getJSON performs a GET and decodes the body into T. An empty body yields T's zero value.
func getJSON[T any](ctx context.Context, s *SpotifyService, sessionKey, endpoint string, userOnly bool) (T, error) {
	var v T
	data, err := s.do(ctx, sessionKey, http.MethodGet, endpoint, nil, userOnly)
	if err != nil || data == nil {
		return v, err
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("failed to decode response: %w", err)
	}
	return v, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultPageLimit
	}
	if limit > maxPageLimit {
		return maxPageLimit
	}
	return limit
}

func clampOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}

func (s *SpotifyService) query(params url.Values) string {
	if s.market != "" {
		params.Set("market", s.market)
	}
	if len(params) == 0 {
		return ""
	}
	return "?" + params.Encode()
}

func pagingParams(limit, offset int) url.Values {
	return url.Values{
		"limit":  {strconv.Itoa(clampLimit(limit))},
		"offset": {strconv.Itoa(clampOffset(offset))},
	}
}

// Search runs one combined search across types (all categories when empty).
func (s *SpotifyService) Search(ctx context.Context, sessionKey, q string, types []string, limit, offset int) (*SearchResults, error) {
	if len(types) == 0 {
		types = SearchTypes
	}
	typeList := strings.Join(types, ",")
	limit, offset = clampLimit(limit), clampOffset(offset)

	key := cache.Key("spotify.search",
		"q", cache.Text(q), "type", typeList, "limit", strconv.Itoa(limit), "offset", strconv.Itoa(offset), "market", s.market)

	return cache.GetOrCompute(ctx, s.cache, key, cache.TTLSearch, func(ctx context.Context) (*SearchResults, error) {
		params := pagingParams(limit, offset)
		params.Set("q", q)
		params.Set("type", typeList)

		raw, err := getJSON[SpotifySearchResponse](ctx, s, sessionKey, "/search"+s.query(params), false)
		if err != nil {
			return nil, err
		}

		return &SearchResults{
			Tracks:    pageOf(raw.Tracks, TrackItem),
			Artists:   pageOf(raw.Artists, ArtistItem),
			Albums:    pageOf(raw.Albums, AlbumItem),
			Playlists: pageOf(raw.Playlists, PlaylistItem),
		}, nil
	})
}

// Artist retrieves an artist by ID.
func (s *SpotifyService) Artist(ctx context.Context, sessionKey, id string) (*models.Item, error) {
	key := cache.Key("spotify.artist", "id", id)
	return cache.GetOrCompute(ctx, s.cache, key, cache.TTLArtist, func(ctx context.Context) (*models.Item, error) {
		raw, err := getJSON[SpotifyArtist](ctx, s, sessionKey, "/artists/"+url.PathEscape(id), false)
		if err != nil {
			return nil, err
		}
		item := ArtistItem(&raw)
		return &item, nil
	})
}

// ArtistTopTracks retrieves an artist's most popular tracks in the configured market.
func (s *SpotifyService) ArtistTopTracks(ctx context.Context, sessionKey, id string) ([]models.Item, error) {
	key := cache.Key("spotify.artist.top", "id", id, "market", s.market)
	return cache.GetOrCompute(ctx, s.cache, key, cache.TTLArtist, func(ctx context.Context) ([]models.Item, error) {
		endpoint := "/artists/" + url.PathEscape(id) + "/top-tracks" + s.query(url.Values{})

		raw, err := getJSON[struct {
			Tracks []*SpotifyTrack `json:"tracks"`
		}](ctx, s, sessionKey, endpoint, false)
		if err != nil {
			return nil, err
		}

		items := make([]models.Item, 0, len(raw.Tracks))
		for _, t := range raw.Tracks {
			if t != nil {
				items = append(items, TrackItem(t))
			}
		}
		return items, nil
	})
}

// ArtistAlbums retrieves a page of an artist's albums.
func (s *SpotifyService) ArtistAlbums(ctx context.Context, sessionKey, id string, limit, offset int) (*models.Page[models.Item], error) {
	limit, offset = clampLimit(limit), clampOffset(offset)
	key := cache.Key("spotify.artist.albums", "id", id, "limit", strconv.Itoa(limit), "offset", strconv.Itoa(offset), "market", s.market)

	return cache.GetOrCompute(ctx, s.cache, key, cache.TTLArtist, func(ctx context.Context) (*models.Page[models.Item], error) {
		endpoint := "/artists/" + url.PathEscape(id) + "/albums" + s.query(pagingParams(limit, offset))

		raw, err := getJSON[SpotifyPaging[*SpotifyAlbum]](ctx, s, sessionKey, endpoint, false)
		if err != nil {
			return nil, err
		}
		page := pageOf(&raw, AlbumItem)
		return &page, nil
	})
}

// Album retrieves an album by ID.
func (s *SpotifyService) Album(ctx context.Context, sessionKey, id string) (*models.Item, error) {
	key := cache.Key("spotify.album", "id", id, "market", s.market)
	return cache.GetOrCompute(ctx, s.cache, key, cache.TTLAlbum, func(ctx context.Context) (*models.Item, error) {
		raw, err := getJSON[SpotifyAlbum](ctx, s, sessionKey, "/albums/"+url.PathEscape(id)+s.query(url.Values{}), false)
		if err != nil {
			return nil, err
		}
		item := AlbumItem(&raw)
		return &item, nil
	})
}

// AlbumTracks retrieves a page of an album's tracks.
//
// Album listings carry simplified tracks, so the album name, ID and cover are copied from the album itself.
func (s *SpotifyService) AlbumTracks(ctx context.Context, sessionKey, id string, limit, offset int) (*models.Page[models.Item], error) {
	limit, offset = clampLimit(limit), clampOffset(offset)
	key := cache.Key("spotify.album.tracks", "id", id, "limit", strconv.Itoa(limit), "offset", strconv.Itoa(offset), "market", s.market)

	return cache.GetOrCompute(ctx, s.cache, key, cache.TTLAlbum, func(ctx context.Context) (*models.Page[models.Item], error) {
		album, err := s.Album(ctx, sessionKey, id)
		if err != nil {
			return nil, err
		}

		endpoint := "/albums/" + url.PathEscape(id) + "/tracks" + s.query(pagingParams(limit, offset))
		raw, err := getJSON[SpotifyPaging[*SpotifyTrack]](ctx, s, sessionKey, endpoint, false)
		if err != nil {
			return nil, err
		}

		page := pageOf(&raw, TrackItem)
		for i := range page.Items {
			item := &page.Items[i]
			item.ImageURL = album.ImageURL
			item.TrackInfo.Album = album.Name
			item.TrackInfo.AlbumID = album.ID
		}
		return &page, nil
	})
}

// Track retrieves a single track by ID.
func (s *SpotifyService) Track(ctx context.Context, sessionKey, id string) (*models.Item, error) {
	key := cache.Key("spotify.track", "id", id, "market", s.market)
	return cache.GetOrCompute(ctx, s.cache, key, cache.TTLTrack, func(ctx context.Context) (*models.Item, error) {
		raw, err := getJSON[SpotifyTrack](ctx, s, sessionKey, "/tracks/"+url.PathEscape(id)+s.query(url.Values{}), false)
		if err != nil {
			return nil, err
		}
		item := TrackItem(&raw)
		return &item, nil
	})
}

// Playlist retrieves a playlist's metadata by ID.
func (s *SpotifyService) Playlist(ctx context.Context, sessionKey, id string) (*models.Item, error) {
	key := cache.Key("spotify.playlist", "id", id, "market", s.market)
	return cache.GetOrCompute(ctx, s.cache, key, cache.TTLPlaylist, func(ctx context.Context) (*models.Item, error) {
		params := url.Values{"fields": {"id,name,description,owner,public,followers,images,tracks.total,uri"}}
		raw, err := getJSON[SpotifyPlaylist](ctx, s, sessionKey, "/playlists/"+url.PathEscape(id)+s.query(params), false)
		if err != nil {
			return nil, err
		}
		item := PlaylistItem(&raw)
		return &item, nil
	})
}

// PlaylistTracks retrieves a page of a playlist's tracks.
func (s *SpotifyService) PlaylistTracks(ctx context.Context, sessionKey, id string, limit, offset int) (*models.Page[models.Item], error) {
	limit, offset = clampLimit(limit), clampOffset(offset)
	key := cache.Key("spotify.playlist.tracks", "id", id, "limit", strconv.Itoa(limit), "offset", strconv.Itoa(offset), "market", s.market)

	return cache.GetOrCompute(ctx, s.cache, key, cache.TTLPlaylist, func(ctx context.Context) (*models.Page[models.Item], error) {
		endpoint := "/playlists/" + url.PathEscape(id) + "/tracks" + s.query(pagingParams(limit, offset))
		raw, err := getJSON[SpotifyPaging[SpotifyPlaylistTrack]](ctx, s, sessionKey, endpoint, false)
		if err != nil {
			return nil, err
		}
		page := trackPageOf(&raw)
		return &page, nil
	})
}

// NewReleases retrieves a page of newly released albums.
func (s *SpotifyService) NewReleases(ctx context.Context, sessionKey string, limit, offset int) (*models.Page[models.Item], error) {
	limit, offset = clampLimit(limit), clampOffset(offset)
	key := cache.Key("spotify.browse.new-releases", "limit", strconv.Itoa(limit), "offset", strconv.Itoa(offset))

	return cache.GetOrCompute(ctx, s.cache, key, cache.TTLBrowse, func(ctx context.Context) (*models.Page[models.Item], error) {
		raw, err := getJSON[struct {
			Albums *SpotifyPaging[*SpotifyAlbum] `json:"albums"`
		}](ctx, s, sessionKey, "/browse/new-releases?"+pagingParams(limit, offset).Encode(), false)
		if err != nil {
			return nil, err
		}
		page := pageOf(raw.Albums, AlbumItem)
		return &page, nil
	})
}

// FeaturedPlaylists retrieves a page of editorially featured playlists.
func (s *SpotifyService) FeaturedPlaylists(ctx context.Context, sessionKey string, limit, offset int) (*models.Page[models.Item], error) {
	limit, offset = clampLimit(limit), clampOffset(offset)
	key := cache.Key("spotify.browse.featured", "limit", strconv.Itoa(limit), "offset", strconv.Itoa(offset))

	return cache.GetOrCompute(ctx, s.cache, key, cache.TTLBrowse, func(ctx context.Context) (*models.Page[models.Item], error) {
		raw, err := getJSON[struct {
			Playlists *SpotifyPaging[*SpotifyPlaylist] `json:"playlists"`
		}](ctx, s, sessionKey, "/browse/featured-playlists?"+pagingParams(limit, offset).Encode(), false)
		if err != nil {
			return nil, err
		}
		page := pageOf(raw.Playlists, PlaylistItem)
		return &page, nil
	})
}

// Categories retrieves a page of browse categories.
func (s *SpotifyService) Categories(ctx context.Context, sessionKey string, limit, offset int) (*models.Page[Category], error) {
	limit, offset = clampLimit(limit), clampOffset(offset)
	key := cache.Key("spotify.browse.categories", "limit", strconv.Itoa(limit), "offset", strconv.Itoa(offset))

	return cache.GetOrCompute(ctx, s.cache, key, cache.TTLBrowse, func(ctx context.Context) (*models.Page[Category], error) {
		raw, err := getJSON[struct {
			Categories *SpotifyPaging[SpotifyCategory] `json:"categories"`
		}](ctx, s, sessionKey, "/browse/categories?"+pagingParams(limit, offset).Encode(), false)
		if err != nil {
			return nil, err
		}

		page := &models.Page[Category]{Items: []Category{}}
		if raw.Categories == nil {
			return page, nil
		}
		page.Total, page.Limit, page.Offset = raw.Categories.Total, raw.Categories.Limit, raw.Categories.Offset
		page.Next, page.Previous = raw.Categories.Next, raw.Categories.Previous
		for _, c := range raw.Categories.Items {
			page.Items = append(page.Items, Category{ID: c.ID, Name: c.Name, IconURL: firstImage(c.Icons)})
		}
		return page, nil
	})
}

// UserProfile retrieves the signed-in user's profile. Never cached.
func (s *SpotifyService) UserProfile(ctx context.Context, sessionKey string) (*UserProfile, error) {
	raw, err := getJSON[SpotifyUser](ctx, s, sessionKey, "/me", true)
	if err != nil {
		return nil, err
	}
	return &UserProfile{
		ID:          raw.ID,
		DisplayName: raw.DisplayName,
		Email:       raw.Email,
		Country:     raw.Country,
		Product:     raw.Product,
		Followers:   raw.Followers.Total,
		ImageURL:    firstImage(raw.Images),
	}, nil
}

// SavedTracks retrieves a page of the signed-in user's saved tracks. Never cached.
func (s *SpotifyService) SavedTracks(ctx context.Context, sessionKey string, limit, offset int) (*models.Page[models.Item], error) {
	endpoint := "/me/tracks" + s.query(pagingParams(limit, offset))
	raw, err := getJSON[SpotifyPaging[SpotifyPlaylistTrack]](ctx, s, sessionKey, endpoint, true)
	if err != nil {
		return nil, err
	}
	page := trackPageOf(&raw)
	return &page, nil
}

// AllPlaylistTracks follows pagination until every track of a playlist is collected.
func (s *SpotifyService) AllPlaylistTracks(ctx context.Context, sessionKey, id string) ([]models.Item, error) {
	return collect(ctx, func(ctx context.Context, offset int) (*models.Page[models.Item], error) {
		return s.PlaylistTracks(ctx, sessionKey, id, maxPageLimit, offset)
	})
}

// AllAlbumTracks follows pagination until every track of an album is collected.
func (s *SpotifyService) AllAlbumTracks(ctx context.Context, sessionKey, id string) ([]models.Item, error) {
	return collect(ctx, func(ctx context.Context, offset int) (*models.Page[models.Item], error) {
		return s.AlbumTracks(ctx, sessionKey, id, maxPageLimit, offset)
	})
}

func collect(ctx context.Context, fetch func(ctx context.Context, offset int) (*models.Page[models.Item], error)) ([]models.Item, error) {
	var all []models.Item
	offset := 0
	for {
		page, err := fetch(ctx, offset)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Items...)

		if !page.HasNext() || page.Limit <= 0 {
			return all, nil
		}
		offset += page.Limit
	}
}
