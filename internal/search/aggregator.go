package search

import (
	"context"
	"fmt"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/soundbridge/internal/cache"
	"github.com/desertthunder/soundbridge/internal/models"
	"github.com/desertthunder/soundbridge/internal/services"
	"github.com/desertthunder/soundbridge/internal/shared"
)

// categoryLimit is the per-category page size requested from the catalog.
const categoryLimit = 50

// Searcher runs one combined catalog search.
type Searcher interface {
	Search(ctx context.Context, sessionKey, q string, types []string, limit, offset int) (*services.SearchResults, error)
}

// Totals holds the catalog's reported match count per category.
type Totals struct {
	Tracks    int `json:"tracks"`
	Artists   int `json:"artists"`
	Albums    int `json:"albums"`
	Playlists int `json:"playlists"`
}

// Results is the aggregated search response.
//
// Items is the interleaved, truncated list. The per-category lists hold every ranked hit.
type Results struct {
	Query     string        `json:"query"`
	Items     []models.Item `json:"items"`
	Tracks    []models.Item `json:"tracks"`
	Artists   []models.Item `json:"artists"`
	Albums    []models.Item `json:"albums"`
	Playlists []models.Item `json:"playlists"`
	Totals    Totals        `json:"totals"`
}

// Aggregator merges a combined catalog search into one ranked list.
type Aggregator struct {
	searcher Searcher
	cache    *cache.Cache
	logger   *log.Logger
}

// NewAggregator creates an Aggregator. A nil cache disables result caching.
func NewAggregator(searcher Searcher, c *cache.Cache, logger *log.Logger) *Aggregator {
	return &Aggregator{
		searcher: searcher,
		cache:    c,
		logger:   shared.WithLogger(logger, "component", "search"),
	}
}

// SearchMultiType searches every category for query and returns at most limit ranked results.
//
// limit <= 0 selects [DefaultLimit]. Results are cached per normalized query and limit.
func (a *Aggregator) SearchMultiType(ctx context.Context, sessionKey, query string, limit int) (*Results, error) {
	if a.searcher == nil {
		return nil, fmt.Errorf("%w: searcher", shared.ErrMissingArgument)
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	key := cache.Key("search", "q", cache.Text(query), "limit", strconv.Itoa(limit))
	return cache.GetOrCompute(ctx, a.cache, key, cache.TTLSearch, func(ctx context.Context) (*Results, error) {
		raw, err := a.searcher.Search(ctx, sessionKey, query, services.SearchTypes, categoryLimit, 0)
		if err != nil {
			return nil, fmt.Errorf("search %q: %w", query, err)
		}

		res := Aggregate(query, limit, raw)
		a.logger.Debug("aggregated search",
			"query", query, "tracks", len(res.Tracks), "artists", len(res.Artists),
			"albums", len(res.Albums), "playlists", len(res.Playlists), "returned", len(res.Items))
		return res, nil
	})
}

// Aggregate scores, deduplicates, ranks and interleaves raw combined search results.
func Aggregate(query string, limit int, raw *services.SearchResults) *Results {
	if raw == nil {
		raw = &services.SearchResults{}
	}

	tracks := DedupeTracks(clone(raw.Tracks.Items))
	artists := clone(raw.Artists.Items)
	albums := clone(raw.Albums.Items)
	playlists := clone(raw.Playlists.Items)

	for _, items := range [][]models.Item{tracks, artists, albums, playlists} {
		ScoreAll(query, items)
		RankCategory(items)
	}

	return &Results{
		Query:     query,
		Items:     Interleave(limit, tracks, artists, albums, playlists),
		Tracks:    tracks,
		Artists:   artists,
		Albums:    albums,
		Playlists: playlists,
		Totals: Totals{
			Tracks:    raw.Tracks.Total,
			Artists:   raw.Artists.Total,
			Albums:    raw.Albums.Total,
			Playlists: raw.Playlists.Total,
		},
	}
}

// clone copies items so scoring never mutates a cached catalog page.
func clone(items []models.Item) []models.Item {
	out := make([]models.Item, len(items))
	copy(out, items)
	return out
}
