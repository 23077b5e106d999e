package search

import (
	"strings"

	"github.com/desertthunder/soundbridge/internal/models"
)

const (
	exactMatch     = 1000
	prefixMatch    = 100
	substringMatch = 50
	wordMatch      = 25
	partialWord    = 10
)

// categoryBonus breaks ties in favor of tracks.
var categoryBonus = map[models.ItemType]float64{
	models.TypeTrack:    5,
	models.TypeArtist:   3,
	models.TypeAlbum:    2,
	models.TypePlaylist: 1,
}

// MatchScore rates how well text matches query, case-insensitively.
//
// The whole-string match contributes one of exact, prefix or substring. Every (query word, text word) pair then adds
// the word bonus when equal, or the partial bonus when either contains the other.
//
// An empty or blank query scores 0 against every text instead of counting as a prefix of it. A blank query would
// otherwise add the same prefix bonus to every name, so ordering is identical either way: it falls to the category
// bonus, then popularity and followers.
func MatchScore(query, text string) float64 {
	q := strings.ToLower(strings.TrimSpace(query))
	t := strings.ToLower(strings.TrimSpace(text))
	if q == "" || t == "" {
		return 0
	}

	var score float64
	switch {
	case t == q:
		score += exactMatch
	case strings.HasPrefix(t, q):
		score += prefixMatch
	case strings.Contains(t, q):
		score += substringMatch
	}

	textWords := strings.Fields(t)
	for _, qw := range strings.Fields(q) {
		for _, tw := range textWords {
			switch {
			case qw == tw:
				score += wordMatch
			case strings.Contains(tw, qw), strings.Contains(qw, tw):
				score += partialWord
			}
		}
	}
	return score
}

// Score computes the relevance of item for query.
//
// Tracks and albums also earn a share of their primary artist's match; playlists earn a share of their description's.
func Score(query string, item models.Item) float64 {
	score := MatchScore(query, item.Name) + categoryBonus[item.Type]

	switch item.Type {
	case models.TypeTrack:
		score += 0.5 * MatchScore(query, item.Artist)
	case models.TypeAlbum:
		score += 0.3 * MatchScore(query, item.Artist)
	case models.TypePlaylist:
		if item.PlaylistInfo != nil {
			score += 0.2 * MatchScore(query, item.PlaylistInfo.Description)
		}
	}
	return score
}

// ScoreAll sets Relevance on every item in place.
func ScoreAll(query string, items []models.Item) {
	for i := range items {
		items[i].Relevance = Score(query, items[i])
	}
}
