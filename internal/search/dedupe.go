package search

import (
	"github.com/desertthunder/soundbridge/internal/models"
	"github.com/desertthunder/soundbridge/internal/shared"
)

// typicalDurationMs is the length preferred when duplicate tracks are equally popular.
const typicalDurationMs = 210_000

// DedupeTracks collapses tracks sharing a case-insensitive (name, first artist) into one representative.
//
// The most popular variant wins; on a popularity tie the one whose duration is closest to a typical song length
// wins. Groups keep the position of their first occurrence.
func DedupeTracks(tracks []models.Item) []models.Item {
	index := make(map[string]int, len(tracks))
	out := make([]models.Item, 0, len(tracks))

	for _, t := range tracks {
		key := shared.NormalizeTrackKey(t.Name, firstArtist(t))
		i, seen := index[key]
		if !seen {
			index[key] = len(out)
			out = append(out, t)
			continue
		}
		if preferred(t, out[i]) {
			out[i] = t
		}
	}
	return out
}

func firstArtist(t models.Item) string {
	if t.TrackInfo != nil && len(t.TrackInfo.Artists) > 0 {
		return t.TrackInfo.Artists[0]
	}
	return t.Artist
}

// preferred reports whether candidate should replace current as a group's representative.
func preferred(candidate, current models.Item) bool {
	cp, np := candidate.PopularityOrZero(), current.PopularityOrZero()
	if cp != np {
		return cp > np
	}
	return durationDistance(candidate) < durationDistance(current)
}

func durationDistance(t models.Item) int {
	d := t.DurationMs() - typicalDurationMs
	if d < 0 {
		return -d
	}
	return d
}
