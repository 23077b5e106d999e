package search

import (
	"testing"

	"github.com/desertthunder/soundbridge/internal/models"
	"github.com/stretchr/testify/assert"
)

func scored(id string, kind models.ItemType, relevance float64) models.Item {
	return models.Item{ID: id, Type: kind, Relevance: relevance}
}

func ids(items []models.Item) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.ID
	}
	return out
}

func TestRankCategory(t *testing.T) {
	items := []models.Item{
		{ID: "low", Relevance: 10},
		{ID: "quiet", Relevance: 50, Popularity: pop(20)},
		{ID: "loud", Relevance: 50, Popularity: pop(90)},
		{ID: "niche", Relevance: 50, Popularity: pop(20), ArtistInfo: &models.ArtistInfo{Followers: 10}},
		{ID: "famous", Relevance: 50, Popularity: pop(20), ArtistInfo: &models.ArtistInfo{Followers: 9000}},
		{ID: "top", Relevance: 900},
	}

	RankCategory(items)
	assert.Equal(t, []string{"top", "loud", "famous", "niche", "quiet", "low"}, ids(items))
}

func TestInterleave(t *testing.T) {
	tracks := []models.Item{
		scored("t1", models.TypeTrack, 500), scored("t2", models.TypeTrack, 400), scored("t3", models.TypeTrack, 300),
	}
	artists := []models.Item{scored("a1", models.TypeArtist, 1000), scored("a2", models.TypeArtist, 5)}
	albums := []models.Item{scored("al1", models.TypeAlbum, 450)}
	var playlists []models.Item

	t.Run("Per Category Cap", func(t *testing.T) {
		got := Interleave(4, tracks, artists, albums, playlists)
		assert.Equal(t, []string{"a1", "t1", "al1"}, ids(got))
	})

	t.Run("Truncates After Sorting", func(t *testing.T) {
		got := Interleave(5, tracks, artists, albums, playlists)
		assert.Equal(t, []string{"a1", "t1", "al1", "t2", "a2"}, ids(got))

		got = Interleave(3, tracks, artists, albums, playlists)
		assert.Equal(t, []string{"a1", "t1", "al1"}, ids(got))
	})

	t.Run("Equal Relevance Keeps Round Robin Order", func(t *testing.T) {
		got := Interleave(8,
			[]models.Item{scored("t1", models.TypeTrack, 1), scored("t2", models.TypeTrack, 1)},
			[]models.Item{scored("a1", models.TypeArtist, 1), scored("a2", models.TypeArtist, 1)},
		)
		assert.Equal(t, []string{"t1", "a1", "t2", "a2"}, ids(got))
	})

	t.Run("Default Limit", func(t *testing.T) {
		many := make([]models.Item, 30)
		for i := range many {
			many[i] = scored("t", models.TypeTrack, float64(100-i))
		}
		assert.Len(t, Interleave(0, many, many, many, many), DefaultLimit)
		assert.Len(t, Interleave(-3, many), 5)
	})

	t.Run("No Categories", func(t *testing.T) {
		assert.Empty(t, Interleave(10))
	})
}
