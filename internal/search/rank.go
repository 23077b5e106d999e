package search

import (
	"slices"

	"github.com/desertthunder/soundbridge/internal/models"
)

// DefaultLimit applies when a caller asks for zero or fewer results.
const DefaultLimit = 20

// RankCategory sorts one category by relevance, then popularity, then followers, all descending.
func RankCategory(items []models.Item) {
	slices.SortStableFunc(items, func(a, b models.Item) int {
		if a.Relevance != b.Relevance {
			if a.Relevance > b.Relevance {
				return -1
			}
			return 1
		}
		if pa, pb := a.PopularityOrZero(), b.PopularityOrZero(); pa != pb {
			return pb - pa
		}
		return b.Followers() - a.Followers()
	})
}

// Interleave takes up to ceil(limit/4) items from each ranked category in round-robin order, re-sorts the union by
// relevance and truncates it to limit.
//
// Categories are given in priority order; equal relevance keeps the round-robin order.
func Interleave(limit int, categories ...[]models.Item) []models.Item {
	if limit <= 0 {
		limit = DefaultLimit
	}
	perCategory := (limit + 3) / 4

	merged := make([]models.Item, 0, perCategory*len(categories))
	for i := range perCategory {
		for _, items := range categories {
			if i < len(items) {
				merged = append(merged, items[i])
			}
		}
	}

	slices.SortStableFunc(merged, func(a, b models.Item) int {
		switch {
		case a.Relevance > b.Relevance:
			return -1
		case a.Relevance < b.Relevance:
			return 1
		}
		return 0
	})

	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}
