// Package search merges the four catalog result categories into one relevance-ranked list.
//
// Scoring, deduplication and interleaving are pure functions over [models.Item] values. [Aggregator] runs the
// combined catalog query and applies them.
package search
