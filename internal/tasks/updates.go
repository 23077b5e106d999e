package tasks

import (
	"fmt"

	"github.com/desertthunder/soundbridge/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	FetchSource Phase = iota
	ListTracks
	FetchTracks
	Complete
)

func (p Phase) String() string {
	switch p {
	case FetchSource:
		return "fetch_source"
	case ListTracks:
		return "list_tracks"
	case FetchTracks:
		return "fetch_tracks"
	case Complete:
		return "complete"
	default:
		return ""
	}
}

func fetchingSourceUpdate(kind models.ItemType, id string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchSource,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetching %s %s...", kind, id),
	}
}

func foundCollectionUpdate(collection *models.Item, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ListTracks,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found %s: %s (%d tracks)", collection.Type, collection.Name, total),
		Data:    collection,
	}
}

func trackDoneUpdate(step, total int, res TrackResult) ProgressUpdate {
	var msg string
	switch res.Status {
	case StatusFound:
		msg = fmt.Sprintf("[%d/%d] ✓ %s - %s", step, total, res.Track.Artist, res.Track.Name)
	case StatusNotFound:
		msg = fmt.Sprintf("[%d/%d] ? %s - %s: no match", step, total, res.Track.Artist, res.Track.Name)
	default:
		msg = fmt.Sprintf("[%d/%d] ✗ %s - %s: %v", step, total, res.Track.Artist, res.Track.Name, res.Error)
	}

	return ProgressUpdate{
		Phase:   FetchTracks,
		Step:    step,
		Total:   total,
		Message: msg,
		Data:    res,
	}
}

func completeUpdate(result *FetchResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Complete,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetched %d/%d tracks (%d not found, %d failed)", result.Found, result.Total, result.NotFound, result.Failed),
		Data:    result,
	}
}
