// Package tasks runs bulk media fetches for catalog collections with real-time progress reporting.
//
// # Core Operations
//
// [FetchEngine] exposes two operations:
//
//  1. [FetchEngine.FetchPlaylist] : Download every track of a playlist
//     - Reads playlist metadata and follows pagination for its tracks
//     - Resolves and downloads each track through the media resolver
//     - Returns per-track results with found, not found and failed counts
//
//  2. [FetchEngine.FetchAlbum] : Same as above for an album
//
// Tracks are fetched concurrently, bounded by the configured concurrency. A track with no acceptable media match is
// recorded as not found and never aborts the run; only cancellation of the context does.
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
package tasks
