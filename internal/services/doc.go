// Package services implements the catalog query layer over the Spotify Web API.
//
// # Requests
//
// [SpotifyService.Request] is the single path to the API. It resolves a bearer token for the caller's session through
// a [TokenSource], preferring the session's user token and falling back to the app-level token when the session has
// no credential record, so public endpoints keep working for logged-out callers. A transient failure on the user path
// is returned as-is and never silently downgraded.
//
// Every request waits on a client-side rate limiter and is bounded by the HTTP client's timeout.
//
// # Error Handling
//
//   - non-2xx responses : [shared.APIError] with the message from "error.message" or "error_description"
//   - 204 or an empty 2xx body : an empty result, not an error
//   - transport failures : wrapped [shared.ErrTransient]
//
// # API Mappings
//
// Typed methods ([SpotifyService.Search], [SpotifyService.Track], [SpotifyService.PlaylistTracks], ...) decode the raw
// Spotify payloads ([SpotifyTrack], [SpotifyArtist], [SpotifyAlbum], [SpotifyPlaylist]) and convert them into
// [models.Item] values. Public catalog reads go through the read-through cache with per-resource TTLs. User-scoped
// reads ([SpotifyService.UserProfile], [SpotifyService.SavedTracks]) are never cached and require a signed-in session.
package services
