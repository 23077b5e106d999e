// Package auth owns the OAuth credential lifecycle for catalog API calls.
//
// # Sessions
//
// Each signed-in session has one [models.Credential] kept in a [CredentialStore] under its session key. [Manager]
// is the only writer. [Manager.AccessToken] hands out the stored access token while it has more than
// [models.RefreshMargin] left and otherwise refreshes it synchronously against the identity provider's token
// endpoint before returning.
//
// Refreshes for one session key are collapsed with singleflight. A caller that joins a flight receives the same
// result as the caller that started it, and each flight re-reads the record first so a refresh finished by an earlier
// flight is never repeated.
//
// # Failure classes
//
//   - the provider rejected the refresh (4xx) : the record is deleted and [shared.ErrUnauthenticated] is returned
//   - anything else (network, 5xx, timeout) : the record is kept and [shared.ErrTransient] is returned
//
// # Anonymous access
//
// An empty session key selects the process-wide client-credentials token held by [AppToken].
package auth
