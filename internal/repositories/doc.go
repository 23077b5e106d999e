// Package repositories implements SQLite persistence for session credentials and the download ledger.
//
// Key Implementations:
//   - [CredentialRepository] : one credential record per session key, usable as the auth credential store
//   - [DownloadRepository] : media files fetched per catalog track, so repeat fetches reuse the file on disk
//
// Schemas are created by the embedded migrations in the shared package. Lookups that find nothing return an error
// wrapping [shared.ErrNotFound], except the credential store's Get which reports absence as a nil record.
package repositories
