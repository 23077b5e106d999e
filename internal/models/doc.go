// Package models defines the domain entities shared by the soundbridge packages.
//
// The package contains three groups of types:
//
// 1. Normalized catalog entities returned to callers:
//   - [Item] : tagged union over tracks, artists, albums and playlists
//   - [Page] : pagination envelope around any list of items
//
// 2. Credential state owned by the token lifecycle manager:
//   - [Credential] : one session's access token, refresh token and expiry
//
// 3. Persistent entities:
//   - [Download] : ledger row for a media file fetched for a catalog track
//
// Persistent entities implement [Model] and are stored through a [Repository].
package models
