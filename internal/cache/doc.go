// Package cache implements the read-through cache that sits in front of the catalog API.
//
// # Read-through
//
// [GetOrCompute] looks a key up in the configured [Backend] and only calls the supplied compute function on a miss.
// Values are JSON encoded. A computed value is written back with the caller's TTL unless it represents a failure:
//   - the compute function returned an error
//   - the value implements [Failer] and reports Failed
//   - the encoded value carries a top-level "success": false
//
// Backend errors never reach the caller. A failed read falls through to the compute function and a failed write is
// logged. A TTL of zero or less bypasses the cache entirely.
//
// # Backends
//
//   - [Memory] : process-local map with lazy expiry
//   - [Redis] : shared cache for multiple processes
//   - [Bolt] : embedded bbolt file that survives restarts
//
// # Keys
//
// [Key] builds deterministic keys of the form "sbx:<op>:k=v&k=v" with parameters sorted by name, so the same logical
// request always maps to the same entry. Free-text parameters go through [Text] first.
package cache
