// Package state tracks API health and the signed-in user for the header.
//
// # Overview
//
// The query cache reports every applied fetch to Store.Record. The UI reads
// a Snapshot on each render to show whether the backend is reachable and
// whether the session has expired.
//
//	Cache fetches:               UI:
//	┌────────────────┐          ┌──────────────────┐
//	│ fetch done     │          │                  │
//	│      ↓         │          │                  │
//	│ store.Record() │─────────→│ store.Snapshot() │
//	└────────────────┘ (mutex)  └──────────────────┘
//
// # Update Semantics
//
// A failed fetch records the error and increments ConsecutiveFailures; the
// cache keeps serving the last good data. A successful fetch clears the
// error. Two or more consecutive failures mark the API offline, unless the
// failure is an expired session, which is reported as Unauthorized instead.
//
// The zero Store is ready to use.
package state
