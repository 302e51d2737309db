// Package query is the client-side cache of remote collections.
//
// Every view reads server data through a Cache keyed by Key. Subscribers of
// the same key share one entry and one in-flight fetch. Writes never update
// entries directly: after a successful mutation the affected key prefixes
// are invalidated and subscribed entries fetch again, so the server stays
// the single source of truth.
//
// A fetch result is applied only if it belongs to the entry's current
// flight. Results that arrive after an invalidation, eviction or the last
// subscriber leaving are dropped.
//
// Entries move between three states:
//
//	Pending --fetch ok--> Ready --invalidate--> Ready (stale, fetching)
//	Pending --fetch err-> Error --subscribe---> Pending/Error (fetching)
//
// Error entries keep the last good data so views can degrade instead of
// going blank.
package query
