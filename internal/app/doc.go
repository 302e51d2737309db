// Package app is the composition root of the Repeater client.
//
// # Architecture
//
// Bootstrap performs the following steps:
//
//  1. Load config from ~/.config/repeater/config.toml plus REPEATER_* env
//  2. Open the zap log file (the TUI owns the terminal)
//  3. Open the bbolt session database that persists auth cookies
//  4. Build the API client, restoring any saved session
//  5. Build the shared Services: query cache, health store, mutation
//     coordinator and shortcut dispatcher
//
// Run additionally starts the background poller and blocks in the TUI.
// The cobra subcommands in cmd/repeater use Bootstrap directly.
//
// # Data Flow
//
//	view ──Subscribe──> query.Cache ──fetch──> repeater.Client ──HTTP──> API
//	  │                    ▲   │
//	  │                    │   └── OnFetch ──> state.Store (header health)
//	  │               Invalidate
//	  └──Run(op)──> mutation.Coordinator ──write──> repeater.Client
//
// # Polling Behavior
//
// The poller refreshes the due-card queue every poll_interval (default
// 30s) so cards that become due while the TUI is open show up. Only
// subscribed entries are refetched, so an unwatched queue costs nothing.
// Consecutive failures double the delay up to 30s; a successful poll resets
// it. Each poll also sweeps expired prefetched entries from the cache.
//
// # Error Handling
//
// Fatal errors (returned from Run): invalid config, unwritable log file or
// session database, bad API URL. Everything after startup is recoverable:
// failed fetches degrade the widget that owns them and are reported in the
// header via state.Store.
package app
