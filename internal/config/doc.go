// Package config loads the client configuration.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/repeater/config.toml (default)
//  3. If the config file doesn't exist, start from defaults
//  4. Apply REPEATER_* environment variables on top
//  5. Fill any field still empty with its default
//
// # Default Values
//
//   - api_url: http://127.0.0.1:8000
//   - data_dir: ~/.local/share/repeater
//   - log_file: <data_dir>/repeater.log
//   - log_level: info
//   - request_timeout: 10s
//   - poll_interval: 30s
//   - rate_limit: 20 (requests per second; negative disables)
//   - rate_burst: 10
//
// The session database lives at <data_dir>/session.db.
//
// # Environment Variables
//
// Each field can be overridden with its upper-cased name and the REPEATER_
// prefix, e.g. REPEATER_API_URL or REPEATER_REQUEST_TIMEOUT=5s.
//
// # Example Config
//
//	api_url = "https://repeater.example.com/api"
//	log_level = "debug"
//	request_timeout = "5s"
//
// Durations use Go syntax ("500ms", "10s"). Paths starting with ~ expand to
// the user's home directory.
package config
