// Package config loads and validates the TOML configuration file.
//
// Configuration sections by subsystem:
//   - Paths: data directory, database location, log directory
//   - Imports: politeness delay, timeouts, retry policy, user agent
//   - Sources: local corpus directories for file-based sources
//   - API: bind address for the read-only HTTP server
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
//
// Load resolves the config path (explicit flag, then
// ~/.config/compilatio/config.toml, then ./compilatio.toml), applies
// defaults, expands ~ in every path field, and validates the result. A
// missing file is not an error; defaults stand in.
package config
