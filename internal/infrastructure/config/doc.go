// Package config provides 12-factor configuration for the shell.
//
// Configuration is loaded from environment variables with sensible
// defaults, optionally overlaid with a YAML file named by MPOS_CONFIG.
// Variables are read with the MPOS_ prefix first, then unprefixed.
//
// Configuration Sections:
//   - Server: HTTP server settings (port, host)
//   - Apps: layout root, store URL, hot-rescan watching
//   - Prefs: preference store directory override
//   - Script: script runtime limits
//   - Display: surface dimensions handed to activities
//   - Logging: log level and output format
//   - RateLimit: API request throttling
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	srv := server.New(cfg)
package config
