// Package main is the entry point for the MicroPythonOS shell daemon.
//
// The shell hosts the activity navigator, the installed-package table
// and the script runtime behind a REST and WebSocket debug surface:
//
//	HTTP client → Gin router → Navigator (single UI thread)
//	                         → Package manager (builtin/ and apps/)
//	                         → Preference stores
//
// Configuration:
//   - Environment variables (MPOS_ prefix)
//   - Optional YAML file named by MPOS_CONFIG
//   - CLI flags (override both)
//
// Usage:
//
//	# Defaults: port 8000, data under ./mpos-data
//	./shell
//
//	# Custom root, store disabled, debug logging
//	./shell -root /var/lib/mpos -store "" -dev
//
// Signals:
//   - SIGINT, SIGTERM: graceful shutdown
package main
