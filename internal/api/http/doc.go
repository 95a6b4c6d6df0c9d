// Package http provides HTTP handlers for the shell's debug REST API.
//
// This package implements all HTTP endpoints using the Gin framework:
// navigator introspection and control, intent dispatch, app install and
// uninstall, and preference editing.
//
// Endpoints:
//   - Health: / and /health
//   - Navigator: /stack, /actions, /intents/dispatch, /navigator/back|sleep|wake
//   - Apps: /apps, /apps/install, /apps/:id
//   - Prefs: /prefs, /prefs/:ns, /prefs/:ns/:key
//   - Metrics: /metrics/json
//
// Reads (stack snapshots, action lists, preference values) answer from
// the calling goroutine. Dispatch, back, sleep, and wake run on the
// looper so every lifecycle hook fires on the UI thread.
//
// Example Usage:
//
//	handlers := http.NewHandlers(nav, loop, appMgr, prefMgr, metrics)
//	router.GET("/stack", handlers.GetStack)
//	router.POST("/intents/dispatch", handlers.Dispatch)
package http
