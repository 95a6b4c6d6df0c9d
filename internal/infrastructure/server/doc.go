// Package server provides setup and orchestration for the shell.
//
// This package wires all components:
//   - UI thread (looper) and navigator over the activity registry
//   - Package manager with the script runtime as activity factory
//   - Preference stores and the on-disk layout
//   - HTTP routing with Gin, middleware stack (tracing, metrics, CORS,
//     rate limiting, recovery), and the WebSocket event hub
//
// Server Lifecycle:
//  1. Load configuration from environment/flags
//  2. Initialize logger (production or development)
//  3. Create the on-disk layout and preference stores
//  4. Start navigator and package manager, scan installed packages
//  5. Setup HTTP routes and middleware
//  6. Run UI loop, event hub, and HTTP server
//  7. Graceful shutdown on context cancellation
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	srv, err := server.NewServer(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer srv.Close()
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server
