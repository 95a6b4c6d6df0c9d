// Package logging provides structured logging using uber/zap.
//
// The shell logs as JSON in production and as colored console output
// in development; every subsystem derives a named child logger so a
// line can be traced to the navigator, the package manager, or the
// script runtime at a glance.
//
// Log Levels:
//   - Debug: lifecycle minutiae, watcher events, script hook calls
//   - Info: launches, installs, scans, server start and stop
//   - Warn: recoverable faults (bad manifest, slow WS client, script errors)
//   - Error: failed operations surfaced to the caller
//   - Fatal: unusable data root (exits process)
//
// Example Usage:
//
//	logger, err := logging.New(logging.Config{Level: "info"})
//	if err != nil {
//		return err
//	}
//	nav := logger.Named("navigator")
//	nav.Info("Activity launched", zap.String("component", "home"))
//
// Tests use NewNop to silence output.
package logging
