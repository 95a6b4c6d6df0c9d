// Package looper provides the shell's single UI thread.
//
// Every lifecycle hook and UI update runs on one goroutine, the one
// that calls Run. Other goroutines hand work over with Post (async,
// droppable) or Do (synchronous, error-returning). The HTTP and
// WebSocket layers route every navigation call through Do so activity
// code never sees concurrent hook invocations.
package looper
