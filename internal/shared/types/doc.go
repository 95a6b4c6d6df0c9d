// Package types provides shared data structures for the shell.
//
// This package defines core types used across all shell components,
// ensuring consistent data structures between the navigator, the
// package manager, and the introspection API.
//
// Lifecycle:
//   - State: Activity state enum (created through destroyed)
//   - Hook: Lifecycle callback names
//   - Transition: Completed hook record for observers
//
// Snapshots:
//   - StackEntry: One back-stack frame
//   - Stats: Navigator statistics
//
// Request Types:
//   - DispatchRequest: Intent dispatch
//   - InstallRequest: Package installation
//   - WSMessage: Event stream framing
//
// Example Usage:
//
//	if !entry.State.CanTransition(types.StateResumed) {
//	    return fmt.Errorf("illegal transition from %s", entry.State)
//	}
package types
