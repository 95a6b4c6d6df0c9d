package activity

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the navigator. Conditions the navigator
// absorbs instead (unknown actions, double finishes, stale UI updates)
// are logged, never returned.
var (
	// ErrInvalidIntent indicates an intent with no target, component, or action.
	ErrInvalidIntent = errors.New("intent needs a target, component, or action")

	// ErrNoSuchComponent indicates an explicit launch of an unregistered component.
	ErrNoSuchComponent = errors.New("component not registered")

	// ErrDetached indicates a navigation call from an activity that was
	// never launched through a navigator.
	ErrDetached = errors.New("activity not attached to a navigator")
)

// NavigationError wraps a failure during a navigation operation with context.
type NavigationError struct {
	Op        string // Operation that failed ("start", "redispatch", ...)
	Component string // Component involved, if known
	Err       error
}

func (e *NavigationError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("navigation %s %q: %v", e.Op, e.Component, e.Err)
	}
	return fmt.Sprintf("navigation %s: %v", e.Op, e.Err)
}

func (e *NavigationError) Unwrap() error {
	return e.Err
}
