package types

import "time"

// Hook names a lifecycle callback.
type Hook string

const (
	HookCreate  Hook = "on_create"
	HookStart   Hook = "on_start"
	HookResume  Hook = "on_resume"
	HookPause   Hook = "on_pause"
	HookStop    Hook = "on_stop"
	HookDestroy Hook = "on_destroy"
)

// Transition records a completed lifecycle hook for observers
// (metrics, the event stream, session tracking).
type Transition struct {
	LaunchID  string        `json:"launch_id"`
	Component string        `json:"component"`
	Hook      Hook          `json:"hook"`
	From      State         `json:"from"`
	To        State         `json:"to"`
	Animated  bool          `json:"animated"`
	Elapsed   time.Duration `json:"elapsed_ns"`
	At        time.Time     `json:"at"`
}

// StackEntry is a read-only snapshot of one back-stack frame.
// Position 0 is the bottom of the stack.
type StackEntry struct {
	Position  int    `json:"position"`
	Component string `json:"component"`
	LaunchID  string `json:"launch_id"`
	State     State  `json:"state"`
	NoHistory bool   `json:"no_history,omitempty"`
}

// Stats contains navigator statistics
type Stats struct {
	Depth          int     `json:"depth"`
	ResumedID      *string `json:"resumed_id,omitempty"` // Launch ID of the foreground activity
	Awake          bool    `json:"awake"`
	PendingResults int     `json:"pending_results"`
}
