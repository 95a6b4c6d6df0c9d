package types

// State represents activity lifecycle states
type State string

const (
	// StateNone is the zero value, before OnCreate has run.
	StateNone State = ""

	StateCreated   State = "created"
	StateStarted   State = "started"
	StateResumed   State = "resumed"
	StatePaused    State = "paused"
	StateStopped   State = "stopped"
	StateDestroyed State = "destroyed"
)

// transitions holds the legal lifecycle moves. A stopped activity resumes
// directly when a finish reveals it, restarts when re-targeted, or is
// destroyed when popped.
var transitions = map[State][]State{
	StateCreated: {StateStarted},
	StateStarted: {StateResumed},
	StateResumed: {StatePaused},
	StatePaused:  {StateResumed, StateStopped},
	StateStopped: {StateStarted, StateResumed, StateDestroyed},
}

// CanTransition reports whether moving from s to next is a legal lifecycle step.
func (s State) CanTransition(next State) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Terminal reports whether the state admits no further transitions.
func (s State) Terminal() bool {
	return s == StateDestroyed
}

// Foreground reports whether an activity in this state holds the screen.
func (s State) Foreground() bool {
	return s == StateResumed
}
