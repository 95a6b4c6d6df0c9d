package types

import "testing"

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to State }{
		{StateCreated, StateStarted},
		{StateStarted, StateResumed},
		{StateResumed, StatePaused},
		{StatePaused, StateResumed},
		{StatePaused, StateStopped},
		{StateStopped, StateStarted},
		{StateStopped, StateResumed},
		{StateStopped, StateDestroyed},
	}
	for _, tt := range allowed {
		if !tt.from.CanTransition(tt.to) {
			t.Errorf("Expected %s -> %s to be legal", tt.from, tt.to)
		}
	}

	forbidden := []struct{ from, to State }{
		{StateCreated, StateResumed},
		{StateResumed, StateStopped},
		{StateResumed, StateDestroyed},
		{StatePaused, StateDestroyed},
		{StateDestroyed, StateCreated},
		{StateDestroyed, StateStarted},
		{StateStarted, StatePaused},
	}
	for _, tt := range forbidden {
		if tt.from.CanTransition(tt.to) {
			t.Errorf("Expected %s -> %s to be illegal", tt.from, tt.to)
		}
	}
}

func TestTerminal(t *testing.T) {
	if !StateDestroyed.Terminal() {
		t.Error("destroyed should be terminal")
	}
	for _, s := range []State{StateCreated, StateStarted, StateResumed, StatePaused, StateStopped} {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestForeground(t *testing.T) {
	if !StateResumed.Foreground() {
		t.Error("resumed should be foreground")
	}
	for _, s := range []State{StateNone, StateCreated, StateStarted, StatePaused, StateStopped, StateDestroyed} {
		if s.Foreground() {
			t.Errorf("%s should not be foreground", s)
		}
	}
}
