package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errFailed = errors.New("failed")

func TestBreakerStateTransitions(t *testing.T) {
	tests := []struct {
		name          string
		settings      Settings
		requests      []bool // true = success, false = failure
		expectedState State
	}{
		{
			name: "stays closed on successes",
			settings: Settings{
				MaxRequests: 1,
				Interval:    time.Minute,
				Timeout:     time.Minute,
			},
			requests:      []bool{true, true, true},
			expectedState: StateClosed,
		},
		{
			name: "opens after consecutive failures",
			settings: Settings{
				MaxRequests: 1,
				Interval:    time.Minute,
				Timeout:     time.Minute,
				ReadyToTrip: func(counts Counts) bool {
					return counts.ConsecutiveFailures >= 3
				},
			},
			requests:      []bool{false, false, false},
			expectedState: StateOpen,
		},
		{
			name: "success resets the failure streak",
			settings: Settings{
				MaxRequests: 1,
				Interval:    time.Minute,
				Timeout:     time.Minute,
				ReadyToTrip: func(counts Counts) bool {
					return counts.ConsecutiveFailures >= 3
				},
			},
			requests:      []bool{false, false, true, false, false},
			expectedState: StateClosed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			breaker := New("test", tt.settings)

			for _, success := range tt.requests {
				_ = breaker.Do(func() error {
					if success {
						return nil
					}
					return errFailed
				})
			}

			assert.Equal(t, tt.expectedState, breaker.State())
		})
	}
}

func TestBreakerCounts(t *testing.T) {
	breaker := New("test", Settings{
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     time.Minute,
	})

	err := breaker.Do(func() error { return nil })
	require.NoError(t, err)

	counts := breaker.Counts()
	assert.Equal(t, uint32(1), counts.Requests)
	assert.Equal(t, uint32(1), counts.TotalSuccesses)
	assert.Equal(t, uint32(1), counts.ConsecutiveSuccesses)
	assert.Equal(t, uint32(0), counts.TotalFailures)

	err = breaker.Do(func() error { return errFailed })
	assert.ErrorIs(t, err, errFailed)

	counts = breaker.Counts()
	assert.Equal(t, uint32(2), counts.Requests)
	assert.Equal(t, uint32(1), counts.TotalFailures)
	assert.Equal(t, uint32(1), counts.ConsecutiveFailures)
	assert.Equal(t, uint32(0), counts.ConsecutiveSuccesses)
}

func TestBreakerOpenFailsFast(t *testing.T) {
	breaker := New("test", Settings{
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts Counts) bool {
			return counts.ConsecutiveFailures >= 2
		},
	})

	for i := 0; i < 2; i++ {
		_ = breaker.Do(func() error { return errFailed })
	}
	assert.Equal(t, StateOpen, breaker.State())

	// The call must be rejected without running fn.
	ran := false
	err := breaker.Do(func() error {
		ran = true
		return nil
	})
	assert.Equal(t, ErrCircuitOpen, err)
	assert.False(t, ran)
}

func TestBreakerHalfOpenRecovery(t *testing.T) {
	breaker := New("test", Settings{
		MaxRequests: 2,
		Interval:    time.Minute,
		Timeout:     50 * time.Millisecond,
		ReadyToTrip: func(counts Counts) bool {
			return counts.ConsecutiveFailures >= 2
		},
	})

	for i := 0; i < 2; i++ {
		_ = breaker.Do(func() error { return errFailed })
	}
	assert.Equal(t, StateOpen, breaker.State())

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, StateHalfOpen, breaker.State())

	// Successful probes up to MaxRequests close the circuit.
	for i := 0; i < 2; i++ {
		require.NoError(t, breaker.Do(func() error { return nil }))
	}
	assert.Equal(t, StateClosed, breaker.State())
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	breaker := New("test", Settings{
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     10 * time.Millisecond,
		ReadyToTrip: func(counts Counts) bool {
			return counts.ConsecutiveFailures >= 2
		},
	})

	for i := 0; i < 2; i++ {
		_ = breaker.Do(func() error { return errFailed })
	}

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, StateHalfOpen, breaker.State())

	_ = breaker.Do(func() error { return errFailed })
	assert.Equal(t, StateOpen, breaker.State())
}

func TestBreakerProbeBudget(t *testing.T) {
	breaker := New("test", Settings{
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     10 * time.Millisecond,
		ReadyToTrip: func(counts Counts) bool {
			return counts.ConsecutiveFailures >= 1
		},
	})

	_ = breaker.Do(func() error { return errFailed })
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, StateHalfOpen, breaker.State())

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = breaker.Do(func() error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	// The single probe slot is occupied; a second caller is refused
	// rather than piling onto a possibly dead store.
	err := breaker.Do(func() error { return nil })
	assert.ErrorIs(t, err, ErrTooManyRequests)

	close(release)
	<-done
	assert.Equal(t, StateClosed, breaker.State())
}

func TestBreakerPanicCountsAsFailure(t *testing.T) {
	breaker := New("test", Settings{
		Interval: time.Minute,
		Timeout:  time.Minute,
		ReadyToTrip: func(counts Counts) bool {
			return counts.ConsecutiveFailures >= 1
		},
	})

	assert.Panics(t, func() {
		_ = breaker.Do(func() error { panic("store client bug") })
	})
	assert.Equal(t, StateOpen, breaker.State())
}

func TestBreakerZeroSettingsDefaults(t *testing.T) {
	breaker := New("test", Settings{})

	// The default trip point is more than five consecutive failures.
	for i := 0; i < 5; i++ {
		_ = breaker.Do(func() error { return errFailed })
	}
	assert.Equal(t, StateClosed, breaker.State())

	_ = breaker.Do(func() error { return errFailed })
	assert.Equal(t, StateOpen, breaker.State())
}

func TestBreakerCallbacks(t *testing.T) {
	var transitions []string

	breaker := New("store", Settings{
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     10 * time.Millisecond,
		ReadyToTrip: func(counts Counts) bool {
			return counts.ConsecutiveFailures >= 2
		},
		OnStateChange: func(name string, from State, to State) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})

	for i := 0; i < 2; i++ {
		_ = breaker.Do(func() error { return errFailed })
	}

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, StateHalfOpen, breaker.State())

	assert.Contains(t, transitions, "closed->open")
	assert.Contains(t, transitions, "open->half-open")
}
