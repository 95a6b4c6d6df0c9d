package resilience

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrCircuitOpen rejects calls while the breaker is open.
	ErrCircuitOpen = errors.New("circuit breaker is open")

	// ErrTooManyRequests rejects calls beyond the half-open probe budget.
	ErrTooManyRequests = errors.New("too many requests")
)

// State is the breaker position.
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Counts accumulates call outcomes within one epoch.
type Counts struct {
	Requests             uint32
	TotalSuccesses       uint32
	TotalFailures        uint32
	ConsecutiveSuccesses uint32
	ConsecutiveFailures  uint32
}

func (c *Counts) success() {
	c.TotalSuccesses++
	c.ConsecutiveSuccesses++
	c.ConsecutiveFailures = 0
}

func (c *Counts) failure() {
	c.TotalFailures++
	c.ConsecutiveFailures++
	c.ConsecutiveSuccesses = 0
}

// Settings configures a breaker.
type Settings struct {
	// MaxRequests caps probe calls while half-open.
	MaxRequests uint32
	// Interval is how often closed-state counts reset.
	Interval time.Duration
	// Timeout is how long the breaker stays open before probing.
	Timeout time.Duration
	// ReadyToTrip is consulted after each closed-state failure.
	ReadyToTrip func(counts Counts) bool
	// OnStateChange observes transitions.
	OnStateChange func(name string, from, to State)
}

// Breaker guards calls to an unreliable dependency, here the app store
// on the far side of a device's Wi-Fi link. Repeated failures open the
// circuit so callers fail fast with ErrCircuitOpen instead of waiting
// out the transport's retry schedule; after Timeout a small probe
// budget decides whether the store is back.
//
// Outcomes are stamped with the epoch they started in, so a slow call
// finishing after the breaker moved on cannot corrupt the new state.
type Breaker struct {
	name     string
	settings Settings

	mu     sync.Mutex
	state  State
	counts Counts
	expiry time.Time // next closed-state reset, or the open deadline
}

// New creates a breaker. Zero settings get conservative defaults.
func New(name string, settings Settings) *Breaker {
	if settings.MaxRequests == 0 {
		settings.MaxRequests = 1
	}
	if settings.Interval == 0 {
		settings.Interval = 60 * time.Second
	}
	if settings.Timeout == 0 {
		settings.Timeout = 60 * time.Second
	}
	if settings.ReadyToTrip == nil {
		settings.ReadyToTrip = func(counts Counts) bool {
			return counts.ConsecutiveFailures > 5
		}
	}
	return &Breaker{
		name:     name,
		settings: settings,
		state:    StateClosed,
		expiry:   time.Now().Add(settings.Interval),
	}
}

// Name returns the breaker's name.
func (b *Breaker) Name() string { return b.name }

// State reports the position after rolling time forward.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	state, _ := b.advance(time.Now())
	return state
}

// Counts returns a copy of the current epoch's counters.
func (b *Breaker) Counts() Counts {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.counts
}

// Do runs fn if the breaker admits the call and records its outcome.
// A panic counts as a failure and is re-raised.
func (b *Breaker) Do(fn func() error) error {
	epoch, err := b.admit()
	if err != nil {
		return err
	}

	defer func() {
		if e := recover(); e != nil {
			b.record(epoch, false)
			panic(e)
		}
	}()

	err = fn()
	b.record(epoch, err == nil)
	return err
}

func (b *Breaker) admit() (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	state, epoch := b.advance(now)

	switch {
	case state == StateOpen:
		return epoch, ErrCircuitOpen
	case state == StateHalfOpen && b.counts.Requests >= b.settings.MaxRequests:
		return epoch, ErrTooManyRequests
	}

	b.counts.Requests++
	return epoch, nil
}

// record applies one outcome. Outcomes from an earlier epoch are stale
// and dropped.
func (b *Breaker) record(epoch uint64, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	state, current := b.advance(now)
	if current != epoch {
		return
	}

	switch {
	case ok && state == StateHalfOpen:
		b.counts.success()
		if b.counts.ConsecutiveSuccesses >= b.settings.MaxRequests {
			b.transition(StateClosed, now)
		}
	case ok:
		b.counts.success()
	case state == StateHalfOpen:
		// One failed probe re-opens immediately.
		b.transition(StateOpen, now)
	case state == StateClosed:
		b.counts.failure()
		if b.settings.ReadyToTrip(b.counts) {
			b.transition(StateOpen, now)
		}
	}
}

// advance rolls the state machine forward to now and returns the state
// with its epoch stamp.
func (b *Breaker) advance(now time.Time) (State, uint64) {
	switch b.state {
	case StateClosed:
		if !b.expiry.IsZero() && b.expiry.Before(now) {
			b.counts = Counts{}
			b.expiry = now.Add(b.settings.Interval)
		}
	case StateOpen:
		if b.expiry.Before(now) {
			b.transition(StateHalfOpen, now)
		}
	}
	return b.state, uint64(b.expiry.UnixNano())
}

func (b *Breaker) transition(to State, now time.Time) {
	if b.state == to {
		return
	}
	from := b.state
	b.state = to
	b.counts = Counts{}

	switch to {
	case StateClosed:
		b.expiry = now.Add(b.settings.Interval)
	case StateOpen:
		b.expiry = now.Add(b.settings.Timeout)
	case StateHalfOpen:
		b.expiry = time.Time{}
	}

	if b.settings.OnStateChange != nil {
		b.settings.OnStateChange(b.name, from, to)
	}
}
