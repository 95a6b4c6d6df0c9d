/*
Package resilience provides a circuit breaker for unreliable dependencies.

The shell talks to one remote dependency it does not control: the app
store. When the store is unreachable, every install attempt would
otherwise ride out the transport's full retry schedule. The breaker
fails those calls fast with ErrCircuitOpen and probes periodically for
recovery.

# Usage

	breaker := resilience.New("store", resilience.Settings{
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})

	err := breaker.Do(func() error {
		return client.Fetch()
	})

# State machine

	Closed --[trip]-> Open --[timeout]-> Half-Open --[probes succeed]-> Closed
	                   ^                     |
	                   +----[probe fails]----+

While half-open, at most MaxRequests calls run; extra callers get
ErrTooManyRequests instead of piling onto a store that may still be
down. Outcomes carry an epoch stamp, so a slow call that finishes
after the breaker has moved on is discarded rather than recorded
against the wrong state. A panic inside Do counts as a failure and is
re-raised.
*/
package resilience
