package monitoring

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Aggregate summarizes the rolling hook-latency window plus counter
// totals for the JSON metrics endpoint. Latency figures are in
// milliseconds.
type Aggregate struct {
	UptimeSeconds    float64 `json:"uptime_seconds"`
	TotalRequests    int64   `json:"total_requests"`
	TotalErrors      int64   `json:"total_errors"`
	TotalLaunches    int64   `json:"total_launches"`
	TotalTransitions int64   `json:"total_transitions"`
	ResultsDelivered int64   `json:"results_delivered"`
	ResultsDiscarded int64   `json:"results_discarded"`
	StackDepth       int64   `json:"stack_depth"`
	WSConnections    int64   `json:"ws_connections"`

	HookLatency LatencySummary `json:"hook_latency_ms"`
}

// LatencySummary holds statistics over the recent hook latencies
type LatencySummary struct {
	Samples int     `json:"samples"`
	Mean    float64 `json:"mean"`
	Median  float64 `json:"median"`
	P95     float64 `json:"p95"`
	Stdev   float64 `json:"stdev"`
	Max     float64 `json:"max"`
}

// Snapshot computes the current aggregate
func (m *Metrics) Snapshot() Aggregate {
	m.mu.RLock()
	snap := m.snapshot
	count := m.latIdx
	if m.latFull {
		count = len(m.latencies)
	}
	window := make([]float64, count)
	copy(window, m.latencies[:count])
	m.mu.RUnlock()

	agg := Aggregate{
		UptimeSeconds:    time.Since(m.startTime).Seconds(),
		TotalRequests:    snap.TotalRequests,
		TotalErrors:      snap.TotalErrors,
		TotalLaunches:    snap.TotalLaunches,
		TotalTransitions: snap.TotalTransitions,
		ResultsDelivered: snap.ResultsDelivered,
		ResultsDiscarded: snap.ResultsDiscarded,
		StackDepth:       snap.StackDepth,
		WSConnections:    snap.WSConnections,
	}

	if len(window) > 0 {
		sorted := make([]float64, len(window))
		copy(sorted, window)
		sort.Float64s(sorted)

		agg.HookLatency = LatencySummary{
			Samples: len(window),
			Mean:    toMillis(stat.Mean(window, nil)),
			Median:  toMillis(stat.Quantile(0.5, stat.Empirical, sorted, nil)),
			P95:     toMillis(stat.Quantile(0.95, stat.Empirical, sorted, nil)),
			Max:     toMillis(sorted[len(sorted)-1]),
		}
		if len(window) > 1 {
			agg.HookLatency.Stdev = toMillis(math.Sqrt(stat.Variance(window, nil)))
		}
	}

	return agg
}

func toMillis(seconds float64) float64 {
	return seconds * 1000
}
