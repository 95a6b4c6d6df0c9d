package monitoring

import (
	"sync"
	"time"

	"github.com/MicroPythonOS/shell/internal/shared/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Dispatch kinds and outcomes recorded by the navigator.
const (
	DispatchExplicit = "explicit"
	DispatchImplicit = "implicit"

	OutcomeLaunched  = "launched"
	OutcomeNoHandler = "no_handler"
	OutcomeChooser   = "chooser"
	OutcomeReused    = "reused"
	OutcomeError     = "error"

	ResultDelivered = "delivered"
	ResultDiscarded = "discarded"
)

// latencyWindow bounds the rolling sample used for JSON aggregation.
const latencyWindow = 1024

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestSize     *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Lifecycle metrics
	TransitionsTotal *prometheus.CounterVec
	HookDuration     *prometheus.HistogramVec
	StackDepth       prometheus.Gauge
	LaunchesTotal    prometheus.Counter

	// Dispatch metrics
	DispatchesTotal *prometheus.CounterVec

	// Result channel metrics
	ResultsTotal *prometheus.CounterVec

	// Package metrics
	AppsInstalled prometheus.Gauge
	InstallsTotal prometheus.Counter

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time

	// Rolling hook-latency window and counters for the JSON API
	mu        sync.RWMutex
	latencies []float64 // seconds, ring buffer; protected by mu
	latIdx    int
	latFull   bool
	snapshot  MetricsSnapshot
}

// MetricsSnapshot holds current counter values for the JSON API
type MetricsSnapshot struct {
	TotalRequests    int64
	TotalErrors      int64
	TotalLaunches    int64
	TotalTransitions int64
	ResultsDelivered int64
	ResultsDiscarded int64
	StackDepth       int64
	WSConnections    int64
}

// NewMetrics creates a new metrics collector
func NewMetrics() *Metrics {
	m := &Metrics{
		startTime: time.Now(),
		latencies: make([]float64, latencyWindow),

		// HTTP metrics
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shell_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "shell_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		RequestSize: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "shell_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000},
			},
			[]string{"method", "path"},
		),
		ResponseSize: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "shell_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000},
			},
			[]string{"method", "path"},
		),

		// Lifecycle metrics
		TransitionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shell_lifecycle_transitions_total",
				Help: "Total number of completed lifecycle hooks",
			},
			[]string{"hook", "component"},
		),
		HookDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "shell_lifecycle_hook_duration_seconds",
				Help:    "Lifecycle hook duration in seconds",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
			},
			[]string{"hook"},
		),
		StackDepth: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "shell_stack_depth",
				Help: "Current back stack depth",
			},
		),
		LaunchesTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "shell_launches_total",
				Help: "Total number of activity launches",
			},
		),

		// Dispatch metrics
		DispatchesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shell_intent_dispatches_total",
				Help: "Total number of intent dispatches",
			},
			[]string{"kind", "outcome"},
		),

		// Result channel metrics
		ResultsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shell_results_total",
				Help: "Total number of activity results by outcome",
			},
			[]string{"outcome"},
		),

		// Package metrics
		AppsInstalled: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "shell_apps_installed",
				Help: "Number of installed app packages",
			},
		),
		InstallsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "shell_installs_total",
				Help: "Total number of package installs",
			},
		),

		// WebSocket metrics
		WSConnections: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "shell_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),
		WSMessages: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shell_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),

		// System metrics
		Uptime: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "shell_uptime_seconds",
				Help: "Shell uptime in seconds",
			},
		),
	}

	// Start uptime updater
	go m.updateUptime()

	return m
}

// updateUptime continuously updates the uptime metric
func (m *Metrics) updateUptime() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for range ticker.C {
		m.Uptime.Set(time.Since(m.startTime).Seconds())
	}
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, reqSize, respSize int64) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.RequestSize.WithLabelValues(method, path).Observe(float64(reqSize))
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))

	m.mu.Lock()
	m.snapshot.TotalRequests++
	if status != "" && (status[0] == '4' || status[0] == '5') {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordTransition records a completed lifecycle hook
func (m *Metrics) RecordTransition(t types.Transition) {
	m.TransitionsTotal.WithLabelValues(string(t.Hook), t.Component).Inc()
	m.HookDuration.WithLabelValues(string(t.Hook)).Observe(t.Elapsed.Seconds())

	m.mu.Lock()
	m.snapshot.TotalTransitions++
	m.latencies[m.latIdx] = t.Elapsed.Seconds()
	m.latIdx++
	if m.latIdx == len(m.latencies) {
		m.latIdx = 0
		m.latFull = true
	}
	m.mu.Unlock()
}

// IncLaunches increments the launch counter
func (m *Metrics) IncLaunches() {
	m.LaunchesTotal.Inc()

	m.mu.Lock()
	m.snapshot.TotalLaunches++
	m.mu.Unlock()
}

// SetStackDepth sets the current back stack depth
func (m *Metrics) SetStackDepth(depth int) {
	m.StackDepth.Set(float64(depth))

	m.mu.Lock()
	m.snapshot.StackDepth = int64(depth)
	m.mu.Unlock()
}

// RecordDispatch records an intent dispatch
func (m *Metrics) RecordDispatch(kind, outcome string) {
	m.DispatchesTotal.WithLabelValues(kind, outcome).Inc()
}

// RecordResult records a result delivery or discard
func (m *Metrics) RecordResult(outcome string) {
	m.ResultsTotal.WithLabelValues(outcome).Inc()

	m.mu.Lock()
	if outcome == ResultDelivered {
		m.snapshot.ResultsDelivered++
	} else {
		m.snapshot.ResultsDiscarded++
	}
	m.mu.Unlock()
}

// SetAppsInstalled sets the installed package gauge
func (m *Metrics) SetAppsInstalled(count int) {
	m.AppsInstalled.Set(float64(count))
}

// IncInstalls increments the install counter
func (m *Metrics) IncInstalls() {
	m.InstallsTotal.Inc()
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()

	m.mu.Lock()
	m.snapshot.WSConnections++
	m.mu.Unlock()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()

	m.mu.Lock()
	m.snapshot.WSConnections--
	m.mu.Unlock()
}
