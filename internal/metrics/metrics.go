package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	globalMetrics *Metrics
	globalMu      sync.RWMutex
)

// Metrics holds all Prometheus metrics for Copysmith
type Metrics struct {
	// Pipeline
	AnalysesTotal           *prometheus.CounterVec
	AnalysisDurationSeconds *prometheus.HistogramVec
	RegenerationsTotal      *prometheus.CounterVec
	LockContendedTotal      prometheus.Counter

	// Upstream services
	ExternalCallsTotal *prometheus.CounterVec

	// Analytics log
	EventsRecordedTotal *prometheus.CounterVec
	EventsDroppedTotal  *prometheus.CounterVec

	// API metrics
	APIRequestsTotal          *prometheus.CounterVec
	APIRequestDurationSeconds *prometheus.HistogramVec
	APIErrorsTotal            *prometheus.CounterVec

	// Rate limiting
	RateLimitExceededTotal *prometheus.CounterVec

	// System metrics
	UptimeSeconds    prometheus.Gauge
	Goroutines       prometheus.Gauge
	StorageUsedBytes prometheus.Gauge

	registry *prometheus.Registry
}

// New creates a new Metrics instance with all metrics registered
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		AnalysesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "copysmith_analyses_total",
				Help: "Total number of landing page analyses by outcome",
			},
			[]string{"outcome"},
		),
		AnalysisDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "copysmith_analysis_duration_seconds",
				Help:    "Duration of content source runs in seconds",
				Buckets: []float64{.01, .1, .5, 1, 2.5, 5, 10, 20, 40, 60, 120},
			},
			[]string{"outcome"},
		),
		RegenerationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "copysmith_regenerations_total",
				Help: "Total number of single field regenerations",
			},
			[]string{"field", "outcome"},
		),
		LockContendedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "copysmith_analysis_lock_contended_total",
				Help: "Total number of analyses rejected because the same URL was in flight",
			},
		),

		ExternalCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "copysmith_external_calls_total",
				Help: "Total number of calls to extraction and generation services",
			},
			[]string{"service", "status"},
		),

		EventsRecordedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "copysmith_events_recorded_total",
				Help: "Total number of analytics events recorded",
			},
			[]string{"event_type"},
		),
		EventsDroppedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "copysmith_events_dropped_total",
				Help: "Total number of analytics events that could not be written",
			},
			[]string{"sink"},
		),

		// API metrics
		APIRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "copysmith_api_requests_total",
				Help: "Total number of API requests",
			},
			[]string{"method", "path", "status"},
		),
		APIRequestDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "copysmith_api_request_duration_seconds",
				Help:    "API request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"method", "path"},
		),
		APIErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "copysmith_api_errors_total",
				Help: "Total number of API errors",
			},
			[]string{"error_type"},
		),

		// Rate limiting
		RateLimitExceededTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "copysmith_ratelimit_exceeded_total",
				Help: "Total number of rate limit exceeded events",
			},
			[]string{"level"},
		),

		// System metrics
		UptimeSeconds: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "copysmith_uptime_seconds",
				Help: "Server uptime in seconds",
			},
		),
		Goroutines: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "copysmith_goroutines",
				Help: "Number of active goroutines",
			},
		),
		StorageUsedBytes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "copysmith_storage_used_bytes",
				Help: "SQLite database file size in bytes",
			},
		),

		registry: reg,
	}

	// Register all metrics
	reg.MustRegister(
		m.AnalysesTotal,
		m.AnalysisDurationSeconds,
		m.RegenerationsTotal,
		m.LockContendedTotal,
		m.ExternalCallsTotal,
		m.EventsRecordedTotal,
		m.EventsDroppedTotal,
		m.APIRequestsTotal,
		m.APIRequestDurationSeconds,
		m.APIErrorsTotal,
		m.RateLimitExceededTotal,
		m.UptimeSeconds,
		m.Goroutines,
		m.StorageUsedBytes,
	)

	return m
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// SetGlobal sets the global metrics instance
func SetGlobal(m *Metrics) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalMetrics = m
}

// Global returns the global metrics instance
func Global() *Metrics {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalMetrics
}

// IncAnalyses increments the analysis counter for an outcome
// (new, reused, reanalyzed, failed)
func IncAnalyses(outcome string) {
	m := Global()
	if m != nil {
		m.AnalysesTotal.WithLabelValues(outcome).Inc()
	}
}

// ObserveAnalysisDuration records how long a content source run took
func ObserveAnalysisDuration(outcome string, seconds float64) {
	m := Global()
	if m != nil {
		m.AnalysisDurationSeconds.WithLabelValues(outcome).Observe(seconds)
	}
}

// IncRegenerations increments the regeneration counter
func IncRegenerations(field, outcome string) {
	m := Global()
	if m != nil {
		m.RegenerationsTotal.WithLabelValues(field, outcome).Inc()
	}
}

// IncLockContended increments the in-flight rejection counter
func IncLockContended() {
	m := Global()
	if m != nil {
		m.LockContendedTotal.Inc()
	}
}

// IncExternalCalls increments the upstream call counter
func IncExternalCalls(service, status string) {
	m := Global()
	if m != nil {
		m.ExternalCallsTotal.WithLabelValues(service, status).Inc()
	}
}

// IncEventsRecorded increments the recorded events counter
func IncEventsRecorded(eventType string) {
	m := Global()
	if m != nil {
		m.EventsRecordedTotal.WithLabelValues(eventType).Inc()
	}
}

// IncEventsDropped increments the dropped events counter
func IncEventsDropped(sink string) {
	m := Global()
	if m != nil {
		m.EventsDroppedTotal.WithLabelValues(sink).Inc()
	}
}

// IncRateLimitExceeded increments rate limit exceeded counter
func IncRateLimitExceeded(level string) {
	m := Global()
	if m != nil {
		m.RateLimitExceededTotal.WithLabelValues(level).Inc()
	}
}

// IncAPIErrors increments API error counter
func IncAPIErrors(errorType string) {
	m := Global()
	if m != nil {
		m.APIErrorsTotal.WithLabelValues(errorType).Inc()
	}
}
