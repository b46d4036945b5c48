// Package metrics provides Prometheus metrics for the simplehttp server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Payload size buckets in bytes: 64B .. 4MiB.
var payloadBuckets = prometheus.ExponentialBuckets(64, 4, 9) //nolint:gochecknoglobals // immutable bucket layout

// Manager manages all Prometheus metrics for the server.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	constLabels      map[string]string
	registry         prometheus.Registerer

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpInFlight        prometheus.Gauge

	// Error Metrics
	errorRateByType *prometheus.CounterVec

	// Echo Metrics
	echoPayloadBytes prometheus.Histogram
	echoErrors       *prometheus.CounterVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "simplehttp",
		subsystem:        "server",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		constLabels:      make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	// Ensure metrics are registered on the configured registry (custom by default)
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.constLabels)

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "http_requests_total",
			Help:        "Total number of HTTP requests by route, method and status code",
			ConstLabels: labels,
		},
		[]string{"route", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "http_request_duration_milliseconds",
			Help:        "HTTP request duration in milliseconds",
			Buckets:     m.histogramBuckets,
			ConstLabels: labels,
		},
		[]string{"route", "method", "status_code"},
	)

	m.httpInFlight = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_requests_in_flight",
		Help:        "Number of HTTP requests currently being served",
		ConstLabels: labels,
	})

	m.errorRateByType = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "errors_total",
			Help:        "Error responses by type and severity",
			ConstLabels: labels,
		},
		[]string{"type", "severity"},
	)

	m.echoPayloadBytes = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "echo_payload_bytes",
		Help:        "Size of request bodies accepted by the echo endpoint",
		Buckets:     payloadBuckets,
		ConstLabels: labels,
	})

	m.echoErrors = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "echo_errors_total",
			Help:        "Echo failures by kind (invalid_json, read, aborted)",
			ConstLabels: labels,
		},
		[]string{"kind"},
	)

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_memory_bytes",
		Help:        "Bytes of allocated heap objects",
		ConstLabels: labels,
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_goroutines",
		Help:        "Number of goroutines that currently exist",
		ConstLabels: labels,
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_gc_pause_milliseconds",
		Help:        "Average GC pause time in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	})
}

// RecordHTTPRequest counts a served request.
func (m *Manager) RecordHTTPRequest(route, method, statusCode string) {
	if !m.enabled {
		return
	}
	m.httpRequests.WithLabelValues(route, method, statusCode).Inc()
}

// RecordHTTPRequestDuration observes the latency of a served request.
func (m *Manager) RecordHTTPRequestDuration(route, method, statusCode string, durationMs float64) {
	if !m.enabled {
		return
	}
	m.httpRequestDuration.WithLabelValues(route, method, statusCode).Observe(durationMs)
}

// IncInFlight marks a request as started.
func (m *Manager) IncInFlight() {
	if !m.enabled {
		return
	}
	m.httpInFlight.Inc()
}

// DecInFlight marks a request as finished.
func (m *Manager) DecInFlight() {
	if !m.enabled {
		return
	}
	m.httpInFlight.Dec()
}

// RecordErrorByType counts an error response.
func (m *Manager) RecordErrorByType(errorType, severity string) {
	if !m.enabled {
		return
	}
	m.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordEchoPayload observes the size of an echoed body.
func (m *Manager) RecordEchoPayload(bytes int) {
	if !m.enabled {
		return
	}
	m.echoPayloadBytes.Observe(float64(bytes))
}

// RecordEchoError counts an echo failure of the given kind.
func (m *Manager) RecordEchoError(kind string) {
	if !m.enabled {
		return
	}
	m.echoErrors.WithLabelValues(kind).Inc()
}

// UpdateSystemMemoryUsage sets the heap allocation gauge.
func (m *Manager) UpdateSystemMemoryUsage(bytes uint64) {
	if !m.enabled {
		return
	}
	m.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine gauge.
func (m *Manager) UpdateSystemGoroutineCount(count int) {
	if !m.enabled {
		return
	}
	m.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime observes the average GC pause.
func (m *Manager) RecordSystemGCPauseTime(pauseMs float64) {
	if !m.enabled {
		return
	}
	m.systemGCPauseTime.Observe(pauseMs)
}

// Global convenience functions that delegate to the global manager.

// RecordHTTPRequest counts a served request.
func RecordHTTPRequest(route, method, statusCode string) {
	globalManager.RecordHTTPRequest(route, method, statusCode)
}

// RecordHTTPRequestDuration observes the latency of a served request.
func RecordHTTPRequestDuration(route, method, statusCode string, durationMs float64) {
	globalManager.RecordHTTPRequestDuration(route, method, statusCode, durationMs)
}

// IncInFlight marks a request as started.
func IncInFlight() { globalManager.IncInFlight() }

// DecInFlight marks a request as finished.
func DecInFlight() { globalManager.DecInFlight() }

// RecordErrorByType counts an error response.
func RecordErrorByType(errorType, severity string) {
	globalManager.RecordErrorByType(errorType, severity)
}

// RecordEchoPayload observes the size of an echoed body.
func RecordEchoPayload(bytes int) { globalManager.RecordEchoPayload(bytes) }

// RecordEchoError counts an echo failure of the given kind.
func RecordEchoError(kind string) { globalManager.RecordEchoError(kind) }

// UpdateSystemMemoryUsage sets the heap allocation gauge.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.UpdateSystemMemoryUsage(bytes) }

// UpdateSystemGoroutineCount sets the goroutine gauge.
func UpdateSystemGoroutineCount(count int) { globalManager.UpdateSystemGoroutineCount(count) }

// RecordSystemGCPauseTime observes the average GC pause.
func RecordSystemGCPauseTime(pauseMs float64) { globalManager.RecordSystemGCPauseTime(pauseMs) }

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Handler serves the custom registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(customRegistry, promhttp.HandlerOpts{})
}
