// Package metrics provides Prometheus metrics for the glucare service and
// the dashboard core.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Fetch and submit outcomes.
const (
	FetchCommitted  = "committed"
	FetchDiscarded  = "discarded"
	FetchFailed     = "failed"
	SubmitSucceeded = "succeeded"
	SubmitInvalid   = "invalid"
	SubmitFailed    = "failed"
)

// Manager owns all collectors on a private registry.
type Manager struct {
	namespace        string
	histogramBuckets []float64
	registry         *prometheus.Registry

	fetches             *prometheus.CounterVec
	submits             *prometheus.CounterVec
	readingsLoaded      prometheus.Gauge
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewManager creates a Manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "glucare",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.fetches = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "dashboard",
		Name:      "fetch_total",
		Help:      "Reading fetches by outcome (committed, discarded, failed)",
	}, []string{"outcome"})

	m.submits = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "dashboard",
		Name:      "submit_total",
		Help:      "Reading submissions by outcome (succeeded, invalid, failed)",
	}, []string{"outcome"})

	m.readingsLoaded = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "dashboard",
		Name:      "readings_loaded",
		Help:      "Number of readings in the most recently committed fetch",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests by endpoint and method",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})
}

// RecordFetch counts a fetch outcome. A committed fetch also updates the
// loaded-readings gauge.
func (m *Manager) RecordFetch(outcome string, items int) {
	if m == nil {
		return
	}
	m.fetches.WithLabelValues(outcome).Inc()
	if outcome == FetchCommitted {
		m.readingsLoaded.Set(float64(items))
	}
}

// RecordSubmit counts a submit outcome.
func (m *Manager) RecordSubmit(outcome string) {
	if m == nil {
		return
	}
	m.submits.WithLabelValues(outcome).Inc()
}

// RecordHTTPRequest records one served request.
func (m *Manager) RecordHTTPRequest(endpoint, method string, status int, durationMs float64) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.httpRequests.WithLabelValues(endpoint, method, code).Inc()
	m.httpRequestDuration.WithLabelValues(endpoint, method, code).Observe(durationMs)
}

// Registry exposes the underlying registry.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
