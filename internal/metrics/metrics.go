// Package metrics exposes conversion counters in Prometheus format.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/JonMunkholm/csvconvert/internal/core"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "csvconvert"

// Metrics holds every collector on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	ingestsTotal     *prometheus.CounterVec
	rowsParsed       prometheus.Counter
	parseDuration    prometheus.Histogram
	exportsTotal     *prometheus.CounterVec
	exportBytes      *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	rateLimitedTotal prometheus.Counter
}

// New creates the collectors. sessions and parses, when non-nil, are
// sampled at scrape time for the live session count and parses in flight.
func New(sessions func() int, parses func() int) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ingestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingests_total",
			Help:      "Files ingested, by resulting status and failure class.",
		}, []string{"status", "failure"}),
		rowsParsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_parsed_total",
			Help:      "Data rows produced by successful parses.",
		}),
		parseDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "parse_duration_seconds",
			Help:      "Time from ingestion start to result, including queueing.",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		}),
		exportsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exports_total",
			Help:      "Export requests, by format and outcome.",
		}, []string{"format", "outcome"}),
		exportBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "export_bytes_total",
			Help:      "Bytes of rendered artifacts, by format.",
		}, []string{"format"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests, by route pattern, method and status code.",
		}, []string{"route", "method", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		rateLimitedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the per-client rate limiter.",
		}),
	}

	m.registry.MustRegister(
		m.ingestsTotal,
		m.rowsParsed,
		m.parseDuration,
		m.exportsTotal,
		m.exportBytes,
		m.httpRequests,
		m.httpDuration,
		m.rateLimitedTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if sessions != nil {
		m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions",
			Help:      "Live conversion sessions.",
		}, func() float64 { return float64(sessions()) }))
	}
	if parses != nil {
		m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "parses_in_flight",
			Help:      "Parses holding a limiter slot.",
		}, func() float64 { return float64(parses()) }))
	}

	return m
}

// ObserveIngest implements core.IngestObserver.
func (m *Metrics) ObserveIngest(r core.IngestResult) {
	failure := string(r.Failure)
	if failure == "" {
		failure = "none"
	}
	m.ingestsTotal.WithLabelValues(r.Status.String(), failure).Inc()
	m.parseDuration.Observe(r.Duration.Seconds())
	if r.Status == core.StatusParsed {
		m.rowsParsed.Add(float64(r.Rows))
	}
}

// Export outcomes.
const (
	OutcomeOK    = "ok"
	OutcomeEmpty = "empty"
	OutcomeError = "error"
)

// ObserveExport counts one export attempt; size is ignored unless outcome is OutcomeOK.
func (m *Metrics) ObserveExport(format, outcome string, size int) {
	m.exportsTotal.WithLabelValues(format, outcome).Inc()
	if outcome == OutcomeOK {
		m.exportBytes.WithLabelValues(format).Add(float64(size))
	}
}

// ObserveRequest records one finished HTTP request.
func (m *Metrics) ObserveRequest(route, method string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// RateLimited counts a rejected request.
func (m *Metrics) RateLimited() {
	m.rateLimitedTotal.Inc()
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
