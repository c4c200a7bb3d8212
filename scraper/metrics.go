package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the crawler.
type Metrics struct {
	Registry        *prometheus.Registry
	RequestsTotal   *prometheus.CounterVec
	RequestDuration prometheus.Histogram
	RecordsTotal    *prometheus.CounterVec
	RetriesTotal    prometheus.Counter
	ErrorsTotal     *prometheus.CounterVec
	PassesTotal     *prometheus.CounterVec
	LastPassSeconds prometheus.Gauge
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_requests_total",
			Help: "Total HTTP requests issued by the crawler, by crawl phase.",
		},
		[]string{"phase"},
	)
	requestDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "catalog_request_duration_seconds",
			Help:    "HTTP request latency for crawler requests.",
			Buckets: prometheus.DefBuckets,
		},
	)
	records := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_records_total",
			Help: "Records written to the store, by operation.",
		},
		[]string{"op"},
	)
	retries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_retries_total",
			Help: "Total number of retry attempts made.",
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_errors_total",
			Help: "Total number of crawler errors by type.",
		},
		[]string{"error_type"},
	)
	passes := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_passes_total",
			Help: "Crawl passes run, by outcome.",
		},
		[]string{"outcome"},
	)
	lastPass := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_last_pass_timestamp_seconds",
			Help: "Unix time the most recent crawl pass finished.",
		},
	)

	registry.MustRegister(requests, requestDuration, records, retries, errorsTotal, passes, lastPass)

	return &Metrics{
		Registry:        registry,
		RequestsTotal:   requests,
		RequestDuration: requestDuration,
		RecordsTotal:    records,
		RetriesTotal:    retries,
		ErrorsTotal:     errorsTotal,
		PassesTotal:     passes,
		LastPassSeconds: lastPass,
	}
}

// IncRequest increments the requests total counter.
func (m *Metrics) IncRequest(phase string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(phase).Inc()
}

// ObserveDuration records an HTTP request duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(d.Seconds())
}

// IncRecord increments the record counter for an operation (insert or update).
func (m *Metrics) IncRecord(op string) {
	if m == nil {
		return
	}
	m.RecordsTotal.WithLabelValues(op).Inc()
}

// IncRetries increments the retries counter.
func (m *Metrics) IncRetries() {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}

// ObservePass records a finished pass.
func (m *Metrics) ObservePass(outcome string, finished time.Time) {
	if m == nil {
		return
	}
	m.PassesTotal.WithLabelValues(outcome).Inc()
	m.LastPassSeconds.Set(float64(finished.Unix()))
}
