// Package metrics exposes Prometheus collectors for the HTTP surface and
// the production batch pipeline.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "bomcheck"

// Metrics owns a private registry so tests can build as many as they like
type Metrics struct {
	registry *prometheus.Registry

	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	batches       *prometheus.CounterVec
	batchLines    prometheus.Histogram
	batchDuration prometheus.Histogram
	feasibility   *prometheus.CounterVec
}

// New registers every collector, plus the Go and process collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "production_batches_total",
			Help:      "Production batches by outcome.",
		}, []string{"outcome"}),
		batchLines: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "production_batch_lines",
			Help:      "Number of lines per production batch.",
			Buckets:   []float64{1, 2, 5, 10, 20, 50, 100},
		}),
		batchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "production_batch_duration_seconds",
			Help:      "Time to process a production batch.",
			Buckets:   prometheus.DefBuckets,
		}),
		feasibility: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feasibility_checks_total",
			Help:      "Feasibility checks by kind and result.",
		}, []string{"kind", "can_produce"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.batches,
		m.batchLines,
		m.batchDuration,
		m.feasibility,
	)
	return m
}

// Registry returns the registry backing the metrics
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveHTTP records one served request
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// BatchProcessed records a finished production batch
func (m *Metrics) BatchProcessed(outcome string, lines int, d time.Duration) {
	m.batches.WithLabelValues(outcome).Inc()
	m.batchLines.Observe(float64(lines))
	m.batchDuration.Observe(d.Seconds())
}

// FeasibilityChecked records a single or batch feasibility check
func (m *Metrics) FeasibilityChecked(kind string, canProduce bool) {
	m.feasibility.WithLabelValues(kind, strconv.FormatBool(canProduce)).Inc()
}
