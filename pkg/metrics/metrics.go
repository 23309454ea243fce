// Package metrics provides Prometheus metrics for monitoring.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "bubblemap"

// Lookup outcomes
const (
	OutcomeSuccess    = "success"
	OutcomeIncomplete = "incomplete"
	OutcomeFailure    = "failure"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	registry *prometheus.Registry

	// Blockfrost metrics
	APIRequests        *prometheus.CounterVec
	APIRequestDuration *prometheus.HistogramVec

	// Rate limiter metrics
	LimiterWait prometheus.Histogram

	// Lookup metrics
	Lookups          *prometheus.CounterVec
	LookupDuration   prometheus.Histogram
	RelationBatches  prometheus.Counter
	RelationFailures prometheus.Counter
}

// New creates a Metrics instance registered on its own registry,
// together with the Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		APIRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "blockfrost",
			Name:      "requests_total",
			Help:      "Total number of Blockfrost requests by endpoint and status code",
		}, []string{"endpoint", "status"}),
		APIRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "blockfrost",
			Name:      "request_duration_seconds",
			Help:      "Blockfrost request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),

		LimiterWait: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ratelimit",
			Name:      "wait_seconds",
			Help:      "Time spent queued for a rate limiter permit",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),

		Lookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lookup",
			Name:      "total",
			Help:      "Total number of policy lookups by outcome",
		}, []string{"outcome"}),
		LookupDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "lookup",
			Name:      "duration_seconds",
			Help:      "Duration of successful policy lookups in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300},
		}),
		RelationBatches: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relations",
			Name:      "batches_total",
			Help:      "Total number of related-wallet batches resolved",
		}),
		RelationFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relations",
			Name:      "failures_total",
			Help:      "Total number of holders whose related wallets could not be resolved",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRequest records one Blockfrost round trip. Status 0 means a transport failure.
func (m *Metrics) ObserveRequest(endpoint string, status int, d time.Duration) {
	code := "error"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	m.APIRequests.WithLabelValues(endpoint, code).Inc()
	m.APIRequestDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

// ObserveWait records how long a caller queued behind the rate limiter.
func (m *Metrics) ObserveWait(d time.Duration) {
	m.LimiterWait.Observe(d.Seconds())
}

// RecordLookup records the outcome of a lookup.
func (m *Metrics) RecordLookup(outcome string, d time.Duration) {
	m.Lookups.WithLabelValues(outcome).Inc()
	if outcome != OutcomeFailure {
		m.LookupDuration.Observe(d.Seconds())
	}
}

// RecordRelationBatch records one completed relation batch.
func (m *Metrics) RecordRelationBatch(failed int) {
	m.RelationBatches.Inc()
	m.RelationFailures.Add(float64(failed))
}
