package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	httpInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Number of HTTP requests currently being served",
		},
	)

	// Расчёт стоимости
	estimatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricing_estimates_total",
			Help: "Computed estimates partitioned by scoring source",
		},
		[]string{"source"},
	)

	scoringRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pricing_scoring_retries_total",
			Help: "Strict re-scoring attempts after a uniform model answer",
		},
	)

	scoringFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricing_scoring_fallbacks_total",
			Help: "Heuristic fallbacks partitioned by reason",
		},
		[]string{"reason"},
	)

	snapshotFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pricing_snapshot_failures_total",
			Help: "Snapshot inserts that failed",
		},
	)

	estimateDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pricing_estimate_duration_seconds",
			Help:    "End-to-end estimate computation time including scoring",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)
)

func ObserveHTTP(method, route, status string, d time.Duration) {
	labels := prometheus.Labels{"method": method, "route": route, "status": status}
	httpRequestsTotal.With(labels).Inc()
	httpRequestDuration.With(labels).Observe(d.Seconds())
}

func InFlightInc() { httpInFlight.Inc() }
func InFlightDec() { httpInFlight.Dec() }

// EstimateComputed учитывает готовый расчёт и его длительность.
func EstimateComputed(source string, d time.Duration) {
	estimatesTotal.WithLabelValues(source).Inc()
	estimateDuration.Observe(d.Seconds())
}

func ScoringRetry() { scoringRetries.Inc() }

// ScoringFallback: reason - model_error, empty, uniform.
func ScoringFallback(reason string) { scoringFallbacks.WithLabelValues(reason).Inc() }

func SnapshotFailed() { snapshotFailures.Inc() }
