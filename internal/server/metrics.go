package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metricsNamespace prefixes every metric name.
const metricsNamespace = "pdfqa"

// labelHandler partitions HTTP metrics by logical endpoint rather than raw
// URL path.
const labelHandler = "handler"

// serverMetrics holds all Prometheus metrics owned by the HTTP server.
// One instance is created in New; tests pass a fresh prometheus.Registry.
type serverMetrics struct {
	// buildTotal counts document builds by outcome.
	buildTotal *prometheus.CounterVec

	// buildChunks records the number of chunks indexed per successful build.
	buildChunks prometheus.Histogram

	// askTotal counts questions by outcome.
	askTotal *prometheus.CounterVec

	// askDuration records retrieval plus synthesis latency by outcome.
	askDuration *prometheus.HistogramVec

	// rateLimitedTotal counts requests rejected with 429, by handler.
	rateLimitedTotal *prometheus.CounterVec

	// httpRequestsTotal counts requests by method, handler and status code.
	httpRequestsTotal *prometheus.CounterVec

	// httpDurationSeconds records request latency by method and handler.
	httpDurationSeconds *prometheus.HistogramVec
}

// newServerMetrics registers all server metrics against reg.
func newServerMetrics(reg prometheus.Registerer) *serverMetrics {
	factory := promauto.With(reg)

	return &serverMetrics{
		buildTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "build_total",
			Help:      "Document builds, partitioned by outcome.",
		}, []string{"outcome"}),

		buildChunks: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "build_chunks",
			Help:      "Chunks indexed per successful document build.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),

		askTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "ask_total",
			Help:      "Questions answered, partitioned by outcome.",
		}, []string{"outcome"}),

		askDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "ask_duration_seconds",
			Help:      "Wall-clock duration of retrieval plus answer synthesis.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"outcome"}),

		rateLimitedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the per-client rate limit, partitioned by handler.",
		}, []string{labelHandler}),

		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests handled by the server, partitioned by method, handler, and status code.",
		}, []string{"method", labelHandler, "code"}),

		httpDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "duration_seconds",
			Help:      "Latency of HTTP requests handled by the server.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", labelHandler}),
	}
}
