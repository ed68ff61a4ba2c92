package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metricsNamespace prefixes every metric this server registers.
const metricsNamespace = "askpdf"

// labelHandler partitions HTTP metrics by logical endpoint name rather than
// raw URL path.
const labelHandler = "handler"

// serverMetrics holds all Prometheus metrics owned by the HTTP server.
// A single instance is created in New so tests can pass a fresh
// prometheus.Registry instead of the global default.
type serverMetrics struct {
	// chatRequestsTotal counts answered questions by outcome: ok, timeout, error.
	chatRequestsTotal *prometheus.CounterVec
	// chatDurationSeconds records end-to-end question latency.
	chatDurationSeconds *prometheus.HistogramVec
	// chatInFlight is the number of questions being answered right now.
	chatInFlight prometheus.Gauge
	// chatEmptyRetrievals counts questions answered with the canned
	// no-information reply.
	chatEmptyRetrievals prometheus.Counter

	// ingestRequestsTotal counts uploads by outcome.
	ingestRequestsTotal *prometheus.CounterVec
	// ingestDurationSeconds records end-to-end upload latency.
	ingestDurationSeconds prometheus.Histogram
	// ingestChunksTotal counts chunk records written.
	ingestChunksTotal prometheus.Counter

	// httpRequestsTotal counts all routed HTTP requests.
	httpRequestsTotal *prometheus.CounterVec
	// httpDurationSeconds records routed HTTP request latency.
	httpDurationSeconds *prometheus.HistogramVec
}

// newServerMetrics registers all server metrics against reg.
func newServerMetrics(reg prometheus.Registerer) *serverMetrics {
	factory := promauto.With(reg)

	return &serverMetrics{
		chatRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "chat",
			Name:      "requests_total",
			Help:      "Total number of questions handled, partitioned by outcome.",
		}, []string{"outcome"}),

		chatDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "chat",
			Name:      "duration_seconds",
			Help:      "End-to-end latency of answering a question.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"outcome"}),

		chatInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "chat",
			Name:      "in_flight",
			Help:      "Number of questions currently being answered.",
		}),

		chatEmptyRetrievals: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "chat",
			Name:      "empty_retrievals_total",
			Help:      "Questions for which retrieval found no chunks.",
		}),

		ingestRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "ingest",
			Name:      "requests_total",
			Help:      "Total number of uploads handled, partitioned by outcome.",
		}, []string{"outcome"}),

		ingestDurationSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "ingest",
			Name:      "duration_seconds",
			Help:      "End-to-end latency of ingesting an upload.",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),

		ingestChunksTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "ingest",
			Name:      "chunks_total",
			Help:      "Total number of chunk records written to the vector store.",
		}),

		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests, partitioned by method, handler and status code.",
		}, []string{"method", labelHandler, "code"}),

		httpDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "duration_seconds",
			Help:      "Latency of HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", labelHandler}),
	}
}

// instrument records request count and latency for next under handler.
func (m *serverMetrics) instrument(handler string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rw, r)
		m.httpRequestsTotal.WithLabelValues(r.Method, handler, strconv.Itoa(rw.status)).Inc()
		m.httpDurationSeconds.WithLabelValues(r.Method, handler).Observe(time.Since(start).Seconds())
	})
}
