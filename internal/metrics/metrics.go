// Package metrics registers the Prometheus metrics exported on /metrics.
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

const namespace = "mentor"

// Metrics holds every collector owned by the server. A nil *Metrics records
// nothing, so callers never need to check.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpDurationSeconds *prometheus.HistogramVec

	retrievalsTotal  *prometheus.CounterVec
	retrievedChunks  *prometheus.HistogramVec
	chunksIndexed    prometheus.Counter
	documentsTotal   *prometheus.CounterVec
	remoteCallsTotal *prometheus.CounterVec
	remoteDuration   *prometheus.HistogramVec
}

// New registers all collectors against a fresh registry, plus the Go runtime
// and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return newWithRegistry(reg)
}

func newWithRegistry(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests handled, partitioned by method, route pattern and status code.",
		}, []string{"method", "handler", "code"}),

		httpDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "duration_seconds",
			Help:      "Latency of HTTP requests.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 120},
		}, []string{"method", "handler"}),

		retrievalsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "retrieval",
			Name:      "queries_total",
			Help:      "Retrieval queries, partitioned by retriever mode.",
		}, []string{"mode"}),

		retrievedChunks: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "retrieval",
			Name:      "results",
			Help:      "Number of chunks returned per retrieval.",
			Buckets:   []float64{0, 1, 2, 4, 8, 16},
		}, []string{"mode"}),

		chunksIndexed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "knowledge",
			Name:      "chunks_indexed_total",
			Help:      "Chunks appended to the knowledge store.",
		}),

		documentsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "knowledge",
			Name:      "documents_total",
			Help:      "Ingested documents, partitioned by whether any chunk was indexed.",
		}, []string{"outcome"}),

		remoteCallsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "calls_total",
			Help:      "Calls to embedding, generation and OCR providers, partitioned by outcome.",
		}, []string{"provider", "operation", "outcome"}),

		remoteDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "duration_seconds",
			Help:      "Latency of provider calls.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"provider", "operation"}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveHTTP records one completed request.
func (m *Metrics) ObserveHTTP(method, handler string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(method, handler, strconv.Itoa(status)).Inc()
	m.httpDurationSeconds.WithLabelValues(method, handler).Observe(elapsed.Seconds())
}

// ObserveRetrieval records one retrieval and its result count.
func (m *Metrics) ObserveRetrieval(mode string, results int) {
	if m == nil {
		return
	}
	m.retrievalsTotal.WithLabelValues(mode).Inc()
	m.retrievedChunks.WithLabelValues(mode).Observe(float64(results))
}

// ObserveIngest records one ingested document.
func (m *Metrics) ObserveIngest(source string, chunks int) {
	if m == nil {
		return
	}
	outcome := "indexed"
	if chunks == 0 {
		outcome = "empty"
	}
	m.documentsTotal.WithLabelValues(outcome).Inc()
	m.chunksIndexed.Add(float64(chunks))
}

// ObserveRemoteCall records one provider call.
func (m *Metrics) ObserveRemoteCall(provider, operation string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.remoteCallsTotal.WithLabelValues(provider, operation, outcome).Inc()
	m.remoteDuration.WithLabelValues(provider, operation).Observe(elapsed.Seconds())
}
