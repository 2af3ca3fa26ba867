package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/caselight/retrieval/internal/core/domain"
)

// HTTPServerMetrics carries the API server metrics plus the retrieval
// pipeline metrics. It implements ports.RetrievalObserver.
type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	retrievalTotal         *prometheus.CounterVec
	retrievalDuration      *prometheus.HistogramVec
	retrievalCandidates    *prometheus.HistogramVec
	retrievalResults       *prometheus.HistogramVec
	expansionFailuresTotal *prometheus.CounterVec
	backfilledChunksTotal  *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "caselight",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "caselight",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "caselight",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	retrievalTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "caselight",
			Subsystem: "retrieval",
			Name:      "requests_total",
			Help:      "Total retrieval requests by family, mode and outcome.",
		},
		[]string{"service", "family", "mode", "status"},
	)
	retrievalDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "caselight",
			Subsystem: "retrieval",
			Name:      "duration_seconds",
			Help:      "End-to-end retrieval duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "family", "mode"},
	)
	retrievalCandidates := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "caselight",
			Subsystem: "retrieval",
			Name:      "candidates",
			Help:      "Distribution of fused candidates per request.",
			Buckets:   []float64{0, 1, 5, 10, 20, 50, 100},
		},
		[]string{"service", "family"},
	)
	retrievalResults := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "caselight",
			Subsystem: "retrieval",
			Name:      "results",
			Help:      "Distribution of returned chunks per request.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21, 34},
		},
		[]string{"service", "family"},
	)
	expansionFailuresTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "caselight",
			Subsystem: "retrieval",
			Name:      "expansion_failures_total",
			Help:      "Total context window scans that failed and fell back to the anchor chunk.",
		},
		[]string{"service", "family"},
	)
	backfilledChunksTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "caselight",
			Subsystem: "retrieval",
			Name:      "backfilled_chunks_total",
			Help:      "Total chunks appended from the candidate pool after quota selection.",
		},
		[]string{"service", "family"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		retrievalTotal,
		retrievalDuration,
		retrievalCandidates,
		retrievalResults,
		expansionFailuresTotal,
		backfilledChunksTotal,
	)

	return &HTTPServerMetrics{
		registry:               registry,
		requestTotal:           requestTotal,
		requestDuration:        requestDuration,
		requestInFlight:        requestInFlight,
		retrievalTotal:         retrievalTotal,
		retrievalDuration:      retrievalDuration,
		retrievalCandidates:    retrievalCandidates,
		retrievalResults:       retrievalResults,
		expansionFailuresTotal: expansionFailuresTotal,
		backfilledChunksTotal:  backfilledChunksTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			r.URL.Path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}

const observerService = "retrieval-api"

func (m *HTTPServerMetrics) ObserveRetrieval(
	family string,
	mode domain.RetrievalMode,
	status string,
	seconds float64,
	candidates, results int,
) {
	if status == "" {
		status = "unknown"
	}
	m.retrievalTotal.WithLabelValues(observerService, family, string(mode), status).Inc()
	m.retrievalDuration.WithLabelValues(observerService, family, string(mode)).Observe(seconds)
	if status == "ok" {
		m.retrievalCandidates.WithLabelValues(observerService, family).Observe(float64(candidates))
		m.retrievalResults.WithLabelValues(observerService, family).Observe(float64(results))
	}
}

func (m *HTTPServerMetrics) ObserveExpansionFailure(family string) {
	m.expansionFailuresTotal.WithLabelValues(observerService, family).Inc()
}

func (m *HTTPServerMetrics) ObserveBackfill(family string, added int) {
	if added <= 0 {
		return
	}
	m.backfilledChunksTotal.WithLabelValues(observerService, family).Add(float64(added))
}

// statusRecorder captures the status code for the request counter. Handlers
// only write plain JSON, so no streaming passthroughs are carried.
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
