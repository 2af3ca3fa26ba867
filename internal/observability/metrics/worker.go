package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// WorkerMetrics covers the audit persistence worker.
type WorkerMetrics struct {
	registry *prometheus.Registry

	persistTotal    *prometheus.CounterVec
	persistDuration *prometheus.HistogramVec
	persistInFlight prometheus.Gauge
	eventLag        *prometheus.HistogramVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	persistTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "caselight",
			Subsystem: "worker",
			Name:      "audit_persist_total",
			Help:      "Total persisted audit records by status.",
		},
		[]string{"service", "status"},
	)
	persistDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "caselight",
			Subsystem: "worker",
			Name:      "audit_persist_duration_seconds",
			Help:      "Audit record persistence duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	persistInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "caselight",
			Subsystem: "worker",
			Name:      "audit_persist_in_flight",
			Help:      "Number of audit records currently being persisted.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	eventLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "caselight",
			Subsystem: "worker",
			Name:      "audit_event_lag_seconds",
			Help:      "Delay between the retrieval request and audit persistence start.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"service"},
	)

	registry.MustRegister(persistTotal, persistDuration, persistInFlight, eventLag)

	return &WorkerMetrics{
		registry:        registry,
		persistTotal:    persistTotal,
		persistDuration: persistDuration,
		persistInFlight: persistInFlight,
		eventLag:        eventLag,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartPersist() {
	m.persistInFlight.Inc()
}

func (m *WorkerMetrics) FinishPersist(service string, duration time.Duration, err error) {
	m.persistInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.persistTotal.WithLabelValues(service, status).Inc()
	m.persistDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveEventLag(service string, lag time.Duration) {
	if lag < 0 {
		return
	}
	m.eventLag.WithLabelValues(service).Observe(lag.Seconds())
}
