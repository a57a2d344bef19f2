package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics groups the collectors exported on /metrics
type Metrics struct {
	Registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	StoreOperations        *prometheus.CounterVec
	StoreOperationDuration *prometheus.HistogramVec
	CorruptCollections     prometheus.Counter
}

// New creates and registers all collectors on a fresh registry
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		StoreOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "review_store_operations_total",
				Help: "Review store operations by backend, operation and result",
			},
			[]string{"backend", "operation", "result"},
		),
		StoreOperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "review_store_operation_duration_seconds",
				Help:    "Review store operation latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"backend", "operation"},
		),
		CorruptCollections: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "review_store_corrupt_collections_total",
				Help: "Collections that existed but could not be parsed",
			},
		),
	}

	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.RequestsTotal,
		m.RequestDuration,
		m.StoreOperations,
		m.StoreOperationDuration,
		m.CorruptCollections,
	)

	return m
}

// ObserveCorruption counts one unreadable collection. Safe on a nil receiver.
func (m *Metrics) ObserveCorruption() {
	if m == nil {
		return
	}
	m.CorruptCollections.Inc()
}
