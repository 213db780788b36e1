package collector

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Transport label values
const (
	TransportHTTP = "http"
	TransportGRPC = "grpc"
)

// Outcome label values
const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
)

// Metrics holds the collector's Prometheus metrics. Each instance owns its
// registry so several collectors can live in one process.
type Metrics struct {
	registry *prometheus.Registry

	ExportRequests *prometheus.CounterVec
	SpansReceived  *prometheus.CounterVec
}

// NewMetrics creates the collector metrics. The stored-spans gauge reads
// store on every scrape.
func NewMetrics(store *Store) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{
		registry: reg,
		ExportRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tracecheck_collector_export_requests_total",
				Help: "Total number of OTLP export requests",
			},
			[]string{"transport", "outcome"},
		),
		SpansReceived: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tracecheck_collector_spans_received_total",
				Help: "Total number of spans received",
			},
			[]string{"transport"},
		),
	}
	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "tracecheck_collector_spans_stored",
			Help: "Number of spans currently held by the collector",
		},
		func() float64 { return float64(store.Len()) },
	)
	return m
}

// Registry returns the registry the metrics are registered with
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordExport counts one export request and, when accepted, its spans
func (m *Metrics) RecordExport(transport, outcome string, spans int) {
	m.ExportRequests.WithLabelValues(transport, outcome).Inc()
	if outcome == OutcomeAccepted {
		m.SpansReceived.WithLabelValues(transport).Add(float64(spans))
	}
}
