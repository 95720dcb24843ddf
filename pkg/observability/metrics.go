// Package observability bundles the Prometheus metrics and OpenTelemetry
// tracing setup shared across the service.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the service's Prometheus collectors
type Metrics struct {
	MutationsTotal      *prometheus.CounterVec
	AutoSavesTotal      prometheus.Counter
	AutoSaveFailures    prometheus.Counter
	RenderDuration      prometheus.Histogram
	OpenFlows           prometheus.Gauge
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics registers the collectors on the given registerer
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		MutationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "studio",
			Name:      "graph_mutations_total",
			Help:      "Structural and detail mutations applied to flow graphs.",
		}, []string{"kind"}),
		AutoSavesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "studio",
			Name:      "autosaves_total",
			Help:      "Debounced flow snapshots written to the repository.",
		}),
		AutoSaveFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "studio",
			Name:      "autosave_failures_total",
			Help:      "Flow snapshot writes that failed.",
		}),
		RenderDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "studio",
			Name:      "render_duration_seconds",
			Help:      "Time spent computing flow render trees.",
			Buckets:   prometheus.DefBuckets,
		}),
		OpenFlows: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "studio",
			Name:      "open_flows",
			Help:      "Flows currently held open in memory.",
		}),
		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "studio",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "studio",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// NewDefaultMetrics registers the collectors on the default registry
func NewDefaultMetrics() *Metrics {
	return NewMetrics(prometheus.DefaultRegisterer)
}
