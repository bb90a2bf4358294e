package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Generation metrics
	GenerationsTotal   *prometheus.CounterVec
	GenerationDuration *prometheus.HistogramVec

	// Quota metrics
	QuotaDenialsTotal   *prometheus.CounterVec
	QuotaRollbacksTotal prometheus.Counter

	// History metrics
	HistoryAppendFailuresTotal prometheus.Counter
}

// New creates a new Metrics instance registered on the default registry.
func New(namespace string) *Metrics {
	return NewWith(namespace, prometheus.DefaultRegisterer)
}

// NewWith creates a new Metrics instance on the given registerer.
func NewWith(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "draftforge"
	}
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_in_flight",
				Help:      "Current number of HTTP requests being processed",
			},
		),

		GenerationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "generation",
				Name:      "requests_total",
				Help:      "Total number of generation requests",
			},
			[]string{"tool_type", "status"},
		),
		GenerationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "generation",
				Name:      "duration_seconds",
				Help:      "Provider generation duration in seconds",
				Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"tool_type"},
		),

		QuotaDenialsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "quota",
				Name:      "denials_total",
				Help:      "Total number of generation requests denied by quota",
			},
			[]string{"plan"},
		),
		QuotaRollbacksTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "quota",
				Name:      "rollbacks_total",
				Help:      "Total number of quota reservations rolled back",
			},
		),

		HistoryAppendFailuresTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "history",
				Name:      "append_failures_total",
				Help:      "Total number of failed history appends",
			},
		),
	}
}

// RecordHTTPRequest records an HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordGeneration records a generation attempt outcome.
func (m *Metrics) RecordGeneration(toolType, status string, duration time.Duration) {
	m.GenerationsTotal.WithLabelValues(toolType, status).Inc()
	m.GenerationDuration.WithLabelValues(toolType).Observe(duration.Seconds())
}
