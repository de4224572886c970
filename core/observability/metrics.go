// Package observability holds the Prometheus metrics shared by the engine
// and the metrics filters.
package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "pulsation"

// Connection close reasons.
const (
	CloseEOF      = "eof"
	CloseError    = "error"
	CloseIdle     = "idle"
	CloseShutdown = "shutdown"
)

// Metrics holds all Prometheus metrics for the server.
// Pass to components that need to record metrics.
type Metrics struct {
	ConnectionsAccepted prometheus.Counter
	ConnectionsOpen     prometheus.Gauge
	ConnectionsClosed   *prometheus.CounterVec
	AcceptArbitration   *prometheus.CounterVec
	RequestsDispatched  prometheus.Counter
	QueueDepth          prometheus.Gauge
	WorkerPanics        prometheus.Counter
	RequestsTotal       *prometheus.CounterVec
	RequestDuration     *prometheus.HistogramVec
}

// NewMetrics creates and registers all metrics with the given registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		ConnectionsAccepted: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "connections_accepted_total",
				Help:      "Total number of accepted client connections",
			},
		),
		ConnectionsOpen: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "connections_open",
				Help:      "Number of client connections tracked by reactors",
			},
		),
		ConnectionsClosed: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "connections_closed_total",
				Help:      "Total number of closed client connections",
			},
			[]string{"reason"}, // eof, error, idle, shutdown
		),
		AcceptArbitration: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "accept_arbitration_total",
				Help:      "Poll cycles in which a reactor kept or yielded the listening socket",
			},
			[]string{"outcome"}, // kept, yielded
		),
		RequestsDispatched: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_dispatched_total",
				Help:      "Total number of requests handed to the dispatch queue",
			},
		),
		QueueDepth: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "dispatch_queue_depth",
				Help:      "Requests waiting for a worker",
			},
		),
		WorkerPanics: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "worker_panics_total",
				Help:      "Requests whose processing panicked outside the filter chain's recovery",
			},
		),
		RequestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of responses produced by the filter chain",
			},
			[]string{"method", "status"},
		),
		RequestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Filter chain duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
	}
}

// ObserveRequest records one finished request.
func (m *Metrics) ObserveRequest(method string, status int, d time.Duration) {
	m.RequestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(method).Observe(d.Seconds())
}

// ConnectionClosed records a closed connection.
func (m *Metrics) ConnectionClosed(reason string) {
	m.ConnectionsOpen.Dec()
	m.ConnectionsClosed.WithLabelValues(reason).Inc()
}
