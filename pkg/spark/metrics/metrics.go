// Package metrics exposes spark server counters to Prometheus.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace = "spark"
	subsystem = "http"
)

// Metrics holds the server collectors. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	connsAccepted prometheus.Counter
	connsRejected prometheus.Counter
	connsActive   prometheus.Gauge
	acceptErrors  prometheus.Counter

	requests       *prometheus.CounterVec
	protocolErrors prometheus.Counter
	ioFailures     *prometheus.CounterVec
}

// New registers the server collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		connsAccepted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "connections_accepted_total",
			Help:      "Total number of connections admitted to a worker",
		}),
		connsRejected: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "connections_rejected_total",
			Help:      "Total number of connections refused with 503 at capacity",
		}),
		connsActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "connections_active",
			Help:      "Number of connections currently owned by a worker",
		}),
		acceptErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "accept_errors_total",
			Help:      "Total number of failed accept calls",
		}),
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "requests_total",
			Help:      "Total number of responses sent, by request method and status",
		}, []string{"method", "status"}),
		protocolErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "protocol_errors_total",
			Help:      "Total number of requests answered with 400",
		}),
		ioFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "io_failures_total",
			Help:      "Total number of connections ended by a transport failure, by phase",
		}, []string{"phase"}),
	}
}

// ConnAccepted records an admitted connection.
func (m *Metrics) ConnAccepted() {
	if m == nil {
		return
	}
	m.connsAccepted.Inc()
	m.connsActive.Inc()
}

// ConnClosed records the end of an admitted connection.
func (m *Metrics) ConnClosed() {
	if m == nil {
		return
	}
	m.connsActive.Dec()
}

// ConnRejected records a connection turned away at capacity.
func (m *Metrics) ConnRejected() {
	if m == nil {
		return
	}
	m.connsRejected.Inc()
}

// AcceptError records a failed accept.
func (m *Metrics) AcceptError() {
	if m == nil {
		return
	}
	m.acceptErrors.Inc()
}

// Request records a response with status sent for method.
func (m *Metrics) Request(method string, status int) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, strconv.Itoa(status)).Inc()
}

// ProtocolError records a malformed or oversized request.
func (m *Metrics) ProtocolError() {
	if m == nil {
		return
	}
	m.protocolErrors.Inc()
}

// IOFailure records a transport failure during phase ("read", "body" or
// "write").
func (m *Metrics) IOFailure(phase string) {
	if m == nil {
		return
	}
	m.ioFailures.WithLabelValues(phase).Inc()
}

// Handler serves the metrics gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
