// Package metrics exposes registry activity as Prometheus metrics.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tendant/simple-delegation/pkg/notification"
)

const namespace = "delegation"

// Metrics records registry operations and emitted events
type Metrics struct {
	operations *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	events     *prometheus.CounterVec
	lastSeq    prometheus.Gauge
	gatherer   prometheus.Gatherer
}

// New creates the collectors and registers them with a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := NewWithRegisterer(reg)
	m.gatherer = reg
	return m
}

// NewWithRegisterer creates the collectors and registers them with reg
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Registry operations by name and outcome code.",
		}, []string{"op", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Registry operation latency, oracle lookups included.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Delegated and Revoked events forwarded to notifiers.",
		}, []string{"kind"}),
		lastSeq: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "event_last_seq",
			Help:      "Sequence number of the last forwarded event.",
		}),
		gatherer: prometheus.DefaultGatherer,
	}
	reg.MustRegister(m.operations, m.latency, m.events, m.lastSeq)
	return m
}

// ObserveOperation counts one registry operation and its latency
func (m *Metrics) ObserveOperation(op, outcome string, elapsed time.Duration) {
	m.operations.WithLabelValues(op, outcome).Inc()
	m.latency.WithLabelValues(op).Observe(elapsed.Seconds())
}

// Notify counts a forwarded event, so Metrics can be registered as a notifier
func (m *Metrics) Notify(ctx context.Context, event notification.Event) error {
	m.events.WithLabelValues(string(event.Kind)).Inc()
	m.lastSeq.Set(float64(event.Seq))
	return nil
}

// Handler serves the collected metrics in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
