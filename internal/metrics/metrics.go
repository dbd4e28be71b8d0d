// Package metrics exposes Prometheus counters for the booking engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics groups the collectors the orchestrator updates.  A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	created     prometheus.Counter
	conflicts   *prometheus.CounterVec
	transitions *prometheus.CounterVec
	failures    *prometheus.CounterVec
}

// New registers the booking collectors, plus the Go and process
// collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		created: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "booking",
			Name:      "created_total",
			Help:      "Bookings successfully created.",
		}),
		conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "booking",
			Name:      "conflicts_total",
			Help:      "Writes rejected because the slot was taken or the revision was stale.",
		}, []string{"reason"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "booking",
			Name:      "transitions_total",
			Help:      "Applied status transitions.",
		}, []string{"from", "to"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "booking",
			Name:      "operation_errors_total",
			Help:      "Failed orchestrator operations by error kind.",
		}, []string{"op", "kind"}),
	}
	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.created, m.conflicts, m.transitions, m.failures,
	)
	return m
}

func (m *Metrics) BookingCreated() {
	if m != nil {
		m.created.Inc()
	}
}

// Conflict records a rejected write; reason is "slot" or "revision".
func (m *Metrics) Conflict(reason string) {
	if m != nil {
		m.conflicts.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) Transition(from, to string) {
	if m != nil {
		m.transitions.WithLabelValues(from, to).Inc()
	}
}

func (m *Metrics) Failure(op, kind string) {
	if m != nil {
		m.failures.WithLabelValues(op, kind).Inc()
	}
}
