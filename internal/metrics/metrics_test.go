package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	m := New()
	m.BookingCreated()
	m.BookingCreated()
	m.Conflict("slot")
	m.Transition("PENDING", "CONFIRMED")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.created))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.conflicts.WithLabelValues("slot")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.conflicts.WithLabelValues("revision")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("PENDING", "CONFIRMED")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.BookingCreated()
		m.Conflict("slot")
		m.Transition("a", "b")
		m.Failure("op", "kind")
	})
}
