package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNilMetricsAreSafe(t *testing.T) {
	var inv *InventoryMetrics
	inv.AddCorrections(3)
	inv.ObserveRepair(1, 2, 3)
	inv.IncAdjustment("in")

	var jobs *JobMetrics
	jobs.IncSuccess("reconcile")
	jobs.ObserveDuration("reconcile", time.Second)
	jobs.IncSkipped()

	unregistered := NewInventoryMetrics(nil)
	unregistered.IncRetry("adjust_stock")
}

func TestInventoryMetricsCount(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewInventoryMetrics(reg)

	m.AddCorrections(2)
	m.AddCorrections(0)
	m.ObserveRepair(3, 1, 1)
	m.IncAdjustment("out")
	m.IncAdjustment("out")
	m.IncRetry("")

	assert.Equal(t, float64(2), testutil.ToFloat64(m.corrections))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.itemsCapped))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.cartsDeleted))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.adjustments.WithLabelValues("out")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.retries.WithLabelValues("unknown")))
}

func TestJobMetricsCount(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewJobMetrics(reg)

	m.IncSuccess("reconcile")
	m.IncFailure("repair")
	m.IncSkipped()

	assert.Equal(t, float64(1), testutil.ToFloat64(m.success.WithLabelValues("reconcile")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.failure.WithLabelValues("repair")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.skipped))
}
