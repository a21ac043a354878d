// internal/pkg/metrics/inventory.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// InventoryMetrics tracks reconciliation, repair and stock mutation outcomes.
type InventoryMetrics struct {
	corrections     prometheus.Counter
	reconcileErrors prometheus.Counter
	raceSkips       prometheus.Counter
	itemsCapped     prometheus.Counter
	itemsRemoved    prometheus.Counter
	cartsDeleted    prometheus.Counter
	adjustments     *prometheus.CounterVec
	retries         *prometheus.CounterVec
	tasksEnqueued   *prometheus.CounterVec
}

// NewInventoryMetrics registers the inventory metrics on the provided registerer.
func NewInventoryMetrics(reg prometheus.Registerer) *InventoryMetrics {
	if reg == nil {
		return &InventoryMetrics{}
	}
	m := &InventoryMetrics{
		corrections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "inventory_availability_corrections_total",
			Help: "Products whose stored availability flag was corrected by reconciliation.",
		}),
		reconcileErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "inventory_reconcile_errors_total",
			Help: "Products that failed to reconcile.",
		}),
		raceSkips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "inventory_reconcile_race_skips_total",
			Help: "Availability writes skipped because the product changed concurrently.",
		}),
		itemsCapped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "inventory_repair_items_capped_total",
			Help: "Abandoned cart items reduced by over-reservation repair.",
		}),
		itemsRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "inventory_repair_items_removed_total",
			Help: "Abandoned cart items removed by over-reservation repair.",
		}),
		cartsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "inventory_repair_carts_deleted_total",
			Help: "Abandoned carts deleted after repair left them empty.",
		}),
		adjustments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "inventory_stock_adjustments_total",
			Help: "Committed stock adjustments by movement type.",
		}, []string{"type"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "inventory_concurrency_retries_total",
			Help: "Optimistic concurrency retries by operation.",
		}, []string{"operation"}),
		tasksEnqueued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "inventory_tasks_enqueued_total",
			Help: "Inventory tasks pushed onto the work queue by kind.",
		}, []string{"kind"}),
	}
	reg.MustRegister(
		m.corrections,
		m.reconcileErrors,
		m.raceSkips,
		m.itemsCapped,
		m.itemsRemoved,
		m.cartsDeleted,
		m.adjustments,
		m.retries,
		m.tasksEnqueued,
	)
	return m
}

func (m *InventoryMetrics) AddCorrections(n int) {
	if m == nil || m.corrections == nil || n <= 0 {
		return
	}
	m.corrections.Add(float64(n))
}

func (m *InventoryMetrics) AddReconcileErrors(n int) {
	if m == nil || m.reconcileErrors == nil || n <= 0 {
		return
	}
	m.reconcileErrors.Add(float64(n))
}

func (m *InventoryMetrics) AddRaceSkips(n int) {
	if m == nil || m.raceSkips == nil || n <= 0 {
		return
	}
	m.raceSkips.Add(float64(n))
}

// ObserveRepair records the cart-level effects of one repair run.
func (m *InventoryMetrics) ObserveRepair(capped, removed, cartsDeleted int) {
	if m == nil || m.itemsCapped == nil {
		return
	}
	m.itemsCapped.Add(float64(capped))
	m.itemsRemoved.Add(float64(removed))
	m.cartsDeleted.Add(float64(cartsDeleted))
}

func (m *InventoryMetrics) IncAdjustment(movementType string) {
	if m == nil || m.adjustments == nil {
		return
	}
	m.adjustments.WithLabelValues(normalizeLabel(movementType)).Inc()
}

func (m *InventoryMetrics) IncRetry(operation string) {
	if m == nil || m.retries == nil {
		return
	}
	m.retries.WithLabelValues(normalizeLabel(operation)).Inc()
}

func (m *InventoryMetrics) IncTaskEnqueued(kind string) {
	if m == nil || m.tasksEnqueued == nil {
		return
	}
	m.tasksEnqueued.WithLabelValues(normalizeLabel(kind)).Inc()
}
