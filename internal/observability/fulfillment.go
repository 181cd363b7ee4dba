package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Fulfillment counts ledger, allocation and credit activity. It satisfies the
// metrics ports of the inventory, orders and payments packages. A nil
// *Fulfillment records nothing.
type Fulfillment struct {
	ledgerEvents     *prometheus.CounterVec
	palletStatus     *prometheus.CounterVec
	allocations      *prometheus.CounterVec
	allocationsMade  *prometheus.CounterVec
	shortfallUnits   prometheus.Counter
	orderTransitions *prometheus.CounterVec
	installments     *prometheus.CounterVec
}

// NewFulfillment registers the domain collectors.
func NewFulfillment(registerer prometheus.Registerer) *Fulfillment {
	f := &Fulfillment{
		ledgerEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "laredos_ledger_events_total",
			Help: "Ledger events appended by kind.",
		}, []string{"kind"}),
		palletStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "laredos_pallet_status_changes_total",
			Help: "Pallet status re-evaluations that moved the pallet.",
		}, []string{"from", "to"}),
		allocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "laredos_allocation_runs_total",
			Help: "Allocation runs by mode and outcome.",
		}, []string{"mode", "outcome"}),
		allocationsMade: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "laredos_allocations_created_total",
			Help: "Allocations created by mode.",
		}, []string{"mode"}),
		shortfallUnits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "laredos_allocation_shortfall_units_total",
			Help: "Units automatic allocation could not cover.",
		}),
		orderTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "laredos_order_transitions_total",
			Help: "Order status transitions.",
		}, []string{"from", "to"}),
		installments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "laredos_credit_installments_total",
			Help: "Credit installments posted by resulting credit status.",
		}, []string{"status"}),
	}
	registerer.MustRegister(f.ledgerEvents, f.palletStatus, f.allocations, f.allocationsMade,
		f.shortfallUnits, f.orderTransitions, f.installments)
	return f
}

func (f *Fulfillment) ObserveLedgerEvent(kind string) {
	if f == nil {
		return
	}
	f.ledgerEvents.WithLabelValues(kind).Inc()
}

func (f *Fulfillment) ObservePalletStatus(from, to string) {
	if f == nil {
		return
	}
	f.palletStatus.WithLabelValues(from, to).Inc()
}

func (f *Fulfillment) ObserveAllocation(mode, outcome string, created int, shortfall int64) {
	if f == nil {
		return
	}
	f.allocations.WithLabelValues(mode, outcome).Inc()
	f.allocationsMade.WithLabelValues(mode).Add(float64(created))
	if shortfall > 0 {
		f.shortfallUnits.Add(float64(shortfall))
	}
}

func (f *Fulfillment) ObserveOrderTransition(from, to string) {
	if f == nil {
		return
	}
	f.orderTransitions.WithLabelValues(from, to).Inc()
}

func (f *Fulfillment) ObserveInstallment(status string) {
	if f == nil {
		return
	}
	f.installments.WithLabelValues(status).Inc()
}
