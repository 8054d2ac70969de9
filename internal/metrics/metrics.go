// Package metrics exposes Prometheus gauges and counters for the
// trading loop (SPEC_FULL.md DOMAIN STACK: tick duration, orders
// dispatched, positions open, decision counts).
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds every metric the engine reports, grouped so
// cmd/bot can construct one and pass it down instead of relying on
// package-level globals.
type Registry struct {
	TickDuration      prometheus.Histogram
	OrdersDispatched  *prometheus.CounterVec
	PositionsOpen     prometheus.Gauge
	DecisionsEvaluated *prometheus.CounterVec
	AccountCash       prometheus.Gauge
	AccountTotalValue prometheus.Gauge
}

// NewRegistry builds and registers every metric against reg.
func NewRegistry(reg prometheus.Registerer) *Registry {
	m := &Registry{
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "d4",
			Name:      "tick_duration_seconds",
			Help:      "Wall-clock duration of one trading loop tick.",
			Buckets:   prometheus.DefBuckets,
		}),
		OrdersDispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "d4",
			Name:      "orders_dispatched_total",
			Help:      "Orders submitted to the broker, labeled by side.",
		}, []string{"side"}),
		PositionsOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "d4",
			Name:      "positions_open",
			Help:      "Number of currently held positions.",
		}),
		DecisionsEvaluated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "d4",
			Name:      "decisions_evaluated_total",
			Help:      "DecisionRecords produced by the strategy engine, labeled by buy/sell.",
		}, []string{"signal"}),
		AccountCash: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "d4",
			Name:      "account_cash",
			Help:      "Current account cash balance.",
		}),
		AccountTotalValue: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "d4",
			Name:      "account_total_value",
			Help:      "Current account total value (cash plus positions).",
		}),
	}

	reg.MustRegister(
		m.TickDuration,
		m.OrdersDispatched,
		m.PositionsOpen,
		m.DecisionsEvaluated,
		m.AccountCash,
		m.AccountTotalValue,
	)
	return m
}

// ObserveTick records one tick's duration.
func (m *Registry) ObserveTick(d time.Duration) {
	m.TickDuration.Observe(d.Seconds())
}

// RecordDecision increments the buy or sell decision counter.
func (m *Registry) RecordDecision(buy, sell bool) {
	if buy {
		m.DecisionsEvaluated.WithLabelValues("buy").Inc()
	}
	if sell {
		m.DecisionsEvaluated.WithLabelValues("sell").Inc()
	}
}

// RecordOrder increments the dispatched-order counter for a side.
func (m *Registry) RecordOrder(side string) {
	m.OrdersDispatched.WithLabelValues(side).Inc()
}

// SetAccountState updates the account gauges.
func (m *Registry) SetAccountState(cash, totalValue float64, openPositions int) {
	m.AccountCash.Set(cash)
	m.AccountTotalValue.Set(totalValue)
	m.PositionsOpen.Set(float64(openPositions))
}
