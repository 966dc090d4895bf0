package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	// Ledger movements applied, by movement type.
	MovementsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_movements_total",
			Help: "Total ledger movements applied",
		},
		[]string{"type"},
	)

	// Webhook settlements by gateway and outcome (settled|duplicate|failed).
	SettlementsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_settlements_total",
			Help: "Total webhook settlement attempts",
		},
		[]string{"gateway", "outcome"},
	)

	OrderTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_transitions_total",
			Help: "Total order state transitions",
		},
		[]string{"to"},
	)
)

var Handler = promhttp.Handler

func Init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(MovementsTotal)
	prometheus.MustRegister(SettlementsTotal)
	prometheus.MustRegister(OrderTransitionsTotal)
}
