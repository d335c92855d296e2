package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Lookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "patrol",
		Name:      "lookups_total",
		Help:      "Vehicle lookups by resulting risk tier.",
	}, []string{"tier"})

	CartItems = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "patrol",
		Name:      "cart_items_total",
		Help:      "Offense candidates submitted to carts, by outcome (added or duplicate).",
	}, []string{"outcome"})

	TicketsCompiled = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "patrol",
		Name:      "tickets_compiled_total",
		Help:      "Tickets compiled from offense carts.",
	})

	Settlements = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "patrol",
		Name:      "settlements_total",
		Help:      "Settlement attempts by method and resulting status.",
	}, []string{"method", "status"})

	FinesSettled = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "patrol",
		Name:      "fines_settled_amount_total",
		Help:      "Sum of ticket totals that reached PAID or UNPAID.",
	}, []string{"status"})
)
