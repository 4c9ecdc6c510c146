package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	DeltasDelivered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_deltas_delivered_total",
			Help: "order change deltas delivered to a consumer after dedup",
		},
		[]string{"consumer", "source"},
	)
	DeltasDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_deltas_dropped_total",
			Help: "order change deltas dropped as duplicates or stale",
		},
		[]string{"consumer", "source"},
	)
	PollFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_poll_failures_total",
			Help: "failed polls of the order store",
		},
		[]string{"consumer"},
	)
	SubscriptionDrops = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_subscription_drops_total",
			Help: "push channel disconnects",
		},
		[]string{"consumer"},
	)
	Resyncs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_resyncs_total",
			Help: "full resyncs after the push channel (re)connected",
		},
		[]string{"consumer"},
	)
	ActiveOrders = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "feed_active_orders",
			Help: "orders currently in a consumer's active view",
		},
		[]string{"consumer"},
	)
	AlertsRaised = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "kitchen_alerts_raised_total",
			Help: "new-order alerts surfaced to kitchen staff",
		},
	)
	AlertsAcknowledged = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "kitchen_alerts_acknowledged_total",
			Help: "new-order alerts acknowledged by kitchen staff",
		},
	)
	StatusTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_status_transitions_total",
			Help: "persisted order status transitions",
		},
		[]string{"from", "to"},
	)
	TransitionsRejected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "order_status_transitions_rejected_total",
			Help: "status change requests rejected by the status machine",
		},
	)
)

func Init() {
	prometheus.MustRegister(
		DeltasDelivered,
		DeltasDropped,
		PollFailures,
		SubscriptionDrops,
		Resyncs,
		ActiveOrders,
		AlertsRaised,
		AlertsAcknowledged,
		StatusTransitions,
		TransitionsRejected,
	)
}
