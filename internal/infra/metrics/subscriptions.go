// File: internal/infra/metrics/subscriptions.go
package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(subscriptionsTotal, renewalsTotal)
}

var (
	subscriptionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscriptions_total",
			Help: "Subscription transitions by gateway and resulting status.",
		},
		[]string{"gateway", "status"},
	)

	renewalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscription_renewals_total",
			Help: "Renewal charges by gateway and outcome.",
		},
		[]string{"gateway", "outcome"}, // 'charged', 'failed', 'unsupported'
	)
)

func IncSubscription(gateway, status string) {
	subscriptionsTotal.WithLabelValues(norm(gateway), norm(status)).Inc()
}

func IncRenewal(gateway, outcome string) {
	renewalsTotal.WithLabelValues(norm(gateway), norm(outcome)).Inc()
}
