// File: internal/infra/metrics/webhooks.go
package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(webhooksTotal)
}

var webhooksTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "webhooks_total",
		Help: "Webhook deliveries by gateway and outcome.",
	},
	[]string{"gateway", "outcome"}, // 'applied', 'noop', 'invalid_signature', 'ignored', 'error'
)

func IncWebhook(gateway, outcome string) {
	webhooksTotal.WithLabelValues(norm(gateway), norm(outcome)).Inc()
}
