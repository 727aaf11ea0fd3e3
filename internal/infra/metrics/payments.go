// File: internal/infra/metrics/payments.go
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		paymentsTotal,
		paymentVerifyTotal,
		paymentRetriesTotal,
		paymentExpiredTotal,
		gatewayCallLatencyMs,
		refundsTotal,
	)
}

var (
	paymentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_total",
			Help: "Payment transitions by gateway and resulting status.",
		},
		[]string{"gateway", "status"},
	)

	paymentVerifyTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_verify_total",
			Help: "Verification attempts by gateway and outcome.",
		},
		[]string{"gateway", "outcome"}, // 'verified', 'invalid_signature', 'error'
	)

	paymentRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_retries_total",
			Help: "Retried failed payments by gateway.",
		},
		[]string{"gateway"},
	)

	paymentExpiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "payment_expired_total",
			Help: "Payments swept to expired by the expiry job or lazy reads.",
		},
	)

	gatewayCallLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_call_latency_ms",
			Help:    "Provider API call latency distribution in milliseconds.",
			Buckets: []float64{10, 25, 50, 100, 200, 400, 800, 1600, 3000, 5000},
		},
		[]string{"gateway", "operation", "success"},
	)

	refundsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "refunds_total",
			Help: "Refunds by gateway and resulting status.",
		},
		[]string{"gateway", "status"},
	)
)

func IncPayment(gateway, status string) {
	paymentsTotal.WithLabelValues(norm(gateway), norm(status)).Inc()
}

func IncPaymentVerify(gateway, outcome string) {
	paymentVerifyTotal.WithLabelValues(norm(gateway), norm(outcome)).Inc()
}

func IncPaymentRetry(gateway string) {
	paymentRetriesTotal.WithLabelValues(norm(gateway)).Inc()
}

func AddPaymentsExpired(n int64) {
	paymentExpiredTotal.Add(float64(n))
}

func ObserveGatewayCall(gateway, operation string, latencyMs int64, success bool) {
	gatewayCallLatencyMs.WithLabelValues(norm(gateway), norm(operation), strconv.FormatBool(success)).
		Observe(float64(latencyMs))
}

func IncRefund(gateway, status string) {
	refundsTotal.WithLabelValues(norm(gateway), norm(status)).Inc()
}
