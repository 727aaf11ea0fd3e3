// File: internal/infra/gateway/metered.go
package gateway

import (
	"context"
	"time"

	"payment-gateway-service/internal/domain/ports/adapter"
	"payment-gateway-service/internal/infra/metrics"
)

// metered wraps an adapter and records per-call latency and outcome.
type metered struct {
	inner adapter.Gateway
}

var _ adapter.Gateway = (*metered)(nil)

func meter(gw adapter.Gateway) adapter.Gateway {
	return &metered{inner: gw}
}

func (m *metered) observe(op string, start time.Time, err error) {
	metrics.ObserveGatewayCall(m.inner.Name(), op, time.Since(start).Milliseconds(), err == nil)
}

func (m *metered) Name() string { return m.inner.Name() }

func (m *metered) CreateOrder(ctx context.Context, req adapter.CreateOrderRequest) (adapter.CreateOrderResult, error) {
	start := time.Now()
	res, err := m.inner.CreateOrder(ctx, req)
	m.observe("create_order", start, err)
	return res, err
}

func (m *metered) VerifyPayment(ctx context.Context, orderID, paymentID, signature string) (adapter.VerifyResult, error) {
	start := time.Now()
	res, err := m.inner.VerifyPayment(ctx, orderID, paymentID, signature)
	m.observe("verify_payment", start, err)
	return res, err
}

func (m *metered) PaymentStatus(ctx context.Context, orderID string) (adapter.StatusResult, error) {
	start := time.Now()
	res, err := m.inner.PaymentStatus(ctx, orderID)
	m.observe("payment_status", start, err)
	return res, err
}

func (m *metered) CreatePlan(ctx context.Context, req adapter.PlanRequest) (adapter.PlanResult, error) {
	start := time.Now()
	res, err := m.inner.CreatePlan(ctx, req)
	m.observe("create_plan", start, err)
	return res, err
}

func (m *metered) CreateSubscription(ctx context.Context, planRef string, customer adapter.Customer) (adapter.SubscriptionResult, error) {
	start := time.Now()
	res, err := m.inner.CreateSubscription(ctx, planRef, customer)
	m.observe("create_subscription", start, err)
	return res, err
}

func (m *metered) CancelSubscription(ctx context.Context, subscriptionID string) error {
	start := time.Now()
	err := m.inner.CancelSubscription(ctx, subscriptionID)
	m.observe("cancel_subscription", start, err)
	return err
}

func (m *metered) RenewSubscription(ctx context.Context, req adapter.RenewalRequest) (adapter.RenewalResult, error) {
	start := time.Now()
	res, err := m.inner.RenewSubscription(ctx, req)
	m.observe("renew_subscription", start, err)
	return res, err
}

func (m *metered) InitiateRefund(ctx context.Context, req adapter.RefundRequest) (adapter.RefundResult, error) {
	start := time.Now()
	res, err := m.inner.InitiateRefund(ctx, req)
	m.observe("initiate_refund", start, err)
	return res, err
}

func (m *metered) ParseWebhook(payload []byte, signature string) (adapter.WebhookEvent, error) {
	ev, err := m.inner.ParseWebhook(payload, signature)
	if err != nil {
		metrics.ObserveGatewayCall(m.inner.Name(), "parse_webhook", 0, false)
	}
	return ev, err
}
