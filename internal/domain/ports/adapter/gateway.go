package adapter

import (
	"context"

	"payment-gateway-service/internal/domain/model"
)

// CreateOrderRequest carries everything a provider needs to open an order.
// Amount is in major currency units; adapters convert to the provider's
// minor unit on the wire.
type CreateOrderRequest struct {
	Amount   int64
	Currency string
	Receipt  string
	Method   string // e.g. "upi", "card"; provider may ignore
	Flow     string // e.g. "intent", "collect" for UPI
	Notes    map[string]interface{}
}

type CreateOrderResult struct {
	OrderID    string // gateway-assigned order id
	Amount     int64
	Currency   string
	Status     string // always "created" on success
	PaymentURL string // redirect/checkout URL if the provider returns one
	IntentURL  string // UPI intent deep link, when requested
}

// VerifyResult reports the outcome of a synchronous verification call.
// Verified=false with a nil error is a legitimate "invalid" result, not a
// system fault.
type VerifyResult struct {
	Verified bool
	Status   model.PaymentStatus
	Amount   int64
}

type StatusResult struct {
	Status           model.PaymentStatus
	GatewayPaymentID string
}

type PlanRequest struct {
	Name     string
	Amount   int64
	Interval int
	Period   model.PlanPeriod
	Notes    map[string]interface{}
}

type PlanResult struct {
	PlanID string
}

type Customer struct {
	Name    string
	Email   string
	Contact string
}

type SubscriptionResult struct {
	SubscriptionID string
	Status         string
}

type RenewalRequest struct {
	SubscriptionID string
	Amount         int64
	Currency       string
	Description    string
}

type RenewalResult struct {
	Success       bool
	TransactionID string
	OrderID       string
	Message       string
}

type RefundRequest struct {
	GatewayPaymentID string
	Amount           int64
	Reason           string
}

type RefundResult struct {
	RefundID string
	Status   string
}

// WebhookKind classifies what a provider event refers to.
type WebhookKind string

const (
	WebhookKindPayment      WebhookKind = "payment"
	WebhookKindSubscription WebhookKind = "subscription"
	WebhookKindIgnored      WebhookKind = "ignored"
)

// WebhookEvent is a provider event mapped to internal vocabulary. For
// payment events OrderID/PaymentID identify the subject; for subscription
// events SubscriptionID does. Unrecognized event names come back as
// Kind=ignored rather than an error.
type WebhookEvent struct {
	Kind               WebhookKind
	Event              string // provider event name, e.g. "payment.captured"
	OrderID            string
	PaymentID          string // gateway payment id
	SubscriptionID     string // gateway subscription id
	PaymentStatus      model.PaymentStatus
	SubscriptionStatus model.SubscriptionStatus
	Amount             int64
	ErrorMessage       string
}

// Gateway is the uniform capability set every payment provider adapter
// implements. Providers lacking a capability fail fast with
// domain.ErrUnsupportedOperation, never a silent no-op.
type Gateway interface {
	Name() string

	CreateOrder(ctx context.Context, req CreateOrderRequest) (CreateOrderResult, error)
	// VerifyPayment checks the client-submitted signature over
	// "orderID|paymentID" in constant time and, when valid, fetches the
	// settlement state from the provider.
	VerifyPayment(ctx context.Context, orderID, paymentID, signature string) (VerifyResult, error)
	// PaymentStatus queries the provider's view of an order. Must tolerate
	// being called after local expiry.
	PaymentStatus(ctx context.Context, orderID string) (StatusResult, error)

	CreatePlan(ctx context.Context, req PlanRequest) (PlanResult, error)
	CreateSubscription(ctx context.Context, planRef string, customer Customer) (SubscriptionResult, error)
	CancelSubscription(ctx context.Context, subscriptionID string) error
	RenewSubscription(ctx context.Context, req RenewalRequest) (RenewalResult, error)

	InitiateRefund(ctx context.Context, req RefundRequest) (RefundResult, error)

	// ParseWebhook verifies the provider signature over the raw payload and
	// maps the event to internal vocabulary.
	ParseWebhook(payload []byte, signature string) (WebhookEvent, error)
}

// Registry resolves a gateway name to an adapter built once at startup.
type Registry interface {
	// Resolve returns the adapter for name; the configured default when name
	// is empty. Fails with domain.ErrUnknownGateway or
	// domain.ErrGatewayDisabled.
	Resolve(name string) (Gateway, error)
	// Enabled lists the names of usable gateways.
	Enabled() []string
}
