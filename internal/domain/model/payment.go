package model

import "time"

type PaymentStatus string

const (
	PaymentStatusCreated         PaymentStatus = "created"          // local record exists; no gateway confirmation yet
	PaymentStatusPending         PaymentStatus = "pending"          // gateway order created; awaiting settlement
	PaymentStatusSuccess         PaymentStatus = "success"          // verified at the gateway
	PaymentStatusFailed          PaymentStatus = "failed"           // verification failed or gateway reported failure
	PaymentStatusExpired         PaymentStatus = "expired"          // never settled before expires_at
	PaymentStatusRefundInitiated PaymentStatus = "refund_initiated" // refund requested at the gateway
	PaymentStatusRefunded        PaymentStatus = "refunded"         // gateway confirmed the refund
)

type PaymentType string

const (
	PaymentTypeOneTime      PaymentType = "one-time"
	PaymentTypeSubscription PaymentType = "subscription"
)

// transitions is the allowed forward edge set of the payment state machine.
// Terminal statuses have no outgoing edges except success -> refund flow.
var transitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusCreated:         {PaymentStatusPending, PaymentStatusSuccess, PaymentStatusFailed, PaymentStatusExpired},
	PaymentStatusPending:         {PaymentStatusSuccess, PaymentStatusFailed, PaymentStatusExpired},
	PaymentStatusSuccess:         {PaymentStatusRefundInitiated},
	PaymentStatusRefundInitiated: {PaymentStatusRefunded},
}

// CanTransition reports whether moving from to next is a legal forward step.
// Re-applying the current status is treated as a legal no-op so that racing
// writers (verify path, webhook path, scheduler) converge instead of erroring.
func (s PaymentStatus) CanTransition(next PaymentStatus) bool {
	if s == next {
		return true
	}
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further non-refund transition is possible.
func (s PaymentStatus) IsTerminal() bool {
	switch s {
	case PaymentStatusFailed, PaymentStatusExpired, PaymentStatusRefunded:
		return true
	}
	return false
}

// Payment records a single settlement attempt against an order or a
// subscription renewal. TransactionID is generated locally at creation and
// never changes, so gateway callbacks remain reconcilable even before the
// gateway payment id is known.
type Payment struct {
	ID               string // UUID
	TransactionID    string // UUID, unique, assigned at creation
	OrderID          *string
	SubscriptionID   *string
	UserID           string
	Amount           int64 // major currency units as submitted; adapters convert
	Currency         string
	Gateway          string
	GatewayPaymentID string // learned at verification / webhook time
	Type             PaymentType
	Status           PaymentStatus
	RetryCount       int
	LastRetryAt      *time.Time
	ExpiresAt        time.Time
	RefundID         *string
	ErrorMessage     string
	Meta             map[string]interface{}
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Expired reports whether the payment sat unsettled past its deadline.
func (p *Payment) Expired(now time.Time) bool {
	if p.Status != PaymentStatusCreated && p.Status != PaymentStatusPending {
		return false
	}
	return !p.ExpiresAt.IsZero() && p.ExpiresAt.Before(now)
}
