package model

import (
	"time"

	"payment-gateway-service/internal/domain"
)

type SubscriptionStatus string

const (
	SubscriptionStatusPending       SubscriptionStatus = "pending"        // gateway subscription created, no payment yet
	SubscriptionStatusActive        SubscriptionStatus = "active"         // first payment verified
	SubscriptionStatusCancelled     SubscriptionStatus = "cancelled"      // gateway-confirmed cancellation
	SubscriptionStatusPaymentFailed SubscriptionStatus = "payment_failed" // renewal charge failed; retried next cycle
	SubscriptionStatusCompleted     SubscriptionStatus = "completed"      // gateway reports all installments done
	SubscriptionStatusExpired       SubscriptionStatus = "expired"        // gateway-side expiry
)

// Subscription is a user's recurring billing agreement tracked locally and
// mirrored at the gateway via SubscriptionID.
type Subscription struct {
	ID              string // UUID
	SubscriptionID  string // gateway subscription id
	UserID          string
	PlanID          string
	Gateway         string
	Status          SubscriptionStatus
	StartDate       time.Time
	NextBillingDate time.Time
	EndDate         *time.Time
	LastRenewalTx   string // transaction id of the most recent renewal charge
	FailureReason   string
	Meta            map[string]interface{}
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewSubscription builds the local record for a gateway subscription just
// created against plan.
func NewSubscription(id, gatewaySubID, userID string, plan *Plan) (*Subscription, error) {
	if id == "" || gatewaySubID == "" || userID == "" || plan.IsZero() {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Subscription{
		ID:              id,
		SubscriptionID:  gatewaySubID,
		UserID:          userID,
		PlanID:          plan.ID,
		Gateway:         plan.Gateway,
		Status:          SubscriptionStatusPending,
		StartDate:       now,
		NextBillingDate: NextBillingDate(now, plan.Interval, plan.Period),
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// DueForRenewal reports whether an active subscription's billing date has
// passed.
func (s *Subscription) DueForRenewal(now time.Time) bool {
	return s.Status == SubscriptionStatusActive && !s.NextBillingDate.IsZero() && s.NextBillingDate.Before(now)
}
