package repository

import (
	"context"
	"time"

	"payment-gateway-service/internal/domain/model"
)

type SubscriptionRepository interface {
	Save(ctx context.Context, tx Tx, s *model.Subscription) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Subscription, error)
	FindBySubscriptionID(ctx context.Context, tx Tx, gatewaySubID string) (*model.Subscription, error)
	ListByUser(ctx context.Context, tx Tx, userID string) ([]*model.Subscription, error)

	// UpdateStatusIf applies status only when the current status is in
	// expected; failureReason is recorded when non-empty.
	UpdateStatusIf(ctx context.Context, tx Tx, id string, status model.SubscriptionStatus, expected []model.SubscriptionStatus, failureReason string) (bool, error)

	// RecordRenewal advances the billing date and stamps the renewal
	// transaction after a successful charge.
	RecordRenewal(ctx context.Context, tx Tx, id string, nextBilling time.Time, transactionID string) error

	// ListDueForRenewal returns active subscriptions whose next_billing_date
	// has passed, oldest due first.
	ListDueForRenewal(ctx context.Context, tx Tx, now time.Time, limit int) ([]*model.Subscription, error)
}
