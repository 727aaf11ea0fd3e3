package repository

import (
	"context"
	"time"

	"payment-gateway-service/internal/domain/model"
)

// PaymentUpdate carries the optional fields a status transition may set
// alongside the new status.
type PaymentUpdate struct {
	GatewayPaymentID *string
	ErrorMessage     *string
	RefundID         *string
}

type PaymentRepository interface {
	Save(ctx context.Context, tx Tx, p *model.Payment) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Payment, error)
	FindByOrderID(ctx context.Context, tx Tx, orderID string) (*model.Payment, error)
	FindByTransactionID(ctx context.Context, tx Tx, transactionID string) (*model.Payment, error)
	// FindByGatewayPaymentID looks a payment up by the provider's payment
	// id; the renewal paths use it to de-duplicate charges the provider
	// reports more than once.
	FindByGatewayPaymentID(ctx context.Context, tx Tx, gatewayPaymentID string) (*model.Payment, error)
	ListByUser(ctx context.Context, tx Tx, userID string, limit, offset int) ([]*model.Payment, error)

	// UpdateStatusIf applies status only when the current status is in
	// expected, returning whether a row changed. This is the single
	// transition primitive shared by the verify path, the webhook path and
	// every scheduled job, so racing writers converge instead of clobbering.
	UpdateStatusIf(ctx context.Context, tx Tx, id string, status model.PaymentStatus, expected []model.PaymentStatus, upd PaymentUpdate) (bool, error)

	// ReplaceOrder swaps in a fresh gateway order for a retried payment and
	// moves it back to pending with a fresh deadline, stamping the retry
	// bookkeeping. Applies only while the payment is still failed, so
	// overlapping retry passes converge on one winner; returns whether the
	// swap took.
	ReplaceOrder(ctx context.Context, tx Tx, id string, newOrderID string, retryCount int, retriedAt, expiresAt time.Time) (bool, error)

	// MarkExpired bulk-transitions created/pending payments past their
	// expires_at to expired; returns the number of rows changed.
	MarkExpired(ctx context.Context, tx Tx, now time.Time) (int64, error)

	// ListAwaitingVerification returns non-expired created/pending payments
	// for the pending-verification job, oldest first.
	ListAwaitingVerification(ctx context.Context, tx Tx, now time.Time, limit int) ([]*model.Payment, error)

	// ListFailedForRetry returns failed payments with retry_count below
	// maxRetries, oldest retry first.
	ListFailedForRetry(ctx context.Context, tx Tx, maxRetries, limit int) ([]*model.Payment, error)

	// ListStatusChangedSince returns payments whose status changed within
	// the window, for the broadcast job.
	ListStatusChangedSince(ctx context.Context, tx Tx, since time.Time, limit int) ([]*model.Payment, error)
}
