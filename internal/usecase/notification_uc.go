// File: internal/usecase/notification_uc.go
package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"payment-gateway-service/internal/domain/model"
	"payment-gateway-service/internal/domain/ports/adapter"
	"payment-gateway-service/internal/domain/ports/repository"
)

// Compile-time check
var _ NotificationUseCase = (*notificationUC)(nil)

type NotificationUseCase interface {
	// BroadcastStatusChanges publishes payments whose status changed since
	// the given instant and returns how many were published. Read-only with
	// respect to the ledger.
	BroadcastStatusChanges(ctx context.Context, since time.Time, limit int) (int, error)
}

type notificationUC struct {
	payments    repository.PaymentRepository
	broadcaster adapter.Broadcaster
	log         *zerolog.Logger
}

func NewNotificationUseCase(payments repository.PaymentRepository, broadcaster adapter.Broadcaster, logger *zerolog.Logger) *notificationUC {
	return &notificationUC{payments: payments, broadcaster: broadcaster, log: logger}
}

// notifyWorthy marks statuses the user should hear about even when they
// never return to the app.
func notifyWorthy(s model.PaymentStatus) bool {
	switch s {
	case model.PaymentStatusFailed, model.PaymentStatusExpired, model.PaymentStatusRefunded:
		return true
	}
	return false
}

func (n *notificationUC) BroadcastStatusChanges(ctx context.Context, since time.Time, limit int) (int, error) {
	changed, err := n.payments.ListStatusChangedSince(ctx, nil, since, limit)
	if err != nil {
		return 0, err
	}

	published := 0
	for _, p := range changed {
		orderID := ""
		if p.OrderID != nil {
			orderID = *p.OrderID
		}
		update := adapter.StatusUpdate{
			Subject:      "payment",
			ID:           p.ID,
			UserID:       p.UserID,
			OrderID:      orderID,
			Status:       string(p.Status),
			Amount:       p.Amount,
			ErrorMessage: p.ErrorMessage,
			UpdatedAt:    p.UpdatedAt.UTC().Format(time.RFC3339),
		}
		if err := n.broadcaster.Publish(ctx, update); err != nil {
			n.log.Error().Err(err).Str("payment_id", p.ID).Msg("failed to publish status change")
			continue
		}
		published++

		if notifyWorthy(p.Status) {
			n.log.Info().
				Str("payment_id", p.ID).
				Str("user_id", p.UserID).
				Str("status", string(p.Status)).
				Msg("user notification emitted")
		}
	}
	return published, nil
}
