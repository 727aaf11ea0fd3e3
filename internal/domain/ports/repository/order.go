package repository

import (
	"context"
	"time"

	"payment-gateway-service/internal/domain/model"
)

type OrderRepository interface {
	Save(ctx context.Context, tx Tx, o *model.Order) error
	FindByOrderID(ctx context.Context, tx Tx, orderID string) (*model.Order, error)
	ListByUser(ctx context.Context, tx Tx, userID string, limit, offset int) ([]*model.Order, error)

	// UpdateStatusIf mirrors PaymentRepository.UpdateStatusIf for orders.
	UpdateStatusIf(ctx context.Context, tx Tx, orderID string, status model.OrderStatus, expected []model.OrderStatus) (bool, error)

	// MarkExpired expires created orders older than cutoff that never
	// completed; companion to the payment expiry sweep.
	MarkExpired(ctx context.Context, tx Tx, cutoff time.Time) (int64, error)
}
