package repository

import (
	"context"

	"payment-gateway-service/internal/domain/model"
)

type RefundRepository interface {
	Save(ctx context.Context, tx Tx, r *model.Refund) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Refund, error)
	ListByPayment(ctx context.Context, tx Tx, paymentID string) ([]*model.Refund, error)

	UpdateStatusIf(ctx context.Context, tx Tx, id string, status model.RefundStatus, expected []model.RefundStatus) (bool, error)
}
