// File: internal/usecase/refund_uc.go
package usecase

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"payment-gateway-service/internal/config"
	"payment-gateway-service/internal/domain"
	"payment-gateway-service/internal/domain/model"
	"payment-gateway-service/internal/domain/ports/adapter"
	"payment-gateway-service/internal/domain/ports/repository"
	"payment-gateway-service/internal/infra/logging"
	"payment-gateway-service/internal/infra/metrics"
)

var _ RefundUseCase = (*refundUC)(nil)

type RefundUseCase interface {
	// InitiateRefund refunds a successful payment, fully when amount is
	// zero, partially otherwise.
	InitiateRefund(ctx context.Context, userID, paymentID string, amount int64, reason string) (*model.Refund, error)
	GetRefund(ctx context.Context, userID, refundID string) (*model.Refund, error)
	ListPaymentRefunds(ctx context.Context, userID, paymentID string) ([]*model.Refund, error)
}

type refundUC struct {
	refunds  repository.RefundRepository
	payments repository.PaymentRepository
	registry adapter.Registry
	cfg      config.PaymentConfig
	log      *zerolog.Logger
	entropy  *ulid.MonotonicEntropy
}

func NewRefundUseCase(
	refunds repository.RefundRepository,
	payments repository.PaymentRepository,
	registry adapter.Registry,
	cfg config.PaymentConfig,
	log *zerolog.Logger,
) *refundUC {
	return &refundUC{
		refunds:  refunds,
		payments: payments,
		registry: registry,
		cfg:      cfg,
		log:      log,
		entropy:  ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}
}

func (u *refundUC) newRefundID(now time.Time) string {
	return ulid.MustNew(ulid.Timestamp(now), u.entropy).String()
}

func (u *refundUC) InitiateRefund(ctx context.Context, userID, paymentID string, amount int64, reason string) (*model.Refund, error) {
	defer logging.TraceDuration(u.log, "RefundUC.InitiateRefund")()

	p, err := u.payments.FindByID(ctx, nil, paymentID)
	if err != nil {
		return nil, err
	}
	if userID != "" && p.UserID != userID {
		return nil, domain.ErrPermissionDenied
	}
	if p.Status != model.PaymentStatusSuccess {
		return nil, fmt.Errorf("payment is %s, only successful payments are refundable: %w", p.Status, domain.ErrInvalidArgument)
	}
	if amount <= 0 {
		amount = p.Amount
	}
	if amount > p.Amount {
		return nil, fmt.Errorf("refund amount exceeds payment amount: %w", domain.ErrInvalidArgument)
	}

	gw, err := u.registry.Resolve(p.Gateway)
	if err != nil {
		return nil, err
	}

	gctx, cancel := context.WithTimeout(ctx, u.cfg.GatewayTimeout)
	defer cancel()
	res, err := gw.InitiateRefund(gctx, adapter.RefundRequest{
		GatewayPaymentID: p.GatewayPaymentID,
		Amount:           amount,
		Reason:           reason,
	})
	if err != nil {
		metrics.IncRefund(gw.Name(), "gateway_error")
		return nil, err
	}

	now := time.Now()
	refund := &model.Refund{
		ID:        u.newRefundID(now),
		PaymentID: p.ID,
		RefundID:  res.RefundID,
		UserID:    p.UserID,
		Amount:    amount,
		Reason:    reason,
		Status:    model.RefundStatusInitiated,
		Gateway:   gw.Name(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := u.refunds.Save(ctx, nil, refund); err != nil {
		return nil, err
	}

	if _, err := u.payments.UpdateStatusIf(ctx, nil, p.ID, model.PaymentStatusRefundInitiated,
		[]model.PaymentStatus{model.PaymentStatusSuccess},
		repository.PaymentUpdate{RefundID: &res.RefundID}); err != nil {
		u.log.Error().Err(err).Str("payment_id", p.ID).Msg("refund recorded but payment transition failed")
	}

	metrics.IncRefund(gw.Name(), "initiated")
	return refund, nil
}

func (u *refundUC) GetRefund(ctx context.Context, userID, refundID string) (*model.Refund, error) {
	r, err := u.refunds.FindByID(ctx, nil, refundID)
	if err != nil {
		return nil, err
	}
	if userID != "" && r.UserID != userID {
		return nil, domain.ErrPermissionDenied
	}
	return r, nil
}

func (u *refundUC) ListPaymentRefunds(ctx context.Context, userID, paymentID string) ([]*model.Refund, error) {
	p, err := u.payments.FindByID(ctx, nil, paymentID)
	if err != nil {
		return nil, err
	}
	if userID != "" && p.UserID != userID {
		return nil, domain.ErrPermissionDenied
	}
	return u.refunds.ListByPayment(ctx, nil, paymentID)
}
