package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"payment-gateway-service/internal/domain/model"
	"payment-gateway-service/internal/domain/ports/adapter"
	"payment-gateway-service/internal/domain/ports/repository"
	"payment-gateway-service/internal/infra/metrics"
)

// PendingVerifier re-checks pending payments against the provider. This
// covers clients that paid but never returned to call verify, and verify
// calls lost to crashes.
type PendingVerifier struct {
	interval  time.Duration
	batchSize int
	payments  repository.PaymentRepository
	orders    repository.OrderRepository
	registry  adapter.Registry
	log       *zerolog.Logger
}

func NewPendingVerifier(interval time.Duration, batchSize int, payments repository.PaymentRepository, orders repository.OrderRepository, registry adapter.Registry, logger *zerolog.Logger) *PendingVerifier {
	verLog := logger.With().Str("component", "PendingVerifier").Logger()
	if batchSize <= 0 {
		batchSize = 50
	}
	return &PendingVerifier{
		interval:  interval,
		batchSize: batchSize,
		payments:  payments,
		orders:    orders,
		registry:  registry,
		log:       &verLog,
	}
}

func (w *PendingVerifier) Name() string            { return "pending_verification" }
func (w *PendingVerifier) Interval() time.Duration { return w.interval }
func (w *PendingVerifier) RunOnStart() bool        { return false }

func (w *PendingVerifier) Run(ctx context.Context) error {
	pending, err := w.payments.ListAwaitingVerification(ctx, nil, time.Now(), w.batchSize)
	if err != nil {
		return err
	}

	for _, p := range pending {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if p.OrderID == nil {
			continue
		}
		w.check(ctx, p)
	}
	return nil
}

func (w *PendingVerifier) check(ctx context.Context, p *model.Payment) {
	gw, err := w.registry.Resolve(p.Gateway)
	if err != nil {
		w.log.Error().Err(err).Str("payment_id", p.ID).Str("gateway", p.Gateway).Msg("cannot resolve gateway")
		return
	}

	res, err := gw.PaymentStatus(ctx, *p.OrderID)
	if err != nil {
		w.log.Warn().Err(err).Str("payment_id", p.ID).Msg("status query failed")
		return
	}

	upd := repository.PaymentUpdate{}
	if res.GatewayPaymentID != "" {
		upd.GatewayPaymentID = &res.GatewayPaymentID
	}

	switch res.Status {
	case model.PaymentStatusSuccess:
		applied, err := w.payments.UpdateStatusIf(ctx, nil, p.ID, model.PaymentStatusSuccess,
			[]model.PaymentStatus{model.PaymentStatusCreated, model.PaymentStatusPending}, upd)
		if err != nil {
			w.log.Error().Err(err).Str("payment_id", p.ID).Msg("settlement update failed")
			return
		}
		if applied {
			metrics.IncPayment(gw.Name(), "success")
			metrics.IncPaymentVerify(gw.Name(), "reconciled")
			if _, err := w.orders.UpdateStatusIf(ctx, nil, *p.OrderID, model.OrderStatusCompleted,
				[]model.OrderStatus{model.OrderStatusCreated}); err != nil {
				w.log.Error().Err(err).Str("order_id", *p.OrderID).Msg("failed to complete order")
			}
			w.log.Info().Str("payment_id", p.ID).Msg("pending payment settled from provider state")
		}

	case model.PaymentStatusFailed:
		applied, err := w.payments.UpdateStatusIf(ctx, nil, p.ID, model.PaymentStatusFailed,
			[]model.PaymentStatus{model.PaymentStatusCreated, model.PaymentStatusPending}, upd)
		if err != nil {
			w.log.Error().Err(err).Str("payment_id", p.ID).Msg("failure update failed")
			return
		}
		if applied {
			metrics.IncPayment(gw.Name(), "failed")
			if _, err := w.orders.UpdateStatusIf(ctx, nil, *p.OrderID, model.OrderStatusFailed,
				[]model.OrderStatus{model.OrderStatusCreated}); err != nil {
				w.log.Error().Err(err).Str("order_id", *p.OrderID).Msg("failed to fail order")
			}
		}

	case model.PaymentStatusExpired:
		if _, err := w.payments.UpdateStatusIf(ctx, nil, p.ID, model.PaymentStatusExpired,
			[]model.PaymentStatus{model.PaymentStatusCreated, model.PaymentStatusPending}, upd); err != nil {
			w.log.Error().Err(err).Str("payment_id", p.ID).Msg("expiry update failed")
		}

	default:
		// Still pending at the provider.
	}
}
