// File: internal/usecase/payment_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"payment-gateway-service/internal/config"
	"payment-gateway-service/internal/domain"
	"payment-gateway-service/internal/domain/model"
	"payment-gateway-service/internal/domain/ports/adapter"
	"payment-gateway-service/internal/domain/ports/repository"
	"payment-gateway-service/internal/infra/logging"
	"payment-gateway-service/internal/infra/metrics"
)

// Compile-time check
var _ PaymentUseCase = (*paymentUC)(nil)

// CreateOrderInput is the caller's view of a new collection request.
type CreateOrderInput struct {
	Amount   int64
	Currency string
	Gateway  string // empty means the configured default
	Method   string
	Flow     string
	Notes    map[string]interface{}
}

// CreateOrderOutput pairs the ledger records with the provider artifacts
// the client needs to complete checkout.
type CreateOrderOutput struct {
	Payment    *model.Payment
	Order      *model.Order
	PaymentURL string
	IntentURL  string
}

type PaymentUseCase interface {
	CreateOrder(ctx context.Context, userID string, in CreateOrderInput) (*CreateOrderOutput, error)
	// VerifyPayment applies the client-submitted verification outcome to the
	// ledger. Re-verifying an already-successful payment is a no-op success.
	VerifyPayment(ctx context.Context, userID, orderID, gatewayPaymentID, signature string) (*model.Payment, error)
	// GetStatus reads by gateway order id; GetDetails by local payment id.
	// Both apply lazy expiry before returning.
	GetStatus(ctx context.Context, userID, orderID string) (*model.Payment, error)
	GetDetails(ctx context.Context, userID, paymentID string) (*model.Payment, error)
	ListUserPayments(ctx context.Context, userID string, limit, offset int) ([]*model.Payment, error)

	// RetryPayment is the retry job's entry point: fresh gateway order for
	// the same logical payment.
	RetryPayment(ctx context.Context, p *model.Payment) error
	// ProcessRenewal is the renewal job's entry point.
	ProcessRenewal(ctx context.Context, sub *model.Subscription, plan *model.Plan) error
}

type paymentUC struct {
	payments repository.PaymentRepository
	orders   repository.OrderRepository
	subs     repository.SubscriptionRepository
	registry adapter.Registry
	cfg      config.PaymentConfig
	log      *zerolog.Logger
}

func NewPaymentUseCase(
	payments repository.PaymentRepository,
	orders repository.OrderRepository,
	subs repository.SubscriptionRepository,
	registry adapter.Registry,
	cfg config.PaymentConfig,
	log *zerolog.Logger,
) *paymentUC {
	return &paymentUC{payments: payments, orders: orders, subs: subs, registry: registry, cfg: cfg, log: log}
}

func (u *paymentUC) gatewayCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, u.cfg.GatewayTimeout)
}

func (u *paymentUC) CreateOrder(ctx context.Context, userID string, in CreateOrderInput) (*CreateOrderOutput, error) {
	defer logging.TraceDuration(u.log, "PaymentUC.CreateOrder")()

	if in.Amount <= 0 {
		return nil, fmt.Errorf("amount must be positive: %w", domain.ErrInvalidArgument)
	}
	if in.Currency == "" {
		in.Currency = "INR"
	}
	if !u.cfg.IsCurrencySupported(in.Currency) {
		return nil, fmt.Errorf("currency %q not supported: %w", in.Currency, domain.ErrInvalidArgument)
	}
	if !u.cfg.IsMethodSupported(in.Method) {
		return nil, fmt.Errorf("method %q not supported: %w", in.Method, domain.ErrInvalidArgument)
	}

	gw, err := u.registry.Resolve(in.Gateway)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	localOrderID := uuid.NewString()

	gctx, cancel := u.gatewayCtx(ctx)
	defer cancel()
	res, err := gw.CreateOrder(gctx, adapter.CreateOrderRequest{
		Amount:   in.Amount,
		Currency: in.Currency,
		Receipt:  localOrderID,
		Method:   in.Method,
		Flow:     in.Flow,
		Notes:    in.Notes,
	})
	if err != nil {
		metrics.IncPayment(gw.Name(), "gateway_error")
		return nil, err
	}

	order := &model.Order{
		ID:        localOrderID,
		OrderID:   res.OrderID,
		UserID:    userID,
		Amount:    in.Amount,
		Currency:  in.Currency,
		Status:    model.OrderStatusCreated,
		Gateway:   gw.Name(),
		Meta:      in.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := u.orders.Save(ctx, nil, order); err != nil {
		return nil, err
	}

	payment := &model.Payment{
		ID:            uuid.NewString(),
		TransactionID: uuid.NewString(),
		OrderID:       &res.OrderID,
		UserID:        userID,
		Amount:        in.Amount,
		Currency:      in.Currency,
		Gateway:       gw.Name(),
		Type:          model.PaymentTypeOneTime,
		Status:        model.PaymentStatusPending,
		ExpiresAt:     now.Add(u.cfg.OrderExpiry),
		Meta:          in.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := u.payments.Save(ctx, nil, payment); err != nil {
		// The order stays 'created'; the expiry sweep reclaims it.
		u.log.Error().Err(err).Str("order_id", res.OrderID).Msg("order created but payment persist failed")
		return nil, err
	}

	metrics.IncPayment(gw.Name(), "created")
	return &CreateOrderOutput{
		Payment:    payment,
		Order:      order,
		PaymentURL: res.PaymentURL,
		IntentURL:  res.IntentURL,
	}, nil
}

func (u *paymentUC) VerifyPayment(ctx context.Context, userID, orderID, gatewayPaymentID, signature string) (*model.Payment, error) {
	defer logging.TraceDuration(u.log, "PaymentUC.VerifyPayment")()

	p, err := u.payments.FindByOrderID(ctx, nil, orderID)
	if err != nil {
		return nil, err
	}
	if userID != "" && p.UserID != userID {
		return nil, domain.ErrPermissionDenied
	}

	gw, err := u.registry.Resolve(p.Gateway)
	if err != nil {
		return nil, err
	}

	gctx, cancel := u.gatewayCtx(ctx)
	defer cancel()
	res, err := gw.VerifyPayment(gctx, orderID, gatewayPaymentID, signature)
	if err != nil {
		metrics.IncPaymentVerify(gw.Name(), "error")
		return nil, err
	}

	if !res.Verified {
		metrics.IncPaymentVerify(gw.Name(), "invalid_signature")
		msg := "invalid signature"
		if _, err := u.payments.UpdateStatusIf(ctx, nil, p.ID, model.PaymentStatusFailed,
			[]model.PaymentStatus{model.PaymentStatusCreated, model.PaymentStatusPending},
			repository.PaymentUpdate{ErrorMessage: &msg}); err != nil {
			u.log.Error().Err(err).Str("payment_id", p.ID).Msg("failed to record signature failure")
		}
		if _, err := u.orders.UpdateStatusIf(ctx, nil, orderID, model.OrderStatusFailed,
			[]model.OrderStatus{model.OrderStatusCreated}); err != nil {
			u.log.Error().Err(err).Str("order_id", orderID).Msg("failed to fail order")
		}
		return nil, domain.ErrSignatureInvalid
	}

	metrics.IncPaymentVerify(gw.Name(), "verified")
	return u.applyVerifiedStatus(ctx, p, orderID, gatewayPaymentID, res.Status)
}

// applyVerifiedStatus converges the ledger onto the gateway's settlement
// view through conditional transitions; concurrent writers lose quietly.
func (u *paymentUC) applyVerifiedStatus(ctx context.Context, p *model.Payment, orderID, gatewayPaymentID string, status model.PaymentStatus) (*model.Payment, error) {
	upd := repository.PaymentUpdate{}
	if gatewayPaymentID != "" {
		upd.GatewayPaymentID = &gatewayPaymentID
	}

	switch status {
	case model.PaymentStatusSuccess:
		applied, err := u.payments.UpdateStatusIf(ctx, nil, p.ID, model.PaymentStatusSuccess,
			[]model.PaymentStatus{model.PaymentStatusCreated, model.PaymentStatusPending}, upd)
		if err != nil {
			return nil, err
		}
		if applied {
			metrics.IncPayment(p.Gateway, "success")
			if _, err := u.orders.UpdateStatusIf(ctx, nil, orderID, model.OrderStatusCompleted,
				[]model.OrderStatus{model.OrderStatusCreated}); err != nil {
				u.log.Error().Err(err).Str("order_id", orderID).Msg("failed to complete order")
			}
			if p.SubscriptionID != nil {
				if err := u.activateSubscription(ctx, *p.SubscriptionID); err != nil {
					u.log.Error().Err(err).Str("subscription_id", *p.SubscriptionID).Msg("subscription activation failed after payment")
				}
			}
		}
		return u.payments.FindByID(ctx, nil, p.ID)

	case model.PaymentStatusFailed:
		if _, err := u.payments.UpdateStatusIf(ctx, nil, p.ID, model.PaymentStatusFailed,
			[]model.PaymentStatus{model.PaymentStatusCreated, model.PaymentStatusPending}, upd); err != nil {
			return nil, err
		}
		metrics.IncPayment(p.Gateway, "failed")
		if _, err := u.orders.UpdateStatusIf(ctx, nil, orderID, model.OrderStatusFailed,
			[]model.OrderStatus{model.OrderStatusCreated}); err != nil {
			u.log.Error().Err(err).Str("order_id", orderID).Msg("failed to fail order")
		}
		return u.payments.FindByID(ctx, nil, p.ID)

	default:
		// Still pending at the gateway; nothing to converge.
		return u.payments.FindByID(ctx, nil, p.ID)
	}
}

// activateSubscription is the idempotent pending→active transition shared
// by the verify and webhook paths.
func (u *paymentUC) activateSubscription(ctx context.Context, subscriptionID string) error {
	applied, err := u.subs.UpdateStatusIf(ctx, nil, subscriptionID, model.SubscriptionStatusActive,
		[]model.SubscriptionStatus{model.SubscriptionStatusPending}, "")
	if err != nil {
		return err
	}
	if applied {
		metrics.IncSubscription("", "active")
	}
	return nil
}

func (u *paymentUC) GetStatus(ctx context.Context, userID, orderID string) (*model.Payment, error) {
	p, err := u.payments.FindByOrderID(ctx, nil, orderID)
	if err != nil {
		return nil, err
	}
	if userID != "" && p.UserID != userID {
		return nil, domain.ErrPermissionDenied
	}
	return u.lazyExpire(ctx, p)
}

func (u *paymentUC) GetDetails(ctx context.Context, userID, paymentID string) (*model.Payment, error) {
	p, err := u.payments.FindByID(ctx, nil, paymentID)
	if err != nil {
		return nil, err
	}
	if userID != "" && p.UserID != userID {
		return nil, domain.ErrPermissionDenied
	}
	return u.lazyExpire(ctx, p)
}

// lazyExpire flips an overdue created/pending payment to expired on read,
// so callers never observe a stale pending past its deadline regardless of
// scheduler timing.
func (u *paymentUC) lazyExpire(ctx context.Context, p *model.Payment) (*model.Payment, error) {
	if !p.Expired(time.Now()) {
		return p, nil
	}

	applied, err := u.payments.UpdateStatusIf(ctx, nil, p.ID, model.PaymentStatusExpired,
		[]model.PaymentStatus{model.PaymentStatusCreated, model.PaymentStatusPending},
		repository.PaymentUpdate{})
	if err != nil {
		return nil, err
	}
	if applied {
		metrics.AddPaymentsExpired(1)
		if p.OrderID != nil {
			if _, err := u.orders.UpdateStatusIf(ctx, nil, *p.OrderID, model.OrderStatusExpired,
				[]model.OrderStatus{model.OrderStatusCreated}); err != nil {
				u.log.Error().Err(err).Str("order_id", *p.OrderID).Msg("failed to expire order")
			}
		}
	}
	return u.payments.FindByID(ctx, nil, p.ID)
}

func (u *paymentUC) ListUserPayments(ctx context.Context, userID string, limit, offset int) ([]*model.Payment, error) {
	return u.payments.ListByUser(ctx, nil, userID, limit, offset)
}

func (u *paymentUC) RetryPayment(ctx context.Context, p *model.Payment) error {
	defer logging.TraceDuration(u.log, "PaymentUC.RetryPayment")()

	if p.Status != model.PaymentStatusFailed {
		return fmt.Errorf("payment %s is %s, not failed: %w", p.ID, p.Status, domain.ErrInvalidArgument)
	}

	gw, err := u.registry.Resolve(p.Gateway)
	if err != nil {
		return err
	}

	now := time.Now()
	localOrderID := uuid.NewString()

	gctx, cancel := u.gatewayCtx(ctx)
	defer cancel()
	res, err := gw.CreateOrder(gctx, adapter.CreateOrderRequest{
		Amount:   p.Amount,
		Currency: p.Currency,
		Receipt:  localOrderID,
		Notes:    p.Meta,
	})
	if err != nil {
		return err
	}

	order := &model.Order{
		ID:        localOrderID,
		OrderID:   res.OrderID,
		UserID:    p.UserID,
		Amount:    p.Amount,
		Currency:  p.Currency,
		Status:    model.OrderStatusCreated,
		Gateway:   gw.Name(),
		Meta:      p.Meta,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := u.orders.Save(ctx, nil, order); err != nil {
		return err
	}

	applied, err := u.payments.ReplaceOrder(ctx, nil, p.ID, res.OrderID, p.RetryCount+1, now, now.Add(u.cfg.OrderExpiry))
	if err != nil {
		return err
	}
	if !applied {
		// A concurrent retry or a late verification won the transition; the
		// unused gateway order expires through the order sweep.
		u.log.Info().Str("payment_id", p.ID).Str("order_id", res.OrderID).Msg("retry skipped, payment no longer failed")
		return nil
	}
	metrics.IncPaymentRetry(gw.Name())
	u.log.Info().Str("payment_id", p.ID).Str("order_id", res.OrderID).Int("retry", p.RetryCount+1).Msg("payment retried with fresh order")
	return nil
}

func (u *paymentUC) ProcessRenewal(ctx context.Context, sub *model.Subscription, plan *model.Plan) error {
	defer logging.TraceDuration(u.log, "PaymentUC.ProcessRenewal")()

	gw, err := u.registry.Resolve(sub.Gateway)
	if err != nil {
		return err
	}

	gctx, cancel := u.gatewayCtx(ctx)
	defer cancel()
	res, err := gw.RenewSubscription(gctx, adapter.RenewalRequest{
		SubscriptionID: sub.SubscriptionID,
		Amount:         plan.Amount,
		Currency:       "INR",
		Description:    fmt.Sprintf("%s renewal", plan.Name),
	})

	if err != nil || !res.Success {
		reason := "renewal charge failed"
		if err != nil {
			reason = err.Error()
		} else if res.Message != "" {
			reason = res.Message
		}
		metrics.IncRenewal(gw.Name(), "failed")
		if errors.Is(err, domain.ErrUnsupportedOperation) {
			metrics.IncRenewal(gw.Name(), "unsupported")
		}
		if _, uerr := u.subs.UpdateStatusIf(ctx, nil, sub.ID, model.SubscriptionStatusPaymentFailed,
			[]model.SubscriptionStatus{model.SubscriptionStatusActive}, reason); uerr != nil {
			return uerr
		}
		u.log.Warn().Str("subscription_id", sub.ID).Str("reason", reason).Msg("subscription renewal failed")
		return err
	}

	now := time.Now()
	payment := &model.Payment{
		ID:               uuid.NewString(),
		TransactionID:    uuid.NewString(),
		SubscriptionID:   &sub.ID,
		UserID:           sub.UserID,
		Amount:           plan.Amount,
		Currency:         "INR",
		Gateway:          gw.Name(),
		GatewayPaymentID: res.TransactionID,
		Type:             model.PaymentTypeSubscription,
		Status:           model.PaymentStatusSuccess,
		ExpiresAt:        now.Add(u.cfg.OrderExpiry),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := u.payments.Save(ctx, nil, payment); err != nil {
		return err
	}

	next := model.NextBillingDate(sub.NextBillingDate, plan.Interval, plan.Period)
	if err := u.subs.RecordRenewal(ctx, nil, sub.ID, next, payment.TransactionID); err != nil {
		return err
	}

	metrics.IncRenewal(gw.Name(), "charged")
	u.log.Info().Str("subscription_id", sub.ID).Time("next_billing", next).Msg("subscription renewed")
	return nil
}
