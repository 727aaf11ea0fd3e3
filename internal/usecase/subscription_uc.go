// File: internal/usecase/subscription_uc.go
package usecase

import (
	"context"
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

var _ SubscriptionUseCase = (*subscriptionUC)(nil)

type CreatePlanInput struct {
	Name     string
	Amount   int64
	Interval int
	Period   model.PlanPeriod
	Gateway  string
	Notes    map[string]interface{}
}

type SubscriptionUseCase interface {
	CreatePlan(ctx context.Context, in CreatePlanInput) (*model.Plan, error)
	ListPlans(ctx context.Context) ([]*model.Plan, error)
	GetPlan(ctx context.Context, planID string) (*model.Plan, error)

	// Subscribe creates the gateway subscription first, then the local
	// record; gateway-side cleanup runs when the local persist fails.
	Subscribe(ctx context.Context, userID, planID string, customer adapter.Customer) (*model.Subscription, error)
	// CreateSubscriptionOrder opens a payment order for a pending
	// subscription's first charge.
	CreateSubscriptionOrder(ctx context.Context, userID, subscriptionID string) (*CreateOrderOutput, error)
	// VerifySubscriptionPayment verifies the first charge and activates.
	VerifySubscriptionPayment(ctx context.Context, userID, subscriptionID, orderID, gatewayPaymentID, signature string) (*model.Subscription, error)
	// Activate is the idempotent pending→active transition; both the verify
	// path and the webhook path land here.
	Activate(ctx context.Context, subscriptionID string) error
	Cancel(ctx context.Context, userID, subscriptionID string) (*model.Subscription, error)
	ListUserSubscriptions(ctx context.Context, userID string) ([]*model.Subscription, error)
}

type subscriptionUC struct {
	subs     repository.SubscriptionRepository
	plans    repository.PlanRepository
	payments repository.PaymentRepository
	orders   repository.OrderRepository
	registry adapter.Registry
	cfg      config.PaymentConfig
	log      *zerolog.Logger
}

func NewSubscriptionUseCase(
	subs repository.SubscriptionRepository,
	plans repository.PlanRepository,
	payments repository.PaymentRepository,
	orders repository.OrderRepository,
	registry adapter.Registry,
	cfg config.PaymentConfig,
	log *zerolog.Logger,
) *subscriptionUC {
	return &subscriptionUC{subs: subs, plans: plans, payments: payments, orders: orders, registry: registry, cfg: cfg, log: log}
}

func (u *subscriptionUC) CreatePlan(ctx context.Context, in CreatePlanInput) (*model.Plan, error) {
	defer logging.TraceDuration(u.log, "SubscriptionUC.CreatePlan")()

	gw, err := u.registry.Resolve(in.Gateway)
	if err != nil {
		return nil, err
	}

	gctx, cancel := context.WithTimeout(ctx, u.cfg.GatewayTimeout)
	defer cancel()
	res, err := gw.CreatePlan(gctx, adapter.PlanRequest{
		Name:     in.Name,
		Amount:   in.Amount,
		Interval: in.Interval,
		Period:   in.Period,
		Notes:    in.Notes,
	})
	if err != nil {
		return nil, err
	}

	plan, err := model.NewPlan(uuid.NewString(), res.PlanID, in.Name, in.Amount, in.Interval, in.Period, gw.Name())
	if err != nil {
		return nil, err
	}
	plan.Meta = in.Notes
	if err := u.plans.Save(ctx, nil, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

func (u *subscriptionUC) ListPlans(ctx context.Context) ([]*model.Plan, error) {
	return u.plans.ListAll(ctx, nil)
}

func (u *subscriptionUC) GetPlan(ctx context.Context, planID string) (*model.Plan, error) {
	return u.plans.FindByID(ctx, nil, planID)
}

func (u *subscriptionUC) Subscribe(ctx context.Context, userID, planID string, customer adapter.Customer) (*model.Subscription, error) {
	defer logging.TraceDuration(u.log, "SubscriptionUC.Subscribe")()

	plan, err := u.plans.FindByID(ctx, nil, planID)
	if err != nil {
		return nil, err
	}

	gw, err := u.registry.Resolve(plan.Gateway)
	if err != nil {
		return nil, err
	}

	gctx, cancel := context.WithTimeout(ctx, u.cfg.GatewayTimeout)
	defer cancel()
	res, err := gw.CreateSubscription(gctx, plan.PlanID, customer)
	if err != nil {
		return nil, err
	}

	sub, err := model.NewSubscription(uuid.NewString(), res.SubscriptionID, userID, plan)
	if err != nil {
		return nil, err
	}

	if err := u.subs.Save(ctx, nil, sub); err != nil {
		// A gateway subscription with no local record is unobservable;
		// best-effort compensation before surfacing the error.
		cctx, ccancel := context.WithTimeout(context.Background(), u.cfg.GatewayTimeout)
		defer ccancel()
		if cerr := gw.CancelSubscription(cctx, res.SubscriptionID); cerr != nil {
			u.log.Error().Err(cerr).Str("subscription_id", res.SubscriptionID).Msg("compensating cancel failed; orphaned gateway subscription")
		}
		return nil, err
	}

	metrics.IncSubscription(gw.Name(), "pending")
	return sub, nil
}

func (u *subscriptionUC) CreateSubscriptionOrder(ctx context.Context, userID, subscriptionID string) (*CreateOrderOutput, error) {
	defer logging.TraceDuration(u.log, "SubscriptionUC.CreateSubscriptionOrder")()

	sub, err := u.subs.FindByID(ctx, nil, subscriptionID)
	if err != nil {
		return nil, err
	}
	if userID != "" && sub.UserID != userID {
		return nil, domain.ErrPermissionDenied
	}
	if sub.Status != model.SubscriptionStatusPending {
		return nil, fmt.Errorf("subscription is %s: %w", sub.Status, domain.ErrInvalidSubscriptionState)
	}

	plan, err := u.plans.FindByID(ctx, nil, sub.PlanID)
	if err != nil {
		return nil, err
	}

	gw, err := u.registry.Resolve(sub.Gateway)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	localOrderID := uuid.NewString()

	gctx, cancel := context.WithTimeout(ctx, u.cfg.GatewayTimeout)
	defer cancel()
	res, err := gw.CreateOrder(gctx, adapter.CreateOrderRequest{
		Amount:   plan.Amount,
		Currency: "INR",
		Receipt:  localOrderID,
		Notes:    map[string]interface{}{"subscription_id": sub.ID},
	})
	if err != nil {
		return nil, err
	}

	order := &model.Order{
		ID:        localOrderID,
		OrderID:   res.OrderID,
		UserID:    userID,
		Amount:    plan.Amount,
		Currency:  "INR",
		Status:    model.OrderStatusCreated,
		Gateway:   gw.Name(),
		Meta:      map[string]interface{}{"subscription_id": sub.ID},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := u.orders.Save(ctx, nil, order); err != nil {
		return nil, err
	}

	payment := &model.Payment{
		ID:             uuid.NewString(),
		TransactionID:  uuid.NewString(),
		OrderID:        &res.OrderID,
		SubscriptionID: &sub.ID,
		UserID:         userID,
		Amount:         plan.Amount,
		Currency:       "INR",
		Gateway:        gw.Name(),
		Type:           model.PaymentTypeSubscription,
		Status:         model.PaymentStatusPending,
		ExpiresAt:      now.Add(u.cfg.OrderExpiry),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := u.payments.Save(ctx, nil, payment); err != nil {
		u.log.Error().Err(err).Str("order_id", res.OrderID).Msg("order created but payment persist failed")
		return nil, err
	}

	return &CreateOrderOutput{
		Payment:    payment,
		Order:      order,
		PaymentURL: res.PaymentURL,
		IntentURL:  res.IntentURL,
	}, nil
}

func (u *subscriptionUC) VerifySubscriptionPayment(ctx context.Context, userID, subscriptionID, orderID, gatewayPaymentID, signature string) (*model.Subscription, error) {
	defer logging.TraceDuration(u.log, "SubscriptionUC.VerifySubscriptionPayment")()

	sub, err := u.subs.FindByID(ctx, nil, subscriptionID)
	if err != nil {
		return nil, err
	}
	if userID != "" && sub.UserID != userID {
		return nil, domain.ErrPermissionDenied
	}

	p, err := u.payments.FindByOrderID(ctx, nil, orderID)
	if err != nil {
		return nil, err
	}
	if p.SubscriptionID == nil || *p.SubscriptionID != sub.ID {
		return nil, fmt.Errorf("payment does not belong to subscription: %w", domain.ErrInvalidArgument)
	}

	gw, err := u.registry.Resolve(sub.Gateway)
	if err != nil {
		return nil, err
	}

	gctx, cancel := context.WithTimeout(ctx, u.cfg.GatewayTimeout)
	defer cancel()
	res, err := gw.VerifyPayment(gctx, orderID, gatewayPaymentID, signature)
	if err != nil {
		metrics.IncPaymentVerify(gw.Name(), "error")
		return nil, err
	}

	if !res.Verified {
		metrics.IncPaymentVerify(gw.Name(), "invalid_signature")
		msg := "invalid signature"
		if _, uerr := u.payments.UpdateStatusIf(ctx, nil, p.ID, model.PaymentStatusFailed,
			[]model.PaymentStatus{model.PaymentStatusCreated, model.PaymentStatusPending},
			repository.PaymentUpdate{ErrorMessage: &msg}); uerr != nil {
			u.log.Error().Err(uerr).Str("payment_id", p.ID).Msg("failed to record signature failure")
		}
		if _, uerr := u.orders.UpdateStatusIf(ctx, nil, orderID, model.OrderStatusFailed,
			[]model.OrderStatus{model.OrderStatusCreated}); uerr != nil {
			u.log.Error().Err(uerr).Str("order_id", orderID).Msg("failed to fail order")
		}
		return nil, domain.ErrSignatureInvalid
	}

	if res.Status == model.PaymentStatusSuccess {
		applied, err := u.payments.UpdateStatusIf(ctx, nil, p.ID, model.PaymentStatusSuccess,
			[]model.PaymentStatus{model.PaymentStatusCreated, model.PaymentStatusPending},
			repository.PaymentUpdate{GatewayPaymentID: &gatewayPaymentID})
		if err != nil {
			return nil, err
		}
		if applied {
			metrics.IncPayment(gw.Name(), "success")
			if _, uerr := u.orders.UpdateStatusIf(ctx, nil, orderID, model.OrderStatusCompleted,
				[]model.OrderStatus{model.OrderStatusCreated}); uerr != nil {
				u.log.Error().Err(uerr).Str("order_id", orderID).Msg("failed to complete order")
			}
		}

		if err := u.Activate(ctx, sub.ID); err != nil {
			u.log.Error().Err(err).Str("subscription_id", sub.ID).Msg("activation failed after verified payment")
		}

		plan, err := u.plans.FindByID(ctx, nil, sub.PlanID)
		if err == nil {
			next := model.NextBillingDate(time.Now(), plan.Interval, plan.Period)
			if rerr := u.subs.RecordRenewal(ctx, nil, sub.ID, next, p.TransactionID); rerr != nil {
				u.log.Error().Err(rerr).Str("subscription_id", sub.ID).Msg("failed to set first billing date")
			}
		}
	}

	return u.subs.FindByID(ctx, nil, sub.ID)
}

func (u *subscriptionUC) Activate(ctx context.Context, subscriptionID string) error {
	applied, err := u.subs.UpdateStatusIf(ctx, nil, subscriptionID, model.SubscriptionStatusActive,
		[]model.SubscriptionStatus{model.SubscriptionStatusPending}, "")
	if err != nil {
		return err
	}
	if applied {
		metrics.IncSubscription("", "active")
		u.log.Info().Str("subscription_id", subscriptionID).Msg("subscription activated")
	}
	return nil
}

func (u *subscriptionUC) Cancel(ctx context.Context, userID, subscriptionID string) (*model.Subscription, error) {
	defer logging.TraceDuration(u.log, "SubscriptionUC.Cancel")()

	sub, err := u.subs.FindByID(ctx, nil, subscriptionID)
	if err != nil {
		return nil, err
	}
	if userID != "" && sub.UserID != userID {
		return nil, domain.ErrPermissionDenied
	}
	if sub.Status == model.SubscriptionStatusCancelled {
		return sub, nil
	}

	gw, err := u.registry.Resolve(sub.Gateway)
	if err != nil {
		return nil, err
	}

	gctx, cancel := context.WithTimeout(ctx, u.cfg.GatewayTimeout)
	defer cancel()
	// The local record moves only after the gateway confirms.
	if err := gw.CancelSubscription(gctx, sub.SubscriptionID); err != nil {
		return nil, err
	}

	if _, err := u.subs.UpdateStatusIf(ctx, nil, sub.ID, model.SubscriptionStatusCancelled,
		[]model.SubscriptionStatus{
			model.SubscriptionStatusPending,
			model.SubscriptionStatusActive,
			model.SubscriptionStatusPaymentFailed,
		}, ""); err != nil {
		return nil, err
	}
	metrics.IncSubscription(gw.Name(), "cancelled")
	return u.subs.FindByID(ctx, nil, sub.ID)
}

func (u *subscriptionUC) ListUserSubscriptions(ctx context.Context, userID string) ([]*model.Subscription, error) {
	return u.subs.ListByUser(ctx, nil, userID)
}
