// File: internal/usecase/webhook_uc.go
package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"payment-gateway-service/internal/domain"
	"payment-gateway-service/internal/domain/model"
	"payment-gateway-service/internal/domain/ports/adapter"
	"payment-gateway-service/internal/domain/ports/repository"
	"payment-gateway-service/internal/infra/logging"
	"payment-gateway-service/internal/infra/metrics"
)

var _ WebhookUseCase = (*webhookUC)(nil)

// WebhookOutcome classifies what a delivery did to the ledger. The HTTP
// layer acknowledges every outcome with 200; providers retry on transport
// failures only.
type WebhookOutcome string

const (
	WebhookApplied  WebhookOutcome = "applied"
	WebhookNoop     WebhookOutcome = "noop"
	WebhookIgnored  WebhookOutcome = "ignored"
	WebhookRejected WebhookOutcome = "rejected"
)

type WebhookResult struct {
	Outcome WebhookOutcome
	Event   string
	Message string
}

type WebhookUseCase interface {
	Process(ctx context.Context, gatewayName string, payload []byte, signature string) (WebhookResult, error)
}

type webhookUC struct {
	payments    repository.PaymentRepository
	orders      repository.OrderRepository
	subs        repository.SubscriptionRepository
	plans       repository.PlanRepository
	refunds     repository.RefundRepository
	registry    adapter.Registry
	broadcaster adapter.Broadcaster
	log         *zerolog.Logger
}

func NewWebhookUseCase(
	payments repository.PaymentRepository,
	orders repository.OrderRepository,
	subs repository.SubscriptionRepository,
	plans repository.PlanRepository,
	refunds repository.RefundRepository,
	registry adapter.Registry,
	broadcaster adapter.Broadcaster,
	log *zerolog.Logger,
) *webhookUC {
	return &webhookUC{
		payments: payments, orders: orders, subs: subs, plans: plans,
		refunds: refunds, registry: registry, broadcaster: broadcaster, log: log,
	}
}

func (u *webhookUC) Process(ctx context.Context, gatewayName string, payload []byte, signature string) (WebhookResult, error) {
	defer logging.TraceDuration(u.log, "WebhookUC.Process")()

	gw, err := u.registry.Resolve(gatewayName)
	if err != nil {
		metrics.IncWebhook(gatewayName, "error")
		return WebhookResult{Outcome: WebhookRejected, Message: "unknown gateway"}, err
	}

	ev, err := gw.ParseWebhook(payload, signature)
	if err != nil {
		if errors.Is(err, domain.ErrSignatureInvalid) {
			metrics.IncWebhook(gw.Name(), "invalid_signature")
			u.log.Warn().Str("gateway", gw.Name()).Msg("webhook signature rejected")
			return WebhookResult{Outcome: WebhookRejected, Message: "invalid signature"}, err
		}
		metrics.IncWebhook(gw.Name(), "error")
		return WebhookResult{Outcome: WebhookRejected, Message: "malformed payload"}, err
	}

	switch ev.Kind {
	case adapter.WebhookKindPayment:
		return u.applyPaymentEvent(ctx, gw.Name(), ev)
	case adapter.WebhookKindSubscription:
		return u.applySubscriptionEvent(ctx, gw.Name(), ev)
	default:
		metrics.IncWebhook(gw.Name(), "ignored")
		return WebhookResult{Outcome: WebhookIgnored, Event: ev.Event}, nil
	}
}

func (u *webhookUC) applyPaymentEvent(ctx context.Context, gateway string, ev adapter.WebhookEvent) (WebhookResult, error) {
	p, err := u.payments.FindByOrderID(ctx, nil, ev.OrderID)
	if err != nil {
		metrics.IncWebhook(gateway, "error")
		u.log.Warn().Str("gateway", gateway).Str("order_id", ev.OrderID).Str("event", ev.Event).Msg("webhook for unknown order")
		return WebhookResult{Outcome: WebhookRejected, Event: ev.Event, Message: "unknown order"}, err
	}

	upd := repository.PaymentUpdate{}
	if ev.PaymentID != "" {
		upd.GatewayPaymentID = &ev.PaymentID
	}
	if ev.ErrorMessage != "" {
		upd.ErrorMessage = &ev.ErrorMessage
	}

	var applied bool
	switch ev.PaymentStatus {
	case model.PaymentStatusSuccess:
		applied, err = u.payments.UpdateStatusIf(ctx, nil, p.ID, model.PaymentStatusSuccess,
			[]model.PaymentStatus{model.PaymentStatusCreated, model.PaymentStatusPending}, upd)
		if err == nil && applied {
			if _, oerr := u.orders.UpdateStatusIf(ctx, nil, ev.OrderID, model.OrderStatusCompleted,
				[]model.OrderStatus{model.OrderStatusCreated}); oerr != nil {
				u.log.Error().Err(oerr).Str("order_id", ev.OrderID).Msg("failed to complete order")
			}
			if p.SubscriptionID != nil {
				if _, serr := u.subs.UpdateStatusIf(ctx, nil, *p.SubscriptionID, model.SubscriptionStatusActive,
					[]model.SubscriptionStatus{model.SubscriptionStatusPending}, ""); serr != nil {
					u.log.Error().Err(serr).Str("subscription_id", *p.SubscriptionID).Msg("activation from webhook failed")
				}
			}
		}

	case model.PaymentStatusFailed:
		applied, err = u.payments.UpdateStatusIf(ctx, nil, p.ID, model.PaymentStatusFailed,
			[]model.PaymentStatus{model.PaymentStatusCreated, model.PaymentStatusPending}, upd)
		if err == nil && applied {
			if _, oerr := u.orders.UpdateStatusIf(ctx, nil, ev.OrderID, model.OrderStatusFailed,
				[]model.OrderStatus{model.OrderStatusCreated}); oerr != nil {
				u.log.Error().Err(oerr).Str("order_id", ev.OrderID).Msg("failed to fail order")
			}
		}

	case model.PaymentStatusRefunded:
		applied, err = u.payments.UpdateStatusIf(ctx, nil, p.ID, model.PaymentStatusRefunded,
			[]model.PaymentStatus{model.PaymentStatusSuccess, model.PaymentStatusRefundInitiated}, upd)
		if err == nil && applied {
			u.completeRefunds(ctx, p.ID)
		}

	default:
		// authorized / still-pending carries no ledger change.
		metrics.IncWebhook(gateway, "noop")
		return WebhookResult{Outcome: WebhookNoop, Event: ev.Event}, nil
	}

	if err != nil {
		metrics.IncWebhook(gateway, "error")
		return WebhookResult{Outcome: WebhookRejected, Event: ev.Event, Message: "storage failure"}, err
	}

	if !applied {
		// Re-delivery or a lost race; the first terminal writer won.
		metrics.IncWebhook(gateway, "noop")
		return WebhookResult{Outcome: WebhookNoop, Event: ev.Event}, nil
	}

	metrics.IncWebhook(gateway, "applied")
	metrics.IncPayment(gateway, string(ev.PaymentStatus))
	u.publishPaymentUpdate(ctx, p, ev)
	return WebhookResult{Outcome: WebhookApplied, Event: ev.Event}, nil
}

// completeRefunds moves any initiated refund rows for the payment to
// completed once the provider confirms the money moved.
func (u *webhookUC) completeRefunds(ctx context.Context, paymentID string) {
	refunds, err := u.refunds.ListByPayment(ctx, nil, paymentID)
	if err != nil {
		u.log.Error().Err(err).Str("payment_id", paymentID).Msg("failed to list refunds")
		return
	}
	for _, r := range refunds {
		if _, err := u.refunds.UpdateStatusIf(ctx, nil, r.ID, model.RefundStatusCompleted,
			[]model.RefundStatus{model.RefundStatusInitiated}); err != nil {
			u.log.Error().Err(err).Str("refund_id", r.ID).Msg("failed to complete refund")
		}
	}
}

func (u *webhookUC) applySubscriptionEvent(ctx context.Context, gateway string, ev adapter.WebhookEvent) (WebhookResult, error) {
	sub, err := u.subs.FindBySubscriptionID(ctx, nil, ev.SubscriptionID)
	if err != nil {
		metrics.IncWebhook(gateway, "error")
		u.log.Warn().Str("gateway", gateway).Str("subscription_id", ev.SubscriptionID).Str("event", ev.Event).Msg("webhook for unknown subscription")
		return WebhookResult{Outcome: WebhookRejected, Event: ev.Event, Message: "unknown subscription"}, err
	}

	var applied bool
	switch ev.SubscriptionStatus {
	case model.SubscriptionStatusActive:
		applied, err = u.subs.UpdateStatusIf(ctx, nil, sub.ID, model.SubscriptionStatusActive,
			[]model.SubscriptionStatus{model.SubscriptionStatusPending, model.SubscriptionStatusPaymentFailed}, "")
		if err == nil && ev.Event == "subscription.charged" {
			var recorded bool
			recorded, err = u.recordWebhookRenewal(ctx, gateway, sub, ev)
			applied = applied || recorded
		}

	case model.SubscriptionStatusCancelled:
		applied, err = u.subs.UpdateStatusIf(ctx, nil, sub.ID, model.SubscriptionStatusCancelled,
			[]model.SubscriptionStatus{
				model.SubscriptionStatusPending,
				model.SubscriptionStatusActive,
				model.SubscriptionStatusPaymentFailed,
			}, "")

	case model.SubscriptionStatusCompleted:
		applied, err = u.subs.UpdateStatusIf(ctx, nil, sub.ID, model.SubscriptionStatusCompleted,
			[]model.SubscriptionStatus{model.SubscriptionStatusActive}, "")

	case model.SubscriptionStatusExpired:
		applied, err = u.subs.UpdateStatusIf(ctx, nil, sub.ID, model.SubscriptionStatusExpired,
			[]model.SubscriptionStatus{model.SubscriptionStatusPending, model.SubscriptionStatusActive}, "")

	default:
		metrics.IncWebhook(gateway, "noop")
		return WebhookResult{Outcome: WebhookNoop, Event: ev.Event}, nil
	}

	if err != nil {
		metrics.IncWebhook(gateway, "error")
		return WebhookResult{Outcome: WebhookRejected, Event: ev.Event, Message: "storage failure"}, err
	}
	if !applied {
		metrics.IncWebhook(gateway, "noop")
		return WebhookResult{Outcome: WebhookNoop, Event: ev.Event}, nil
	}

	metrics.IncWebhook(gateway, "applied")
	metrics.IncSubscription(gateway, string(ev.SubscriptionStatus))
	return WebhookResult{Outcome: WebhookApplied, Event: ev.Event}, nil
}

// recordWebhookRenewal persists the renewal charge the provider already
// collected and advances the billing date. The provider payment id keys
// de-duplication: a charge already in the ledger, whether from an earlier
// delivery or the renewal job, is not recorded again.
func (u *webhookUC) recordWebhookRenewal(ctx context.Context, gateway string, sub *model.Subscription, ev adapter.WebhookEvent) (bool, error) {
	if ev.PaymentID != "" {
		if _, err := u.payments.FindByGatewayPaymentID(ctx, nil, ev.PaymentID); err == nil {
			u.log.Info().Str("subscription_id", sub.ID).Str("gateway_payment_id", ev.PaymentID).Msg("renewal charge already recorded")
			return false, nil
		} else if !errors.Is(err, domain.ErrNotFound) {
			return false, err
		}
	}

	now := time.Now()
	payment := &model.Payment{
		ID:               uuid.NewString(),
		TransactionID:    uuid.NewString(),
		SubscriptionID:   &sub.ID,
		UserID:           sub.UserID,
		Amount:           ev.Amount,
		Currency:         "INR",
		Gateway:          gateway,
		GatewayPaymentID: ev.PaymentID,
		Type:             model.PaymentTypeSubscription,
		Status:           model.PaymentStatusSuccess,
		ExpiresAt:        now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := u.payments.Save(ctx, nil, payment); err != nil {
		u.log.Error().Err(err).Str("subscription_id", sub.ID).Msg("failed to persist webhook renewal payment")
		return false, err
	}

	plan, err := u.plans.FindByID(ctx, nil, sub.PlanID)
	if err != nil {
		u.log.Error().Err(err).Str("plan_id", sub.PlanID).Msg("failed to load plan for renewal")
		return false, err
	}
	next := model.NextBillingDate(sub.NextBillingDate, plan.Interval, plan.Period)
	if err := u.subs.RecordRenewal(ctx, nil, sub.ID, next, payment.TransactionID); err != nil {
		u.log.Error().Err(err).Str("subscription_id", sub.ID).Msg("failed to advance billing date")
		return false, err
	}
	return true, nil
}

// publishPaymentUpdate notifies downstream consumers about terminal
// payment states; broadcast failures never fail the webhook.
func (u *webhookUC) publishPaymentUpdate(ctx context.Context, p *model.Payment, ev adapter.WebhookEvent) {
	switch ev.PaymentStatus {
	case model.PaymentStatusSuccess, model.PaymentStatusFailed, model.PaymentStatusRefunded:
	default:
		return
	}

	orderID := ""
	if p.OrderID != nil {
		orderID = *p.OrderID
	}
	update := adapter.StatusUpdate{
		Subject:      "payment",
		ID:           p.ID,
		UserID:       p.UserID,
		OrderID:      orderID,
		Status:       string(ev.PaymentStatus),
		Amount:       p.Amount,
		ErrorMessage: ev.ErrorMessage,
		UpdatedAt:    time.Now().UTC().Format(time.RFC3339),
	}
	if err := u.broadcaster.Publish(ctx, update); err != nil {
		u.log.Error().Err(err).Str("payment_id", p.ID).Msg("failed to publish status update")
	}
}
