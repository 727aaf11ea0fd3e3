package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"payment-gateway-service/internal/domain/model"
	"payment-gateway-service/internal/domain/ports/repository"
	"payment-gateway-service/internal/usecase"
)

// RenewalWorker charges active subscriptions whose billing date has
// passed. Providers that auto-charge never appear here because their
// renewals arrive as webhooks instead.
type RenewalWorker struct {
	interval  time.Duration
	batchSize int
	subs      repository.SubscriptionRepository
	plans     repository.PlanRepository
	uc        usecase.PaymentUseCase
	log       *zerolog.Logger
}

func NewRenewalWorker(interval time.Duration, batchSize int, subs repository.SubscriptionRepository, plans repository.PlanRepository, uc usecase.PaymentUseCase, logger *zerolog.Logger) *RenewalWorker {
	renewLog := logger.With().Str("component", "RenewalWorker").Logger()
	if batchSize <= 0 {
		batchSize = 100
	}
	return &RenewalWorker{
		interval:  interval,
		batchSize: batchSize,
		subs:      subs,
		plans:     plans,
		uc:        uc,
		log:       &renewLog,
	}
}

func (w *RenewalWorker) Name() string            { return "subscription_renewal" }
func (w *RenewalWorker) Interval() time.Duration { return w.interval }
func (w *RenewalWorker) RunOnStart() bool        { return true }

func (w *RenewalWorker) Run(ctx context.Context) error {
	due, err := w.subs.ListDueForRenewal(ctx, nil, time.Now(), w.batchSize)
	if err != nil {
		return err
	}

	for _, sub := range due {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		w.renew(ctx, sub)
	}
	return nil
}

func (w *RenewalWorker) renew(ctx context.Context, sub *model.Subscription) {
	plan, err := w.plans.FindByID(ctx, nil, sub.PlanID)
	if err != nil {
		w.log.Error().Err(err).Str("subscription_id", sub.ID).Str("plan_id", sub.PlanID).Msg("plan lookup failed")
		return
	}
	if err := w.uc.ProcessRenewal(ctx, sub, plan); err != nil {
		w.log.Warn().Err(err).Str("subscription_id", sub.ID).Msg("renewal failed")
	}
}
