package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"payment-gateway-service/internal/config"
	"payment-gateway-service/internal/domain/model"
	"payment-gateway-service/internal/domain/ports/repository"
	"payment-gateway-service/internal/usecase"
)

// RetryWorker re-attempts failed payments with a fresh gateway order,
// backing off per attempt. One retry per payment per pass.
type RetryWorker struct {
	interval time.Duration
	retryCfg config.RetryConfig
	payments repository.PaymentRepository
	uc       usecase.PaymentUseCase
	log      *zerolog.Logger
}

func NewRetryWorker(interval time.Duration, retryCfg config.RetryConfig, payments repository.PaymentRepository, uc usecase.PaymentUseCase, logger *zerolog.Logger) *RetryWorker {
	retryLog := logger.With().Str("component", "RetryWorker").Logger()
	return &RetryWorker{
		interval: interval,
		retryCfg: retryCfg,
		payments: payments,
		uc:       uc,
		log:      &retryLog,
	}
}

func (w *RetryWorker) Name() string            { return "payment_retry" }
func (w *RetryWorker) Interval() time.Duration { return w.interval }
func (w *RetryWorker) RunOnStart() bool        { return false }

// backoff returns how long a payment must rest before its next attempt.
// Attempts past the configured schedule reuse the last entry.
func (w *RetryWorker) backoff(retryCount int) time.Duration {
	if len(w.retryCfg.Backoff) == 0 {
		return 5 * time.Minute
	}
	if retryCount >= len(w.retryCfg.Backoff) {
		return w.retryCfg.Backoff[len(w.retryCfg.Backoff)-1]
	}
	return w.retryCfg.Backoff[retryCount]
}

func (w *RetryWorker) Run(ctx context.Context) error {
	candidates, err := w.payments.ListFailedForRetry(ctx, nil, w.retryCfg.MaxRetries, w.retryCfg.BatchSize)
	if err != nil {
		return err
	}

	now := time.Now()
	retried := 0
	for _, p := range candidates {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !w.due(p, now) {
			continue
		}
		if err := w.uc.RetryPayment(ctx, p); err != nil {
			w.log.Warn().Err(err).Str("payment_id", p.ID).Int("retry_count", p.RetryCount).Msg("retry attempt failed")
			continue
		}
		retried++
	}
	if retried > 0 {
		w.log.Info().Int("count", retried).Msg("failed payments retried")
	}
	return nil
}

func (w *RetryWorker) due(p *model.Payment, now time.Time) bool {
	last := p.UpdatedAt
	if p.LastRetryAt != nil {
		last = *p.LastRetryAt
	}
	return now.Sub(last) >= w.backoff(p.RetryCount)
}
