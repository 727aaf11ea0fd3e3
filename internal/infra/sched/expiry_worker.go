package sched

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"payment-gateway-service/internal/domain/ports/repository"
	"payment-gateway-service/internal/infra/metrics"
)

// ExpiryWorker sweeps payments past their deadline and the orders they
// left behind. The read path expires lazily too; this keeps the ledger
// honest for payments nobody looks at. Both sweeps commit together so an
// order is never expired ahead of its payment.
type ExpiryWorker struct {
	interval    time.Duration
	orderExpiry time.Duration
	txm         repository.TransactionManager
	payments    repository.PaymentRepository
	orders      repository.OrderRepository
	log         *zerolog.Logger
}

func NewExpiryWorker(interval, orderExpiry time.Duration, txm repository.TransactionManager, payments repository.PaymentRepository, orders repository.OrderRepository, logger *zerolog.Logger) *ExpiryWorker {
	exprLog := logger.With().Str("component", "ExpiryWorker").Logger()
	return &ExpiryWorker{
		interval:    interval,
		orderExpiry: orderExpiry,
		txm:         txm,
		payments:    payments,
		orders:      orders,
		log:         &exprLog,
	}
}

func (w *ExpiryWorker) Name() string            { return "payment_expiry" }
func (w *ExpiryWorker) Interval() time.Duration { return w.interval }
func (w *ExpiryWorker) RunOnStart() bool        { return true }

func (w *ExpiryWorker) Run(ctx context.Context) error {
	now := time.Now()

	var expiredPayments, expiredOrders int64
	err := w.txm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		n, err := w.payments.MarkExpired(ctx, tx, now)
		if err != nil {
			return err
		}
		expiredPayments = n

		m, err := w.orders.MarkExpired(ctx, tx, now.Add(-w.orderExpiry))
		if err != nil {
			return err
		}
		expiredOrders = m
		return nil
	})
	if err != nil {
		return err
	}

	if expiredPayments > 0 {
		metrics.AddPaymentsExpired(expiredPayments)
		w.log.Info().Int64("count", expiredPayments).Msg("payments expired")
	}
	if expiredOrders > 0 {
		w.log.Info().Int64("count", expiredOrders).Msg("orders expired")
	}
	return nil
}
