//go:build !integration

package sched

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v4"

	"payment-gateway-service/internal/domain/ports/repository"
)

// passthroughTxManager runs the callback with a nil handle, recording
// whether the transaction committed or rolled back.
type passthroughTxManager struct {
	commits   int
	rollbacks int
}

func (m *passthroughTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if err := fn(ctx, nil); err != nil {
		m.rollbacks++
		return err
	}
	m.commits++
	return nil
}

type expiringPaymentRepo struct {
	repository.PaymentRepository
	expired int64
	err     error
	calls   int
}

func (r *expiringPaymentRepo) MarkExpired(ctx context.Context, tx repository.Tx, now time.Time) (int64, error) {
	r.calls++
	return r.expired, r.err
}

type expiringOrderRepo struct {
	repository.OrderRepository
	expired int64
	cutoff  time.Time
	calls   int
}

func (r *expiringOrderRepo) MarkExpired(ctx context.Context, tx repository.Tx, cutoff time.Time) (int64, error) {
	r.calls++
	r.cutoff = cutoff
	return r.expired, nil
}

func TestExpiryWorker_Run(t *testing.T) {
	t.Run("should sweep payments and orders in one transaction", func(t *testing.T) {
		txm := &passthroughTxManager{}
		payments := &expiringPaymentRepo{expired: 3}
		orders := &expiringOrderRepo{expired: 2}
		w := NewExpiryWorker(time.Minute, time.Hour, txm, payments, orders, newTestLogger())

		if err := w.Run(context.Background()); err != nil {
			t.Fatalf("Run: %v", err)
		}
		if payments.calls != 1 || orders.calls != 1 {
			t.Fatalf("expected one sweep each, got payments=%d orders=%d", payments.calls, orders.calls)
		}
		if txm.commits != 1 {
			t.Fatalf("expected 1 commit, got %d", txm.commits)
		}
		if !orders.cutoff.Before(time.Now()) {
			t.Fatalf("order cutoff should be in the past, got %v", orders.cutoff)
		}
	})

	t.Run("should roll back and skip orders when the payment sweep fails", func(t *testing.T) {
		txm := &passthroughTxManager{}
		payments := &expiringPaymentRepo{err: errors.New("db down")}
		orders := &expiringOrderRepo{}
		w := NewExpiryWorker(time.Minute, time.Hour, txm, payments, orders, newTestLogger())

		if err := w.Run(context.Background()); err == nil {
			t.Fatal("expected error")
		}
		if orders.calls != 0 {
			t.Fatalf("order sweep should not run, got %d calls", orders.calls)
		}
		if txm.rollbacks != 1 {
			t.Fatalf("expected 1 rollback, got %d", txm.rollbacks)
		}
	})
}
