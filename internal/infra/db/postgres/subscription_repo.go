// File: internal/infra/db/postgres/subscription_repo.go
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"payment-gateway-service/internal/domain"
	"payment-gateway-service/internal/domain/model"
	"payment-gateway-service/internal/domain/ports/repository"
)

var _ repository.SubscriptionRepository = (*subscriptionRepo)(nil)

type subscriptionRepo struct{ pool *pgxpool.Pool }

func NewSubscriptionRepo(pool *pgxpool.Pool) *subscriptionRepo {
	return &subscriptionRepo{pool: pool}
}

const subscriptionColumns = `id, subscription_id, user_id, plan_id, gateway, status, start_date, next_billing_date, end_date, last_renewal_tx, failure_reason, meta, created_at, updated_at`

func scanSubscription(row pgx.Row) (*model.Subscription, error) {
	s := &model.Subscription{}
	if err := row.Scan(&s.ID, &s.SubscriptionID, &s.UserID, &s.PlanID, &s.Gateway, &s.Status, &s.StartDate, &s.NextBillingDate, &s.EndDate, &s.LastRenewalTx, &s.FailureReason, &s.Meta, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return s, nil
}

func (r *subscriptionRepo) Save(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	const q = `
INSERT INTO subscriptions (
  id, subscription_id, user_id, plan_id, gateway, status, start_date, next_billing_date, end_date, last_renewal_tx, failure_reason, meta, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14
) ON CONFLICT (id) DO UPDATE SET
  status=$6, next_billing_date=$8, end_date=$9, last_renewal_tx=$10, failure_reason=$11, meta=$12, updated_at=$14;`

	_, err := execSQL(ctx, r.pool, tx, q, s.ID, s.SubscriptionID, s.UserID, s.PlanID, s.Gateway, s.Status, s.StartDate, s.NextBillingDate, s.EndDate, s.LastRenewalTx, s.FailureReason, s.Meta, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *subscriptionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Subscription, error) {
	q := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q+";", id)
	if err != nil {
		return nil, err
	}
	return scanSubscription(row)
}

func (r *subscriptionRepo) FindBySubscriptionID(ctx context.Context, tx repository.Tx, gatewaySubID string) (*model.Subscription, error) {
	q := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE subscription_id=$1 LIMIT 1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q+";", gatewaySubID)
	if err != nil {
		return nil, err
	}
	return scanSubscription(row)
}

func (r *subscriptionRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.Subscription, error) {
	const q = `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE user_id=$1 ORDER BY created_at DESC;`
	return r.list(ctx, tx, q, userID)
}

func (r *subscriptionRepo) UpdateStatusIf(
	ctx context.Context, tx repository.Tx, id string, status model.SubscriptionStatus,
	expected []model.SubscriptionStatus, failureReason string,
) (bool, error) {
	const q = `
UPDATE subscriptions
   SET status = $2,
       failure_reason = CASE WHEN $4 <> '' THEN $4 ELSE failure_reason END,
       updated_at = NOW()
 WHERE id = $1
   AND status = ANY($3);`

	cmd, err := execSQL(ctx, r.pool, tx, q, id, string(status), statusStrings(expected), failureReason)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *subscriptionRepo) RecordRenewal(ctx context.Context, tx repository.Tx, id string, nextBilling time.Time, transactionID string) error {
	const q = `
UPDATE subscriptions
   SET next_billing_date = $2,
       last_renewal_tx = $3,
       failure_reason = '',
       updated_at = NOW()
 WHERE id = $1;`

	_, err := execSQL(ctx, r.pool, tx, q, id, nextBilling, transactionID)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *subscriptionRepo) ListDueForRenewal(ctx context.Context, tx repository.Tx, now time.Time, limit int) ([]*model.Subscription, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE status='active' AND next_billing_date < $1 ORDER BY next_billing_date ASC LIMIT $2;`
	return r.list(ctx, tx, q, now, limit)
}

func (r *subscriptionRepo) list(ctx context.Context, tx repository.Tx, q string, args ...interface{}) ([]*model.Subscription, error) {
	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()

	var out []*model.Subscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
