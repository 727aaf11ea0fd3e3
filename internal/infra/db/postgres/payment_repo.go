// File: internal/infra/db/postgres/payment_repo.go
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

var _ repository.PaymentRepository = (*paymentRepo)(nil)

type paymentRepo struct{ pool *pgxpool.Pool }

func NewPaymentRepo(pool *pgxpool.Pool) *paymentRepo {
	return &paymentRepo{pool: pool}
}

const paymentColumns = `id, transaction_id, order_id, subscription_id, user_id, amount, currency, gateway, gateway_payment_id, type, status, retry_count, last_retry_at, expires_at, refund_id, error_message, meta, created_at, updated_at`

func scanPayment(row pgx.Row) (*model.Payment, error) {
	p := &model.Payment{}
	if err := row.Scan(
		&p.ID, &p.TransactionID, &p.OrderID, &p.SubscriptionID, &p.UserID,
		&p.Amount, &p.Currency, &p.Gateway, &p.GatewayPaymentID, &p.Type,
		&p.Status, &p.RetryCount, &p.LastRetryAt, &p.ExpiresAt, &p.RefundID,
		&p.ErrorMessage, &p.Meta, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return p, nil
}

func (r *paymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	const q = `
INSERT INTO payments (
  id, transaction_id, order_id, subscription_id, user_id, amount, currency, gateway, gateway_payment_id, type, status, retry_count, last_retry_at, expires_at, refund_id, error_message, meta, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19
) ON CONFLICT (id) DO UPDATE SET
  gateway_payment_id=$9, status=$11, retry_count=$12, last_retry_at=$13, expires_at=$14, refund_id=$15, error_message=$16, meta=$17, updated_at=$19;`

	_, err := execSQL(ctx, r.pool, tx, q,
		p.ID, p.TransactionID, p.OrderID, p.SubscriptionID, p.UserID,
		p.Amount, p.Currency, p.Gateway, p.GatewayPaymentID, p.Type,
		p.Status, p.RetryCount, p.LastRetryAt, p.ExpiresAt, p.RefundID,
		p.ErrorMessage, p.Meta, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *paymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q+";", id)
	if err != nil {
		return nil, err
	}
	return scanPayment(row)
}

func (r *paymentRepo) FindByOrderID(ctx context.Context, tx repository.Tx, orderID string) (*model.Payment, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE order_id=$1 LIMIT 1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q+";", orderID)
	if err != nil {
		return nil, err
	}
	return scanPayment(row)
}

func (r *paymentRepo) FindByTransactionID(ctx context.Context, tx repository.Tx, transactionID string) (*model.Payment, error) {
	const q = `SELECT ` + paymentColumns + ` FROM payments WHERE transaction_id=$1 LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, transactionID)
	if err != nil {
		return nil, err
	}
	return scanPayment(row)
}

func (r *paymentRepo) FindByGatewayPaymentID(ctx context.Context, tx repository.Tx, gatewayPaymentID string) (*model.Payment, error) {
	if gatewayPaymentID == "" {
		return nil, domain.ErrNotFound
	}
	const q = `SELECT ` + paymentColumns + ` FROM payments WHERE gateway_payment_id=$1 LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, gatewayPaymentID)
	if err != nil {
		return nil, err
	}
	return scanPayment(row)
}

func (r *paymentRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, limit, offset int) ([]*model.Payment, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `SELECT ` + paymentColumns + ` FROM payments WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2 OFFSET $3;`
	return r.list(ctx, tx, q, userID, limit, offset)
}

func (r *paymentRepo) UpdateStatusIf(
	ctx context.Context, tx repository.Tx, id string, status model.PaymentStatus,
	expected []model.PaymentStatus, upd repository.PaymentUpdate,
) (bool, error) {
	const q = `
UPDATE payments
   SET status = $2,
       gateway_payment_id = COALESCE($4, gateway_payment_id),
       error_message = COALESCE($5, error_message),
       refund_id = COALESCE($6, refund_id),
       updated_at = NOW()
 WHERE id = $1
   AND status = ANY($3);`

	cmd, err := execSQL(ctx, r.pool, tx, q, id, string(status), statusStrings(expected), upd.GatewayPaymentID, upd.ErrorMessage, upd.RefundID)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *paymentRepo) ReplaceOrder(ctx context.Context, tx repository.Tx, id string, newOrderID string, retryCount int, retriedAt, expiresAt time.Time) (bool, error) {
	const q = `
UPDATE payments
   SET order_id = $2,
       status = 'pending',
       retry_count = $3,
       last_retry_at = $4,
       expires_at = $5,
       error_message = '',
       updated_at = NOW()
 WHERE id = $1
   AND status = 'failed';`

	cmd, err := execSQL(ctx, r.pool, tx, q, id, newOrderID, retryCount, retriedAt, expiresAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *paymentRepo) MarkExpired(ctx context.Context, tx repository.Tx, now time.Time) (int64, error) {
	const q = `
UPDATE payments
   SET status = 'expired', updated_at = NOW()
 WHERE status IN ('created','pending')
   AND expires_at < $1;`

	cmd, err := execSQL(ctx, r.pool, tx, q, now)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return 0, err
		}
		return 0, domain.ErrOperationFailed
	}
	return cmd.RowsAffected(), nil
}

func (r *paymentRepo) ListAwaitingVerification(ctx context.Context, tx repository.Tx, now time.Time, limit int) ([]*model.Payment, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `SELECT ` + paymentColumns + ` FROM payments WHERE status IN ('created','pending') AND expires_at >= $1 ORDER BY created_at ASC LIMIT $2;`
	return r.list(ctx, tx, q, now, limit)
}

func (r *paymentRepo) ListFailedForRetry(ctx context.Context, tx repository.Tx, maxRetries, limit int) ([]*model.Payment, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `SELECT ` + paymentColumns + ` FROM payments WHERE status='failed' AND retry_count < $1 ORDER BY COALESCE(last_retry_at, created_at) ASC LIMIT $2;`
	return r.list(ctx, tx, q, maxRetries, limit)
}

func (r *paymentRepo) ListStatusChangedSince(ctx context.Context, tx repository.Tx, since time.Time, limit int) ([]*model.Payment, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `SELECT ` + paymentColumns + ` FROM payments WHERE updated_at >= $1 ORDER BY updated_at ASC LIMIT $2;`
	return r.list(ctx, tx, q, since, limit)
}

func (r *paymentRepo) list(ctx context.Context, tx repository.Tx, q string, args ...interface{}) ([]*model.Payment, error) {
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

	var out []*model.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
