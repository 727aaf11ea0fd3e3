// File: internal/infra/db/postgres/refund_repo.go
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"payment-gateway-service/internal/domain"
	"payment-gateway-service/internal/domain/model"
	"payment-gateway-service/internal/domain/ports/repository"
)

var _ repository.RefundRepository = (*refundRepo)(nil)

type refundRepo struct{ pool *pgxpool.Pool }

func NewRefundRepo(pool *pgxpool.Pool) *refundRepo {
	return &refundRepo{pool: pool}
}

const refundColumns = `id, payment_id, refund_id, user_id, amount, reason, status, gateway, meta, created_at, updated_at`

func scanRefund(row pgx.Row) (*model.Refund, error) {
	f := &model.Refund{}
	if err := row.Scan(&f.ID, &f.PaymentID, &f.RefundID, &f.UserID, &f.Amount, &f.Reason, &f.Status, &f.Gateway, &f.Meta, &f.CreatedAt, &f.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return f, nil
}

func (r *refundRepo) Save(ctx context.Context, tx repository.Tx, f *model.Refund) error {
	const q = `
INSERT INTO refunds (
  id, payment_id, refund_id, user_id, amount, reason, status, gateway, meta, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11
) ON CONFLICT (id) DO UPDATE SET
  refund_id=$3, status=$7, meta=$9, updated_at=$11;`

	_, err := execSQL(ctx, r.pool, tx, q, f.ID, f.PaymentID, f.RefundID, f.UserID, f.Amount, f.Reason, f.Status, f.Gateway, f.Meta, f.CreatedAt, f.UpdatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *refundRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Refund, error) {
	const q = `SELECT ` + refundColumns + ` FROM refunds WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanRefund(row)
}

func (r *refundRepo) ListByPayment(ctx context.Context, tx repository.Tx, paymentID string) ([]*model.Refund, error) {
	const q = `SELECT ` + refundColumns + ` FROM refunds WHERE payment_id=$1 ORDER BY created_at DESC;`
	rows, err := queryRows(ctx, r.pool, tx, q, paymentID)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()

	var out []*model.Refund
	for rows.Next() {
		f, err := scanRefund(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func (r *refundRepo) UpdateStatusIf(ctx context.Context, tx repository.Tx, id string, status model.RefundStatus, expected []model.RefundStatus) (bool, error) {
	const q = `
UPDATE refunds
   SET status = $2, updated_at = NOW()
 WHERE id = $1
   AND status = ANY($3);`

	cmd, err := execSQL(ctx, r.pool, tx, q, id, string(status), statusStrings(expected))
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}
