// File: internal/infra/db/postgres/order_repo.go
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

var _ repository.OrderRepository = (*orderRepo)(nil)

type orderRepo struct{ pool *pgxpool.Pool }

func NewOrderRepo(pool *pgxpool.Pool) *orderRepo {
	return &orderRepo{pool: pool}
}

const orderColumns = `id, order_id, user_id, amount, currency, status, gateway, meta, created_at, updated_at`

func scanOrder(row pgx.Row) (*model.Order, error) {
	o := &model.Order{}
	if err := row.Scan(&o.ID, &o.OrderID, &o.UserID, &o.Amount, &o.Currency, &o.Status, &o.Gateway, &o.Meta, &o.CreatedAt, &o.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return o, nil
}

func (r *orderRepo) Save(ctx context.Context, tx repository.Tx, o *model.Order) error {
	const q = `
INSERT INTO orders (
  id, order_id, user_id, amount, currency, status, gateway, meta, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10
) ON CONFLICT (id) DO UPDATE SET
  status=$6, meta=$8, updated_at=$10;`

	_, err := execSQL(ctx, r.pool, tx, q, o.ID, o.OrderID, o.UserID, o.Amount, o.Currency, o.Status, o.Gateway, o.Meta, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *orderRepo) FindByOrderID(ctx context.Context, tx repository.Tx, orderID string) (*model.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders WHERE order_id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q+";", orderID)
	if err != nil {
		return nil, err
	}
	return scanOrder(row)
}

func (r *orderRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, limit, offset int) ([]*model.Order, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `SELECT ` + orderColumns + ` FROM orders WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2 OFFSET $3;`
	rows, err := queryRows(ctx, r.pool, tx, q, userID, limit, offset)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()

	var out []*model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

func (r *orderRepo) UpdateStatusIf(ctx context.Context, tx repository.Tx, orderID string, status model.OrderStatus, expected []model.OrderStatus) (bool, error) {
	const q = `
UPDATE orders
   SET status = $2, updated_at = NOW()
 WHERE order_id = $1
   AND status = ANY($3);`

	cmd, err := execSQL(ctx, r.pool, tx, q, orderID, string(status), statusStrings(expected))
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *orderRepo) MarkExpired(ctx context.Context, tx repository.Tx, cutoff time.Time) (int64, error) {
	const q = `
UPDATE orders
   SET status = 'expired', updated_at = NOW()
 WHERE status = 'created'
   AND created_at < $1;`

	cmd, err := execSQL(ctx, r.pool, tx, q, cutoff)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return 0, err
		}
		return 0, domain.ErrOperationFailed
	}
	return cmd.RowsAffected(), nil
}
