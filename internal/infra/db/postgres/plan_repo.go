// File: internal/infra/db/postgres/plan_repo.go
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

var _ repository.PlanRepository = (*planRepo)(nil)

type planRepo struct{ pool *pgxpool.Pool }

func NewPlanRepo(pool *pgxpool.Pool) *planRepo {
	return &planRepo{pool: pool}
}

const planColumns = `id, plan_id, name, amount, interval, period, gateway, meta, created_at, updated_at`

func scanPlan(row pgx.Row) (*model.Plan, error) {
	p := &model.Plan{}
	if err := row.Scan(&p.ID, &p.PlanID, &p.Name, &p.Amount, &p.Interval, &p.Period, &p.Gateway, &p.Meta, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return p, nil
}

func (r *planRepo) Save(ctx context.Context, tx repository.Tx, p *model.Plan) error {
	const q = `
INSERT INTO plans (
  id, plan_id, name, amount, interval, period, gateway, meta, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10
) ON CONFLICT (id) DO UPDATE SET
  plan_id=$2, name=$3, meta=$8, updated_at=$10;`

	_, err := execSQL(ctx, r.pool, tx, q, p.ID, p.PlanID, p.Name, p.Amount, p.Interval, p.Period, p.Gateway, p.Meta, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *planRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Plan, error) {
	const q = `SELECT ` + planColumns + ` FROM plans WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanPlan(row)
}

func (r *planRepo) FindByPlanID(ctx context.Context, tx repository.Tx, gatewayPlanID string) (*model.Plan, error) {
	const q = `SELECT ` + planColumns + ` FROM plans WHERE plan_id=$1 LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, gatewayPlanID)
	if err != nil {
		return nil, err
	}
	return scanPlan(row)
}

func (r *planRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.Plan, error) {
	const q = `SELECT ` + planColumns + ` FROM plans ORDER BY amount ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()

	var out []*model.Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
