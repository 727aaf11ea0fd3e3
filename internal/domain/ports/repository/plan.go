package repository

import (
	"context"

	"payment-gateway-service/internal/domain/model"
)

type PlanRepository interface {
	Save(ctx context.Context, tx Tx, p *model.Plan) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Plan, error)
	FindByPlanID(ctx context.Context, tx Tx, gatewayPlanID string) (*model.Plan, error)
	ListAll(ctx context.Context, tx Tx) ([]*model.Plan, error)
}
