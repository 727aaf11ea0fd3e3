package model

import (
	"time"

	"payment-gateway-service/internal/domain"
)

type PlanPeriod string

const (
	PlanPeriodMonthly PlanPeriod = "monthly"
	PlanPeriodYearly  PlanPeriod = "yearly"
)

// Plan holds immutable pricing terms for a recurring subscription.
type Plan struct {
	ID        string // UUID
	PlanID    string // gateway-assigned plan id
	Name      string
	Amount    int64
	Interval  int // billing interval count, e.g. 1 for every period
	Period    PlanPeriod
	Gateway   string
	Meta      map[string]interface{}
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (p *Plan) IsZero() bool { return p == nil || p.ID == "" }

// NewPlan validates and constructs a plan.
func NewPlan(id, gatewayPlanID, name string, amount int64, interval int, period PlanPeriod, gateway string) (*Plan, error) {
	if id == "" || name == "" || amount <= 0 || interval <= 0 || gateway == "" {
		return nil, domain.ErrInvalidArgument
	}
	switch period {
	case PlanPeriodMonthly, PlanPeriodYearly:
	default:
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Plan{
		ID:        id,
		PlanID:    gatewayPlanID,
		Name:      name,
		Amount:    amount,
		Interval:  interval,
		Period:    period,
		Gateway:   gateway,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
