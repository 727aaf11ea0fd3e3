//go:build integration

// File: internal/infra/db/postgres/subscription_repo_test.go
package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"payment-gateway-service/internal/domain/model"
)

func TestSubscriptionRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}

	ctx := context.Background()
	repo := NewSubscriptionRepo(testPool)
	planRepo := NewPlanRepo(testPool)

	setup := func(t *testing.T) *model.Subscription {
		cleanup(t)
		plan, err := model.NewPlan(uuid.NewString(), "plan_gw_1", "Pro", 499, 1, model.PlanPeriodMonthly, "razorpay")
		if err != nil {
			t.Fatalf("NewPlan: %v", err)
		}
		if err := planRepo.Save(ctx, nil, plan); err != nil {
			t.Fatalf("save plan: %v", err)
		}
		sub, err := model.NewSubscription(uuid.NewString(), "sub_gw_1", "user-1", plan)
		if err != nil {
			t.Fatalf("NewSubscription: %v", err)
		}
		if err := repo.Save(ctx, nil, sub); err != nil {
			t.Fatalf("save subscription: %v", err)
		}
		return sub
	}

	t.Run("activation is idempotent", func(t *testing.T) {
		sub := setup(t)

		ok, err := repo.UpdateStatusIf(ctx, nil, sub.ID, model.SubscriptionStatusActive,
			[]model.SubscriptionStatus{model.SubscriptionStatusPending}, "")
		if err != nil {
			t.Fatalf("UpdateStatusIf: %v", err)
		}
		if !ok {
			t.Fatal("expected activation to apply")
		}

		ok, err = repo.UpdateStatusIf(ctx, nil, sub.ID, model.SubscriptionStatusActive,
			[]model.SubscriptionStatus{model.SubscriptionStatusPending}, "")
		if err != nil {
			t.Fatalf("UpdateStatusIf: %v", err)
		}
		if ok {
			t.Fatal("second activation should be a no-op")
		}
	})

	t.Run("renewal advances billing date", func(t *testing.T) {
		sub := setup(t)
		if _, err := repo.UpdateStatusIf(ctx, nil, sub.ID, model.SubscriptionStatusActive,
			[]model.SubscriptionStatus{model.SubscriptionStatusPending}, ""); err != nil {
			t.Fatalf("activate: %v", err)
		}

		next := time.Now().AddDate(0, 1, 0)
		if err := repo.RecordRenewal(ctx, nil, sub.ID, next, "tx-renewal-1"); err != nil {
			t.Fatalf("RecordRenewal: %v", err)
		}

		got, err := repo.FindByID(ctx, nil, sub.ID)
		if err != nil {
			t.Fatalf("FindByID: %v", err)
		}
		if got.LastRenewalTx != "tx-renewal-1" {
			t.Errorf("LastRenewalTx = %s", got.LastRenewalTx)
		}
		if got.NextBillingDate.Sub(next).Abs() > time.Second {
			t.Errorf("NextBillingDate = %v, want %v", got.NextBillingDate, next)
		}
	})

	t.Run("due listing excludes future and inactive", func(t *testing.T) {
		sub := setup(t)

		due, err := repo.ListDueForRenewal(ctx, nil, time.Now(), 50)
		if err != nil {
			t.Fatalf("ListDueForRenewal: %v", err)
		}
		if len(due) != 0 {
			t.Errorf("pending subscription listed as due")
		}

		if _, err := repo.UpdateStatusIf(ctx, nil, sub.ID, model.SubscriptionStatusActive,
			[]model.SubscriptionStatus{model.SubscriptionStatusPending}, ""); err != nil {
			t.Fatalf("activate: %v", err)
		}

		due, err = repo.ListDueForRenewal(ctx, nil, time.Now().AddDate(0, 2, 0), 50)
		if err != nil {
			t.Fatalf("ListDueForRenewal: %v", err)
		}
		if len(due) != 1 {
			t.Errorf("got %d due subscriptions, want 1", len(due))
		}
	})
}
