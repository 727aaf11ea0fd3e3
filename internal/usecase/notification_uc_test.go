//go:build !integration

package usecase

import (
	"context"
	"testing"
	"time"

	"payment-gateway-service/internal/domain/model"
)

func TestNotificationUC_BroadcastStatusChanges(t *testing.T) {
	ctx := context.Background()

	seed := func(t *testing.T, repo *memPaymentRepo, id string, status model.PaymentStatus, updatedAt time.Time) {
		t.Helper()
		p := &model.Payment{
			ID: id, TransactionID: "tx-" + id, OrderID: strPtr("order-" + id), UserID: "user-1",
			Amount: 500, Currency: "INR", Gateway: "razorpay", Status: status,
			ExpiresAt: updatedAt.Add(time.Hour), CreatedAt: updatedAt, UpdatedAt: updatedAt,
		}
		if err := repo.Save(ctx, nil, p); err != nil {
			t.Fatal(err)
		}
	}

	t.Run("should publish only changes inside the window", func(t *testing.T) {
		payments := newMemPaymentRepo()
		broadcaster := &memBroadcaster{}
		uc := NewNotificationUseCase(payments, broadcaster, newTestLogger())

		now := time.Now()
		seed(t, payments, "recent", model.PaymentStatusSuccess, now.Add(-time.Minute))
		seed(t, payments, "stale", model.PaymentStatusFailed, now.Add(-time.Hour))

		n, err := uc.BroadcastStatusChanges(ctx, now.Add(-5*time.Minute), 100)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != 1 {
			t.Errorf("published = %d, want 1", n)
		}
		got := broadcaster.published()
		if len(got) != 1 || got[0].ID != "recent" {
			t.Errorf("updates = %+v", got)
		}
		if got[0].Subject != "payment" || got[0].Status != "success" {
			t.Errorf("update payload = %+v", got[0])
		}
	})

	t.Run("should return zero for an empty window", func(t *testing.T) {
		payments := newMemPaymentRepo()
		broadcaster := &memBroadcaster{}
		uc := NewNotificationUseCase(payments, broadcaster, newTestLogger())

		n, err := uc.BroadcastStatusChanges(ctx, time.Now(), 100)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != 0 {
			t.Errorf("published = %d, want 0", n)
		}
	})
}

func TestNotifyWorthy(t *testing.T) {
	worthy := []model.PaymentStatus{model.PaymentStatusFailed, model.PaymentStatusExpired, model.PaymentStatusRefunded}
	for _, s := range worthy {
		if !notifyWorthy(s) {
			t.Errorf("%s should be notify-worthy", s)
		}
	}
	if notifyWorthy(model.PaymentStatusPending) {
		t.Error("pending should not be notify-worthy")
	}
}
