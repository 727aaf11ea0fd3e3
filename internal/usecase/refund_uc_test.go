//go:build !integration

package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"payment-gateway-service/internal/config"
	"payment-gateway-service/internal/domain"
	"payment-gateway-service/internal/domain/model"
	"payment-gateway-service/internal/domain/ports/adapter"
)

type refundUCDeps struct {
	refunds  *memRefundRepo
	payments *memPaymentRepo
	gateway  *fakeGateway
	uc       RefundUseCase
}

func newRefundUCDeps() *refundUCDeps {
	d := &refundUCDeps{
		refunds:  newMemRefundRepo(),
		payments: newMemPaymentRepo(),
		gateway:  &fakeGateway{name: "razorpay"},
	}
	cfg := config.PaymentConfig{DefaultGateway: "razorpay", GatewayTimeout: 5 * time.Second}
	d.uc = NewRefundUseCase(d.refunds, d.payments, newFakeRegistry("razorpay", d.gateway), cfg, newTestLogger())
	return d
}

func (d *refundUCDeps) seedSuccess(t *testing.T, ctx context.Context) *model.Payment {
	t.Helper()
	now := time.Now()
	p := &model.Payment{
		ID: "p-1", TransactionID: "tx-1", OrderID: strPtr("order_1"), UserID: "user-1",
		Amount: 500, Currency: "INR", Gateway: "razorpay", GatewayPaymentID: "pay_1",
		Type: model.PaymentTypeOneTime, Status: model.PaymentStatusSuccess,
		ExpiresAt: now.Add(time.Hour), CreatedAt: now, UpdatedAt: now,
	}
	if err := d.payments.Save(ctx, nil, p); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestRefundUC_InitiateRefund(t *testing.T) {
	ctx := context.Background()

	t.Run("should initiate full refund when amount omitted", func(t *testing.T) {
		deps := newRefundUCDeps()
		p := deps.seedSuccess(t, ctx)
		var gotReq adapter.RefundRequest
		deps.gateway.refundFn = func(ctx context.Context, req adapter.RefundRequest) (adapter.RefundResult, error) {
			gotReq = req
			return adapter.RefundResult{RefundID: "rfnd_1", Status: "processed"}, nil
		}

		r, err := deps.uc.InitiateRefund(ctx, "user-1", p.ID, 0, "order mistake")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if r.Amount != p.Amount {
			t.Errorf("amount = %d, want full %d", r.Amount, p.Amount)
		}
		if gotReq.GatewayPaymentID != "pay_1" {
			t.Errorf("gateway payment id = %q", gotReq.GatewayPaymentID)
		}
		if r.Status != model.RefundStatusInitiated {
			t.Errorf("status = %s, want initiated", r.Status)
		}

		got, _ := deps.payments.FindByID(ctx, nil, p.ID)
		if got.Status != model.PaymentStatusRefundInitiated {
			t.Errorf("payment = %s, want refund_initiated", got.Status)
		}
		if got.RefundID == nil || *got.RefundID != "rfnd_1" {
			t.Errorf("payment refund id = %v", got.RefundID)
		}
	})

	t.Run("should accept partial refund within bounds", func(t *testing.T) {
		deps := newRefundUCDeps()
		p := deps.seedSuccess(t, ctx)

		r, err := deps.uc.InitiateRefund(ctx, "user-1", p.ID, 200, "partial")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if r.Amount != 200 {
			t.Errorf("amount = %d, want 200", r.Amount)
		}
	})

	t.Run("should reject amount exceeding payment", func(t *testing.T) {
		deps := newRefundUCDeps()
		p := deps.seedSuccess(t, ctx)

		_, err := deps.uc.InitiateRefund(ctx, "user-1", p.ID, 600, "too much")
		if !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("err = %v, want ErrInvalidArgument", err)
		}
	})

	t.Run("should refuse non-successful payment", func(t *testing.T) {
		deps := newRefundUCDeps()
		p := deps.seedSuccess(t, ctx)
		deps.payments.mu.Lock()
		deps.payments.store[p.ID].Status = model.PaymentStatusPending
		deps.payments.mu.Unlock()

		_, err := deps.uc.InitiateRefund(ctx, "user-1", p.ID, 0, "")
		if !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("err = %v, want ErrInvalidArgument", err)
		}
	})

	t.Run("should deny another user's payment", func(t *testing.T) {
		deps := newRefundUCDeps()
		p := deps.seedSuccess(t, ctx)

		_, err := deps.uc.InitiateRefund(ctx, "user-2", p.ID, 0, "")
		if !errors.Is(err, domain.ErrPermissionDenied) {
			t.Fatalf("err = %v, want ErrPermissionDenied", err)
		}
	})

	t.Run("should not persist refund when gateway call fails", func(t *testing.T) {
		deps := newRefundUCDeps()
		p := deps.seedSuccess(t, ctx)
		deps.gateway.refundFn = func(ctx context.Context, req adapter.RefundRequest) (adapter.RefundResult, error) {
			return adapter.RefundResult{}, domain.ErrGatewayUnavailable
		}

		_, err := deps.uc.InitiateRefund(ctx, "user-1", p.ID, 0, "")
		if !errors.Is(err, domain.ErrGatewayUnavailable) {
			t.Fatalf("err = %v, want ErrGatewayUnavailable", err)
		}
		rows, _ := deps.refunds.ListByPayment(ctx, nil, p.ID)
		if len(rows) != 0 {
			t.Errorf("refund rows persisted despite gateway failure: %d", len(rows))
		}
		got, _ := deps.payments.FindByID(ctx, nil, p.ID)
		if got.Status != model.PaymentStatusSuccess {
			t.Errorf("payment moved to %s", got.Status)
		}
	})
}

func TestRefundUC_Reads(t *testing.T) {
	ctx := context.Background()

	t.Run("GetRefund should enforce ownership", func(t *testing.T) {
		deps := newRefundUCDeps()
		p := deps.seedSuccess(t, ctx)
		r, err := deps.uc.InitiateRefund(ctx, "user-1", p.ID, 0, "")
		if err != nil {
			t.Fatal(err)
		}

		if _, err := deps.uc.GetRefund(ctx, "user-1", r.ID); err != nil {
			t.Errorf("owner read failed: %v", err)
		}
		if _, err := deps.uc.GetRefund(ctx, "user-2", r.ID); !errors.Is(err, domain.ErrPermissionDenied) {
			t.Errorf("err = %v, want ErrPermissionDenied", err)
		}
	})

	t.Run("ListPaymentRefunds should return rows for the payment", func(t *testing.T) {
		deps := newRefundUCDeps()
		p := deps.seedSuccess(t, ctx)
		if _, err := deps.uc.InitiateRefund(ctx, "user-1", p.ID, 100, "first"); err != nil {
			t.Fatal(err)
		}

		rows, err := deps.uc.ListPaymentRefunds(ctx, "user-1", p.ID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(rows) != 1 {
			t.Errorf("rows = %d, want 1", len(rows))
		}
	})
}
