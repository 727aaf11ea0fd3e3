//go:build !integration

// File: internal/infra/gateway/phonepe_test.go
package gateway_test

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"testing"

	"payment-gateway-service/internal/config"
	"payment-gateway-service/internal/domain"
	"payment-gateway-service/internal/domain/model"
	"payment-gateway-service/internal/domain/ports/adapter"
	"payment-gateway-service/internal/infra/gateway"
)

func phonePeChecksum(data, saltKey, saltIndex string) string {
	sum := sha256.Sum256([]byte(data + saltKey))
	return hex.EncodeToString(sum[:]) + "###" + saltIndex
}

func newPhonePe() *gateway.PhonePeGateway {
	return gateway.NewPhonePeGateway(config.GatewayConfig{
		MerchantID: "MERCHANT",
		SaltKey:    "salt",
		SaltIndex:  "1",
	})
}

func TestPhonePeUnsupportedOperations(t *testing.T) {
	g := newPhonePe()
	ctx := context.Background()

	if _, err := g.CreatePlan(ctx, adapter.PlanRequest{Name: "basic"}); !errors.Is(err, domain.ErrUnsupportedOperation) {
		t.Errorf("CreatePlan err = %v, want ErrUnsupportedOperation", err)
	}
	if _, err := g.CreateSubscription(ctx, "plan_1", adapter.Customer{}); !errors.Is(err, domain.ErrUnsupportedOperation) {
		t.Errorf("CreateSubscription err = %v, want ErrUnsupportedOperation", err)
	}
	if err := g.CancelSubscription(ctx, "sub_1"); !errors.Is(err, domain.ErrUnsupportedOperation) {
		t.Errorf("CancelSubscription err = %v, want ErrUnsupportedOperation", err)
	}
	if _, err := g.RenewSubscription(ctx, adapter.RenewalRequest{}); !errors.Is(err, domain.ErrUnsupportedOperation) {
		t.Errorf("RenewSubscription err = %v, want ErrUnsupportedOperation", err)
	}
}

func TestPhonePeParseWebhook(t *testing.T) {
	g := newPhonePe()

	inner := `{"code":"PAYMENT_SUCCESS","data":{"merchantTransactionId":"ORDER_1","transactionId":"T1","state":"COMPLETED","amount":10000}}`
	response := base64.StdEncoding.EncodeToString([]byte(inner))
	payload := []byte(`{"response":"` + response + `"}`)

	t.Run("valid checksum maps completed state", func(t *testing.T) {
		ev, err := g.ParseWebhook(payload, phonePeChecksum(response, "salt", "1"))
		if err != nil {
			t.Fatalf("ParseWebhook: %v", err)
		}
		if ev.OrderID != "ORDER_1" || ev.PaymentID != "T1" || ev.PaymentStatus != model.PaymentStatusSuccess || ev.Amount != 100 {
			t.Errorf("event = %+v", ev)
		}
	})

	t.Run("wrong salt is rejected", func(t *testing.T) {
		if _, err := g.ParseWebhook(payload, phonePeChecksum(response, "wrong", "1")); !errors.Is(err, domain.ErrSignatureInvalid) {
			t.Errorf("err = %v, want ErrSignatureInvalid", err)
		}
	})

	t.Run("missing signature is rejected", func(t *testing.T) {
		if _, err := g.ParseWebhook(payload, ""); !errors.Is(err, domain.ErrSignatureInvalid) {
			t.Errorf("err = %v, want ErrSignatureInvalid", err)
		}
	})
}
