//go:build !integration

// File: internal/infra/gateway/razorpay_test.go
package gateway_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"payment-gateway-service/internal/config"
	"payment-gateway-service/internal/domain"
	"payment-gateway-service/internal/domain/model"
	"payment-gateway-service/internal/infra/gateway"
)

func signHex(secret, msg string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(msg))
	return hex.EncodeToString(mac.Sum(nil))
}

func newRazorpay(t *testing.T, handler http.Handler) *gateway.RazorpayGateway {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return gateway.NewRazorpayGateway(config.GatewayConfig{
		Enabled:       true,
		KeyID:         "rzp_test_key",
		KeySecret:     "test_secret",
		WebhookSecret: "whsec",
		BaseURL:       srv.URL,
	})
}

func TestRazorpayCreateOrder(t *testing.T) {
	t.Run("converts amount to paise and back", func(t *testing.T) {
		var gotBody map[string]interface{}
		g := newRazorpay(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/orders" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			if u, _, _ := r.BasicAuth(); u != "rzp_test_key" {
				t.Errorf("missing basic auth")
			}
			decodeJSONBody(t, r, &gotBody)
			w.Write([]byte(`{"id":"order_abc","amount":49900,"currency":"INR","status":"created","created_at":1700000000}`))
		}))

		res, err := g.CreateOrder(context.Background(), adapterOrderReq(499, "INR", "", ""))
		if err != nil {
			t.Fatalf("CreateOrder: %v", err)
		}
		if gotBody["amount"].(float64) != 49900 {
			t.Errorf("wire amount = %v, want 49900", gotBody["amount"])
		}
		if res.OrderID != "order_abc" || res.Amount != 499 {
			t.Errorf("result = %+v", res)
		}
	})

	t.Run("upi intent flow returns deep link", func(t *testing.T) {
		g := gateway.NewRazorpayGateway(config.GatewayConfig{
			KeySecret:     "test_secret",
			BaseURL:       upiServer(t),
			UPIDefaultVPA: "merchant@upi",
			UPIMerchant:   "Acme",
		})
		res, err := g.CreateOrder(context.Background(), adapterOrderReq(100, "INR", "upi", "intent"))
		if err != nil {
			t.Fatalf("CreateOrder: %v", err)
		}
		if res.IntentURL == "" {
			t.Fatal("expected intent URL")
		}
	})
}

func TestRazorpayVerifyPayment(t *testing.T) {
	t.Run("invalid signature is not verified and not an error", func(t *testing.T) {
		g := newRazorpay(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("provider should not be called on signature failure")
		}))
		res, err := g.VerifyPayment(context.Background(), "order_1", "pay_1", "bogus")
		if err != nil {
			t.Fatalf("VerifyPayment: %v", err)
		}
		if res.Verified || res.Status != model.PaymentStatusFailed {
			t.Errorf("result = %+v, want unverified failed", res)
		}
	})

	t.Run("valid signature maps captured to success", func(t *testing.T) {
		g := newRazorpay(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"id":"pay_1","order_id":"order_1","amount":49900,"status":"captured"}`))
		}))
		sig := signHex("test_secret", "order_1|pay_1")
		res, err := g.VerifyPayment(context.Background(), "order_1", "pay_1", sig)
		if err != nil {
			t.Fatalf("VerifyPayment: %v", err)
		}
		if !res.Verified || res.Status != model.PaymentStatusSuccess || res.Amount != 499 {
			t.Errorf("result = %+v", res)
		}
	})
}

func TestRazorpayParseWebhook(t *testing.T) {
	g := gateway.NewRazorpayGateway(config.GatewayConfig{
		KeySecret:     "test_secret",
		WebhookSecret: "whsec",
		BaseURL:       "http://unused",
	})

	payload := []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_9","order_id":"order_9","amount":10000,"status":"captured"}}}}`)

	t.Run("valid signature maps payment.captured", func(t *testing.T) {
		ev, err := g.ParseWebhook(payload, signHex("whsec", string(payload)))
		if err != nil {
			t.Fatalf("ParseWebhook: %v", err)
		}
		if ev.Kind != "payment" || ev.OrderID != "order_9" || ev.PaymentStatus != model.PaymentStatusSuccess || ev.Amount != 100 {
			t.Errorf("event = %+v", ev)
		}
	})

	t.Run("invalid signature is rejected", func(t *testing.T) {
		if _, err := g.ParseWebhook(payload, "bad"); !errors.Is(err, domain.ErrSignatureInvalid) {
			t.Errorf("err = %v, want ErrSignatureInvalid", err)
		}
	})

	t.Run("unknown event is ignored", func(t *testing.T) {
		body := []byte(`{"event":"order.paid","payload":{}}`)
		ev, err := g.ParseWebhook(body, signHex("whsec", string(body)))
		if err != nil {
			t.Fatalf("ParseWebhook: %v", err)
		}
		if ev.Kind != "ignored" {
			t.Errorf("kind = %s, want ignored", ev.Kind)
		}
	})

	t.Run("subscription.charged maps to active", func(t *testing.T) {
		body := []byte(`{"event":"subscription.charged","payload":{"subscription":{"entity":{"id":"sub_1","status":"active"}},"payment":{"entity":{"id":"pay_2","amount":5000}}}}`)
		ev, err := g.ParseWebhook(body, signHex("whsec", string(body)))
		if err != nil {
			t.Fatalf("ParseWebhook: %v", err)
		}
		if ev.Kind != "subscription" || ev.SubscriptionID != "sub_1" || ev.SubscriptionStatus != model.SubscriptionStatusActive {
			t.Errorf("event = %+v", ev)
		}
	})
}
