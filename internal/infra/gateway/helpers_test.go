//go:build !integration

// File: internal/infra/gateway/helpers_test.go
package gateway_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"payment-gateway-service/internal/domain/ports/adapter"
)

func decodeJSONBody(t *testing.T, r *http.Request, out interface{}) {
	t.Helper()
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		t.Fatalf("decode request body: %v", err)
	}
}

func adapterOrderReq(amount int64, currency, method, flow string) adapter.CreateOrderRequest {
	return adapter.CreateOrderRequest{
		Amount:   amount,
		Currency: currency,
		Method:   method,
		Flow:     flow,
	}
}

// upiServer serves a minimal order-create response for intent flow tests.
func upiServer(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"order_upi","amount":10000,"currency":"INR","status":"created","created_at":1700000000}`))
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}
