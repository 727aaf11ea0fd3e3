// File: internal/infra/gateway/cashfree.go
package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"payment-gateway-service/internal/config"
	"payment-gateway-service/internal/domain"
	"payment-gateway-service/internal/domain/model"
	"payment-gateway-service/internal/domain/ports/adapter"
)

const (
	cashfreeDefaultBaseURL = "https://api.cashfree.com/pg"
	cashfreeAPIVersion     = "2022-09-01"
)

// CashfreeGateway implements payments, refunds and periodic subscriptions
// against the Cashfree PG API. Cashfree takes amounts in major units.
type CashfreeGateway struct {
	appID     string
	secretKey string
	baseURL   string
	client    *http.Client
}

var _ adapter.Gateway = (*CashfreeGateway)(nil)

func NewCashfreeGateway(cfg config.GatewayConfig) *CashfreeGateway {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = cashfreeDefaultBaseURL
	}
	return &CashfreeGateway{
		appID:     cfg.AppID,
		secretKey: cfg.SecretKey,
		baseURL:   baseURL,
		client:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (g *CashfreeGateway) Name() string { return "cashfree" }

func (g *CashfreeGateway) call(ctx context.Context, method, path string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request data: %w", err)
		}
		body = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-version", cashfreeAPIVersion)
	req.Header.Set("x-client-id", g.appID)
	req.Header.Set("x-client-secret", g.secretKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("cashfree request failed: %v: %w", err, domain.ErrGatewayUnavailable)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Message string `json:"message"`
			Code    string `json:"code"`
		}
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("cashfree error: %s (%s): %w", apiErr.Message, apiErr.Code, domain.ErrGatewayUnavailable)
		}
		return fmt.Errorf("cashfree error: status %d, body: %s: %w", resp.StatusCode, string(respBody), domain.ErrGatewayUnavailable)
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w, body: %s", err, string(respBody))
		}
	}
	return nil
}

type cashfreeOrder struct {
	OrderID     string  `json:"order_id"`
	OrderAmount float64 `json:"order_amount"`
	Currency    string  `json:"order_currency"`
	OrderStatus string  `json:"order_status"`
	PaymentLink string  `json:"payment_link"`
	CFOrderID   string  `json:"cf_order_id"`
}

func (g *CashfreeGateway) CreateOrder(ctx context.Context, req adapter.CreateOrderRequest) (adapter.CreateOrderResult, error) {
	currency := req.Currency
	if currency == "" {
		currency = "INR"
	}

	orderID := req.Receipt
	if orderID == "" {
		orderID = fmt.Sprintf("ORDER_%d", time.Now().UnixMilli())
	}

	payload := map[string]interface{}{
		"order_id":       orderID,
		"order_amount":   req.Amount,
		"order_currency": currency,
	}
	if len(req.Notes) > 0 {
		payload["order_tags"] = req.Notes
	}

	var order cashfreeOrder
	if err := g.call(ctx, http.MethodPost, "/orders", payload, &order); err != nil {
		return adapter.CreateOrderResult{}, fmt.Errorf("cashfree order creation failed: %w", err)
	}

	return adapter.CreateOrderResult{
		OrderID:    order.OrderID,
		Amount:     req.Amount,
		Currency:   currency,
		Status:     "created",
		PaymentURL: order.PaymentLink,
	}, nil
}

// VerifyPayment checks the relayed HMAC over "orderID|paymentID" with the
// secret key, then reads the order's settlement state.
func (g *CashfreeGateway) VerifyPayment(ctx context.Context, orderID, paymentID, signature string) (adapter.VerifyResult, error) {
	if orderID == "" || signature == "" || g.secretKey == "" {
		return adapter.VerifyResult{Verified: false, Status: model.PaymentStatusFailed}, nil
	}
	mac := hmac.New(sha256.New, []byte(g.secretKey))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return adapter.VerifyResult{Verified: false, Status: model.PaymentStatusFailed}, nil
	}

	var order cashfreeOrder
	if err := g.call(ctx, http.MethodGet, "/orders/"+orderID, nil, &order); err != nil {
		return adapter.VerifyResult{}, fmt.Errorf("cashfree payment verification failed: %w", err)
	}
	return adapter.VerifyResult{
		Verified: true,
		Status:   mapCashfreeOrderStatus(order.OrderStatus),
		Amount:   int64(order.OrderAmount),
	}, nil
}

func (g *CashfreeGateway) PaymentStatus(ctx context.Context, orderID string) (adapter.StatusResult, error) {
	var order cashfreeOrder
	if err := g.call(ctx, http.MethodGet, "/orders/"+orderID, nil, &order); err != nil {
		return adapter.StatusResult{}, fmt.Errorf("cashfree status check failed: %w", err)
	}
	return adapter.StatusResult{
		Status:           mapCashfreeOrderStatus(order.OrderStatus),
		GatewayPaymentID: order.CFOrderID,
	}, nil
}

func (g *CashfreeGateway) CreatePlan(ctx context.Context, req adapter.PlanRequest) (adapter.PlanResult, error) {
	interval := "MONTH"
	if req.Period == model.PlanPeriodYearly {
		interval = "YEAR"
	}

	payload := map[string]interface{}{
		"plan_id":   fmt.Sprintf("PLAN_%d", time.Now().UnixMilli()),
		"plan_name": req.Name,
		"type":      "PERIODIC",
		"amount":    req.Amount,
		"interval":  interval,
	}

	var plan struct {
		PlanID string `json:"plan_id"`
	}
	if err := g.call(ctx, http.MethodPost, "/plans", payload, &plan); err != nil {
		return adapter.PlanResult{}, fmt.Errorf("cashfree plan creation failed: %w", err)
	}
	return adapter.PlanResult{PlanID: plan.PlanID}, nil
}

func (g *CashfreeGateway) CreateSubscription(ctx context.Context, planRef string, customer adapter.Customer) (adapter.SubscriptionResult, error) {
	payload := map[string]interface{}{
		"subscription_id": fmt.Sprintf("SUB_%d", time.Now().UnixMilli()),
		"plan_id":         planRef,
		"customer_details": map[string]string{
			"customer_name":  customer.Name,
			"customer_email": customer.Email,
			"customer_phone": customer.Contact,
		},
	}

	var sub struct {
		SubscriptionID string `json:"subscription_id"`
		Status         string `json:"subscription_status"`
	}
	if err := g.call(ctx, http.MethodPost, "/subscriptions", payload, &sub); err != nil {
		return adapter.SubscriptionResult{}, fmt.Errorf("cashfree subscription creation failed: %w", err)
	}
	return adapter.SubscriptionResult{SubscriptionID: sub.SubscriptionID, Status: sub.Status}, nil
}

func (g *CashfreeGateway) CancelSubscription(ctx context.Context, subscriptionID string) error {
	payload := map[string]string{"action": "CANCEL"}
	if err := g.call(ctx, http.MethodPost, "/subscriptions/"+subscriptionID+"/manage", payload, nil); err != nil {
		return fmt.Errorf("cashfree subscription cancellation failed: %w", err)
	}
	return nil
}

func (g *CashfreeGateway) RenewSubscription(ctx context.Context, req adapter.RenewalRequest) (adapter.RenewalResult, error) {
	// Cashfree charges periodic subscriptions on its own schedule; there is
	// no merchant-initiated renewal charge API.
	return adapter.RenewalResult{}, fmt.Errorf("cashfree renewals: %w", domain.ErrUnsupportedOperation)
}

func (g *CashfreeGateway) InitiateRefund(ctx context.Context, req adapter.RefundRequest) (adapter.RefundResult, error) {
	payload := map[string]interface{}{
		"refund_amount": req.Amount,
		"refund_id":     fmt.Sprintf("REFUND_%d", time.Now().UnixMilli()),
		"refund_note":   req.Reason,
	}

	var refund struct {
		RefundID     string `json:"refund_id"`
		RefundStatus string `json:"refund_status"`
	}
	if err := g.call(ctx, http.MethodPost, "/orders/"+req.GatewayPaymentID+"/refunds", payload, &refund); err != nil {
		return adapter.RefundResult{}, fmt.Errorf("cashfree refund initiation failed: %w", err)
	}
	return adapter.RefundResult{RefundID: refund.RefundID, Status: refund.RefundStatus}, nil
}

// ParseWebhook verifies the HMAC the provider computes over the raw body
// with the secret key.
func (g *CashfreeGateway) ParseWebhook(payload []byte, signature string) (adapter.WebhookEvent, error) {
	if signature == "" || g.secretKey == "" {
		return adapter.WebhookEvent{}, domain.ErrSignatureInvalid
	}
	mac := hmac.New(sha256.New, []byte(g.secretKey))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return adapter.WebhookEvent{}, domain.ErrSignatureInvalid
	}

	var event struct {
		Type string `json:"type"`
		Data struct {
			Order struct {
				OrderID     string  `json:"order_id"`
				OrderAmount float64 `json:"order_amount"`
				OrderStatus string  `json:"order_status"`
			} `json:"order"`
			Payment struct {
				CFPaymentID json.Number `json:"cf_payment_id"`
			} `json:"payment"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &event); err != nil {
		return adapter.WebhookEvent{}, fmt.Errorf("failed to unmarshal webhook payload: %w", err)
	}

	if event.Data.Order.OrderID == "" {
		return adapter.WebhookEvent{Kind: adapter.WebhookKindIgnored, Event: event.Type}, nil
	}

	return adapter.WebhookEvent{
		Kind:          adapter.WebhookKindPayment,
		Event:         event.Type,
		OrderID:       event.Data.Order.OrderID,
		PaymentID:     event.Data.Payment.CFPaymentID.String(),
		PaymentStatus: mapCashfreeOrderStatus(event.Data.Order.OrderStatus),
		Amount:        int64(event.Data.Order.OrderAmount),
	}, nil
}

func mapCashfreeOrderStatus(s string) model.PaymentStatus {
	switch s {
	case "PAID":
		return model.PaymentStatusSuccess
	case "EXPIRED":
		return model.PaymentStatusExpired
	case "TERMINATED", "FAILED":
		return model.PaymentStatusFailed
	default:
		return model.PaymentStatusPending
	}
}
