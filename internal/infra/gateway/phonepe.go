// File: internal/infra/gateway/phonepe.go
package gateway

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
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

const phonePeDefaultBaseURL = "https://api.phonepe.com/apis/hermes"

// PhonePeGateway implements one-time payments against the PhonePe hermes
// API. Requests carry an X-VERIFY checksum of the base64 payload, the API
// path and the salt key. Subscriptions are not offered by the provider.
type PhonePeGateway struct {
	merchantID string
	saltKey    string
	saltIndex  string
	baseURL    string
	client     *http.Client
}

var _ adapter.Gateway = (*PhonePeGateway)(nil)

func NewPhonePeGateway(cfg config.GatewayConfig) *PhonePeGateway {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = phonePeDefaultBaseURL
	}
	return &PhonePeGateway{
		merchantID: cfg.MerchantID,
		saltKey:    cfg.SaltKey,
		saltIndex:  cfg.SaltIndex,
		baseURL:    baseURL,
		client:     &http.Client{Timeout: 15 * time.Second},
	}
}

func (g *PhonePeGateway) Name() string { return "phonepe" }

// checksum computes SHA256(data + saltKey) and appends the salt index per
// the X-VERIFY header format.
func (g *PhonePeGateway) checksum(data string) string {
	sum := sha256.Sum256([]byte(data + g.saltKey))
	return hex.EncodeToString(sum[:]) + "###" + g.saltIndex
}

type phonePeEnvelope struct {
	Success bool            `json:"success"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (g *PhonePeGateway) post(ctx context.Context, path string, base64Payload string) (phonePeEnvelope, error) {
	body, err := json.Marshal(map[string]string{"request": base64Payload})
	if err != nil {
		return phonePeEnvelope{}, fmt.Errorf("failed to marshal request data: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewBuffer(body))
	if err != nil {
		return phonePeEnvelope{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-VERIFY", g.checksum(base64Payload+path))

	return g.do(req)
}

func (g *PhonePeGateway) get(ctx context.Context, path string) (phonePeEnvelope, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+path, nil)
	if err != nil {
		return phonePeEnvelope{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-VERIFY", g.checksum(path))

	return g.do(req)
}

func (g *PhonePeGateway) do(req *http.Request) (phonePeEnvelope, error) {
	resp, err := g.client.Do(req)
	if err != nil {
		return phonePeEnvelope{}, fmt.Errorf("phonepe request failed: %v: %w", err, domain.ErrGatewayUnavailable)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return phonePeEnvelope{}, fmt.Errorf("failed to read response body: %w", err)
	}

	var env phonePeEnvelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return phonePeEnvelope{}, fmt.Errorf("failed to unmarshal response: %w, body: %s", err, string(respBody))
	}
	if !env.Success {
		return env, fmt.Errorf("phonepe error: %s (%s): %w", env.Message, env.Code, domain.ErrGatewayUnavailable)
	}
	return env, nil
}

func (g *PhonePeGateway) CreateOrder(ctx context.Context, req adapter.CreateOrderRequest) (adapter.CreateOrderResult, error) {
	txnID := req.Receipt
	if txnID == "" {
		txnID = fmt.Sprintf("ORDER_%d", time.Now().UnixMilli())
	}

	payload := map[string]interface{}{
		"merchantId":            g.merchantID,
		"merchantTransactionId": txnID,
		"amount":                req.Amount * 100,
		"redirectMode":          "POST",
		"paymentInstrument":     map[string]string{"type": "PAY_PAGE"},
	}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return adapter.CreateOrderResult{}, fmt.Errorf("failed to marshal request data: %w", err)
	}
	base64Payload := base64.StdEncoding.EncodeToString(jsonData)

	env, err := g.post(ctx, "/pg/v1/pay", base64Payload)
	if err != nil {
		return adapter.CreateOrderResult{}, fmt.Errorf("phonepe order creation failed: %w", err)
	}

	var data struct {
		InstrumentResponse struct {
			RedirectInfo struct {
				URL string `json:"url"`
			} `json:"redirectInfo"`
		} `json:"instrumentResponse"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return adapter.CreateOrderResult{}, fmt.Errorf("failed to unmarshal response data: %w", err)
	}

	currency := req.Currency
	if currency == "" {
		currency = "INR"
	}
	return adapter.CreateOrderResult{
		OrderID:    txnID,
		Amount:     req.Amount,
		Currency:   currency,
		Status:     "created",
		PaymentURL: data.InstrumentResponse.RedirectInfo.URL,
	}, nil
}

// statusByTransaction queries /pg/v1/status for a merchant transaction.
func (g *PhonePeGateway) statusByTransaction(ctx context.Context, txnID string) (model.PaymentStatus, int64, error) {
	path := fmt.Sprintf("/pg/v1/status/%s/%s", g.merchantID, txnID)
	env, err := g.get(ctx, path)
	if err != nil {
		return "", 0, err
	}

	var data struct {
		State  string `json:"state"`
		Amount int64  `json:"amount"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return "", 0, fmt.Errorf("failed to unmarshal response data: %w", err)
	}
	return mapPhonePeState(data.State), data.Amount / 100, nil
}

// VerifyPayment treats the signature as the X-VERIFY checksum the client
// relays from the provider callback; PhonePe has no client-side signature
// over order and payment ids, so the settlement state comes from the
// status API.
func (g *PhonePeGateway) VerifyPayment(ctx context.Context, orderID, paymentID, signature string) (adapter.VerifyResult, error) {
	path := fmt.Sprintf("/pg/v1/status/%s/%s", g.merchantID, orderID)
	if signature != "" {
		expected := g.checksum(path)
		if subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) != 1 {
			return adapter.VerifyResult{Verified: false, Status: model.PaymentStatusFailed}, nil
		}
	}

	status, amount, err := g.statusByTransaction(ctx, orderID)
	if err != nil {
		return adapter.VerifyResult{}, fmt.Errorf("phonepe payment verification failed: %w", err)
	}
	return adapter.VerifyResult{Verified: true, Status: status, Amount: amount}, nil
}

func (g *PhonePeGateway) PaymentStatus(ctx context.Context, orderID string) (adapter.StatusResult, error) {
	status, _, err := g.statusByTransaction(ctx, orderID)
	if err != nil {
		return adapter.StatusResult{}, fmt.Errorf("phonepe status check failed: %w", err)
	}
	return adapter.StatusResult{Status: status, GatewayPaymentID: orderID}, nil
}

func (g *PhonePeGateway) CreatePlan(ctx context.Context, req adapter.PlanRequest) (adapter.PlanResult, error) {
	return adapter.PlanResult{}, fmt.Errorf("phonepe plans: %w", domain.ErrUnsupportedOperation)
}

func (g *PhonePeGateway) CreateSubscription(ctx context.Context, planRef string, customer adapter.Customer) (adapter.SubscriptionResult, error) {
	return adapter.SubscriptionResult{}, fmt.Errorf("phonepe subscriptions: %w", domain.ErrUnsupportedOperation)
}

func (g *PhonePeGateway) CancelSubscription(ctx context.Context, subscriptionID string) error {
	return fmt.Errorf("phonepe subscriptions: %w", domain.ErrUnsupportedOperation)
}

func (g *PhonePeGateway) RenewSubscription(ctx context.Context, req adapter.RenewalRequest) (adapter.RenewalResult, error) {
	return adapter.RenewalResult{}, fmt.Errorf("phonepe subscriptions: %w", domain.ErrUnsupportedOperation)
}

func (g *PhonePeGateway) InitiateRefund(ctx context.Context, req adapter.RefundRequest) (adapter.RefundResult, error) {
	payload := map[string]interface{}{
		"merchantId":            g.merchantID,
		"merchantTransactionId": req.GatewayPaymentID,
		"amount":                req.Amount * 100,
	}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return adapter.RefundResult{}, fmt.Errorf("failed to marshal request data: %w", err)
	}
	base64Payload := base64.StdEncoding.EncodeToString(jsonData)

	env, err := g.post(ctx, "/pg/v1/refund", base64Payload)
	if err != nil {
		return adapter.RefundResult{}, fmt.Errorf("phonepe refund initiation failed: %w", err)
	}

	var data struct {
		MerchantTransactionID string `json:"merchantTransactionId"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return adapter.RefundResult{}, fmt.Errorf("failed to unmarshal response data: %w", err)
	}
	return adapter.RefundResult{RefundID: data.MerchantTransactionID, Status: "pending"}, nil
}

// ParseWebhook verifies the X-VERIFY checksum over the base64 response
// body PhonePe posts, then maps the transaction state.
func (g *PhonePeGateway) ParseWebhook(payload []byte, signature string) (adapter.WebhookEvent, error) {
	var envelope struct {
		Response string `json:"response"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return adapter.WebhookEvent{}, fmt.Errorf("failed to unmarshal webhook payload: %w", err)
	}
	if envelope.Response == "" || signature == "" {
		return adapter.WebhookEvent{}, domain.ErrSignatureInvalid
	}

	expected := g.checksum(envelope.Response)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) != 1 {
		return adapter.WebhookEvent{}, domain.ErrSignatureInvalid
	}

	decoded, err := base64.StdEncoding.DecodeString(envelope.Response)
	if err != nil {
		return adapter.WebhookEvent{}, fmt.Errorf("failed to decode webhook response: %w", err)
	}

	var event struct {
		Code string `json:"code"`
		Data struct {
			MerchantTransactionID string `json:"merchantTransactionId"`
			TransactionID         string `json:"transactionId"`
			State                 string `json:"state"`
			Amount                int64  `json:"amount"`
		} `json:"data"`
	}
	if err := json.Unmarshal(decoded, &event); err != nil {
		return adapter.WebhookEvent{}, fmt.Errorf("failed to unmarshal webhook data: %w", err)
	}

	return adapter.WebhookEvent{
		Kind:          adapter.WebhookKindPayment,
		Event:         event.Code,
		OrderID:       event.Data.MerchantTransactionID,
		PaymentID:     event.Data.TransactionID,
		PaymentStatus: mapPhonePeState(event.Data.State),
		Amount:        event.Data.Amount / 100,
	}, nil
}

func mapPhonePeState(state string) model.PaymentStatus {
	switch state {
	case "COMPLETED":
		return model.PaymentStatusSuccess
	case "FAILED":
		return model.PaymentStatusFailed
	case "EXPIRED":
		return model.PaymentStatusExpired
	default:
		return model.PaymentStatusPending
	}
}
