package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"payment-gateway-service/internal/domain"
	"payment-gateway-service/internal/domain/model"
	"payment-gateway-service/internal/domain/ports/adapter"
	"payment-gateway-service/internal/usecase"
)

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps domain sentinel errors onto HTTP statuses. Storage
// internals are never exposed.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrPermissionDenied):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, domain.ErrInvalidArgument),
		errors.Is(err, domain.ErrInvalidSubscriptionState):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrSignatureInvalid):
		writeError(w, http.StatusBadRequest, "signature verification failed")
	case errors.Is(err, domain.ErrUnknownGateway),
		errors.Is(err, domain.ErrGatewayDisabled):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnsupportedOperation):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrGatewayUnavailable):
		writeError(w, http.StatusBadGateway, "payment gateway unavailable")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

type createOrderRequest struct {
	Amount   int64                  `json:"amount"`
	Currency string                 `json:"currency"`
	Gateway  string                 `json:"gateway"`
	Method   string                 `json:"method"`
	Flow     string                 `json:"flow"`
	Notes    map[string]interface{} `json:"notes"`
}

type orderResponse struct {
	OrderID       string `json:"order_id"`
	PaymentID     string `json:"payment_id"`
	TransactionID string `json:"transaction_id"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
	Gateway       string `json:"gateway"`
	Status        string `json:"status"`
	PaymentURL    string `json:"payment_url,omitempty"`
	IntentURL     string `json:"intent_url,omitempty"`
}

func orderResponseFrom(out *usecase.CreateOrderOutput) orderResponse {
	return orderResponse{
		OrderID:       out.Order.OrderID,
		PaymentID:     out.Payment.ID,
		TransactionID: out.Payment.TransactionID,
		Amount:        out.Order.Amount,
		Currency:      out.Order.Currency,
		Gateway:       out.Order.Gateway,
		Status:        string(out.Payment.Status),
		PaymentURL:    out.PaymentURL,
		IntentURL:     out.IntentURL,
	}
}

func (s *Server) createOrderHandler(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	out, err := s.paymentUC.CreateOrder(r.Context(), userFrom(r.Context()), usecase.CreateOrderInput{
		Amount:   req.Amount,
		Currency: req.Currency,
		Gateway:  req.Gateway,
		Method:   req.Method,
		Flow:     req.Flow,
		Notes:    req.Notes,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, orderResponseFrom(out))
}

type verifyRequest struct {
	OrderID          string `json:"order_id"`
	GatewayPaymentID string `json:"gateway_payment_id"`
	GatewaySignature string `json:"gateway_signature"`
}

type paymentResponse struct {
	ID               string `json:"id"`
	TransactionID    string `json:"transaction_id"`
	OrderID          string `json:"order_id,omitempty"`
	Amount           int64  `json:"amount"`
	Currency         string `json:"currency"`
	Gateway          string `json:"gateway"`
	GatewayPaymentID string `json:"gateway_payment_id,omitempty"`
	Type             string `json:"type"`
	Status           string `json:"status"`
	RetryCount       int    `json:"retry_count,omitempty"`
	ErrorMessage     string `json:"error_message,omitempty"`
}

func paymentResponseFrom(p *model.Payment) paymentResponse {
	resp := paymentResponse{
		ID:               p.ID,
		TransactionID:    p.TransactionID,
		Amount:           p.Amount,
		Currency:         p.Currency,
		Gateway:          p.Gateway,
		GatewayPaymentID: p.GatewayPaymentID,
		Type:             string(p.Type),
		Status:           string(p.Status),
		RetryCount:       p.RetryCount,
		ErrorMessage:     p.ErrorMessage,
	}
	if p.OrderID != nil {
		resp.OrderID = *p.OrderID
	}
	return resp
}

func (s *Server) verifyPaymentHandler(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.OrderID == "" {
		writeError(w, http.StatusBadRequest, "order_id is required")
		return
	}

	p, err := s.paymentUC.VerifyPayment(r.Context(), userFrom(r.Context()), req.OrderID, req.GatewayPaymentID, req.GatewaySignature)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, paymentResponseFrom(p))
}

func (s *Server) paymentStatusHandler(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	p, err := s.paymentUC.GetStatus(r.Context(), userFrom(r.Context()), orderID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	// Superseded by GET /payment/{paymentID}; kept for older clients.
	w.Header().Set("X-Deprecated", "true")
	writeJSON(w, http.StatusOK, paymentResponseFrom(p))
}

func (s *Server) paymentDetailsHandler(w http.ResponseWriter, r *http.Request) {
	paymentID := chi.URLParam(r, "paymentID")

	p, err := s.paymentUC.GetDetails(r.Context(), userFrom(r.Context()), paymentID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, paymentResponseFrom(p))
}

func (s *Server) listPaymentsHandler(w http.ResponseWriter, r *http.Request) {
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	payments, err := s.paymentUC.ListUserPayments(r.Context(), userFrom(r.Context()), limit, offset)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	data := make([]paymentResponse, 0, len(payments))
	for _, p := range payments {
		data = append(data, paymentResponseFrom(p))
	}
	response := struct {
		Data   []paymentResponse `json:"data"`
		Limit  int               `json:"limit"`
		Offset int               `json:"offset"`
	}{
		Data:   data,
		Limit:  limit,
		Offset: offset,
	}
	writeJSON(w, http.StatusOK, response)
}

type refundRequest struct {
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
	Reason    string `json:"reason"`
}

func (s *Server) initiateRefundHandler(w http.ResponseWriter, r *http.Request) {
	var req refundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PaymentID == "" {
		writeError(w, http.StatusBadRequest, "payment_id is required")
		return
	}

	refund, err := s.refundUC.InitiateRefund(r.Context(), userFrom(r.Context()), req.PaymentID, req.Amount, req.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, refund)
}

func (s *Server) getRefundHandler(w http.ResponseWriter, r *http.Request) {
	refundID := chi.URLParam(r, "refundID")

	refund, err := s.refundUC.GetRefund(r.Context(), userFrom(r.Context()), refundID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, refund)
}

func (s *Server) listRefundsHandler(w http.ResponseWriter, r *http.Request) {
	paymentID := chi.URLParam(r, "paymentID")

	refunds, err := s.refundUC.ListPaymentRefunds(r.Context(), userFrom(r.Context()), paymentID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	response := struct {
		Data []*model.Refund `json:"data"`
	}{Data: refunds}
	writeJSON(w, http.StatusOK, response)
}

type planCreateRequest struct {
	Name     string                 `json:"name"`
	Amount   int64                  `json:"amount"`
	Interval int                    `json:"interval"`
	Period   string                 `json:"period"`
	Gateway  string                 `json:"gateway"`
	Notes    map[string]interface{} `json:"notes"`
}

func (s *Server) createPlanHandler(w http.ResponseWriter, r *http.Request) {
	var req planCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	plan, err := s.subUC.CreatePlan(r.Context(), usecase.CreatePlanInput{
		Name:     req.Name,
		Amount:   req.Amount,
		Interval: req.Interval,
		Period:   model.PlanPeriod(req.Period),
		Gateway:  req.Gateway,
		Notes:    req.Notes,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, plan)
}

func (s *Server) listPlansHandler(w http.ResponseWriter, r *http.Request) {
	plans, err := s.subUC.ListPlans(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	response := struct {
		Data []*model.Plan `json:"data"`
	}{Data: plans}
	writeJSON(w, http.StatusOK, response)
}

type subscribeRequest struct {
	PlanID   string `json:"plan_id"`
	Customer struct {
		Name    string `json:"name"`
		Email   string `json:"email"`
		Contact string `json:"contact"`
	} `json:"customer"`
}

func (s *Server) subscribeHandler(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PlanID == "" {
		writeError(w, http.StatusBadRequest, "plan_id is required")
		return
	}

	sub, err := s.subUC.Subscribe(r.Context(), userFrom(r.Context()), req.PlanID, adapter.Customer{
		Name:    req.Customer.Name,
		Email:   req.Customer.Email,
		Contact: req.Customer.Contact,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (s *Server) subscriptionOrderHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	out, err := s.subUC.CreateSubscriptionOrder(r.Context(), userFrom(r.Context()), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, orderResponseFrom(out))
}

type verifySubscriptionRequest struct {
	OrderID          string `json:"order_id"`
	GatewayPaymentID string `json:"gateway_payment_id"`
	GatewaySignature string `json:"gateway_signature"`
}

func (s *Server) verifySubscriptionHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req verifySubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.OrderID == "" {
		writeError(w, http.StatusBadRequest, "order_id is required")
		return
	}

	sub, err := s.subUC.VerifySubscriptionPayment(r.Context(), userFrom(r.Context()), id, req.OrderID, req.GatewayPaymentID, req.GatewaySignature)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (s *Server) cancelSubscriptionHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	sub, err := s.subUC.Cancel(r.Context(), userFrom(r.Context()), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (s *Server) listSubscriptionsHandler(w http.ResponseWriter, r *http.Request) {
	subs, err := s.subUC.ListUserSubscriptions(r.Context(), userFrom(r.Context()))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	response := struct {
		Data []*model.Subscription `json:"data"`
	}{Data: subs}
	writeJSON(w, http.StatusOK, response)
}
