//go:build !integration

// File: internal/usecase/mocks_test.go
package usecase

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"payment-gateway-service/internal/domain"
	"payment-gateway-service/internal/domain/model"
	"payment-gateway-service/internal/domain/ports/adapter"
	"payment-gateway-service/internal/domain/ports/repository"
)

// newTestLogger creates a silent zerolog.Logger for use in tests.
// It writes to io.Discard to prevent logs from cluttering test output.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// memPaymentRepo is a small in-memory implementation used by unit tests.
type memPaymentRepo struct {
	mu      sync.RWMutex
	store   map[string]*model.Payment
	saveErr error
}

func newMemPaymentRepo() *memPaymentRepo {
	return &memPaymentRepo{store: make(map[string]*model.Payment)}
}

func (m *memPaymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.store[p.ID] = &cp
	return nil
}

func (m *memPaymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memPaymentRepo) FindByOrderID(ctx context.Context, tx repository.Tx, orderID string) (*model.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.store {
		if p.OrderID != nil && *p.OrderID == orderID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memPaymentRepo) FindByTransactionID(ctx context.Context, tx repository.Tx, transactionID string) (*model.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.store {
		if p.TransactionID == transactionID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memPaymentRepo) FindByGatewayPaymentID(ctx context.Context, tx repository.Tx, gatewayPaymentID string) (*model.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if gatewayPaymentID != "" {
		for _, p := range m.store {
			if p.GatewayPaymentID == gatewayPaymentID {
				cp := *p
				return &cp, nil
			}
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memPaymentRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, limit, offset int) ([]*model.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Payment
	for _, p := range m.store {
		if p.UserID == userID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memPaymentRepo) UpdateStatusIf(ctx context.Context, tx repository.Tx, id string, status model.PaymentStatus, expected []model.PaymentStatus, upd repository.PaymentUpdate) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[id]
	if !ok {
		return false, nil
	}
	match := false
	for _, e := range expected {
		if p.Status == e {
			match = true
			break
		}
	}
	if !match {
		return false, nil
	}
	p.Status = status
	if upd.GatewayPaymentID != nil {
		p.GatewayPaymentID = *upd.GatewayPaymentID
	}
	if upd.ErrorMessage != nil {
		p.ErrorMessage = *upd.ErrorMessage
	}
	if upd.RefundID != nil {
		p.RefundID = upd.RefundID
	}
	p.UpdatedAt = time.Now()
	return true, nil
}

func (m *memPaymentRepo) ReplaceOrder(ctx context.Context, tx repository.Tx, id string, newOrderID string, retryCount int, retriedAt, expiresAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if p.Status != model.PaymentStatusFailed {
		return false, nil
	}
	p.OrderID = &newOrderID
	p.Status = model.PaymentStatusPending
	p.RetryCount = retryCount
	p.LastRetryAt = &retriedAt
	p.ExpiresAt = expiresAt
	p.ErrorMessage = ""
	p.UpdatedAt = time.Now()
	return true, nil
}

func (m *memPaymentRepo) MarkExpired(ctx context.Context, tx repository.Tx, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, p := range m.store {
		if (p.Status == model.PaymentStatusCreated || p.Status == model.PaymentStatusPending) && p.ExpiresAt.Before(now) {
			p.Status = model.PaymentStatusExpired
			p.UpdatedAt = time.Now()
			n++
		}
	}
	return n, nil
}

func (m *memPaymentRepo) ListAwaitingVerification(ctx context.Context, tx repository.Tx, now time.Time, limit int) ([]*model.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Payment
	for _, p := range m.store {
		if (p.Status == model.PaymentStatusCreated || p.Status == model.PaymentStatusPending) && !p.ExpiresAt.Before(now) {
			cp := *p
			out = append(out, &cp)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *memPaymentRepo) ListFailedForRetry(ctx context.Context, tx repository.Tx, maxRetries, limit int) ([]*model.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Payment
	for _, p := range m.store {
		if p.Status == model.PaymentStatusFailed && p.RetryCount < maxRetries {
			cp := *p
			out = append(out, &cp)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *memPaymentRepo) ListStatusChangedSince(ctx context.Context, tx repository.Tx, since time.Time, limit int) ([]*model.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Payment
	for _, p := range m.store {
		if !p.UpdatedAt.Before(since) {
			cp := *p
			out = append(out, &cp)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

type memOrderRepo struct {
	mu    sync.RWMutex
	store map[string]*model.Order // keyed by gateway order id
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{store: make(map[string]*model.Order)}
}

func (m *memOrderRepo) Save(ctx context.Context, tx repository.Tx, o *model.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *o
	m.store[o.OrderID] = &cp
	return nil
}

func (m *memOrderRepo) FindByOrderID(ctx context.Context, tx repository.Tx, orderID string) (*model.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.store[orderID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memOrderRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, limit, offset int) ([]*model.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Order
	for _, o := range m.store {
		if o.UserID == userID {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memOrderRepo) UpdateStatusIf(ctx context.Context, tx repository.Tx, orderID string, status model.OrderStatus, expected []model.OrderStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.store[orderID]
	if !ok {
		return false, nil
	}
	for _, e := range expected {
		if o.Status == e {
			o.Status = status
			o.UpdatedAt = time.Now()
			return true, nil
		}
	}
	return false, nil
}

func (m *memOrderRepo) MarkExpired(ctx context.Context, tx repository.Tx, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, o := range m.store {
		if o.Status == model.OrderStatusCreated && o.CreatedAt.Before(cutoff) {
			o.Status = model.OrderStatusExpired
			n++
		}
	}
	return n, nil
}

type memPlanRepo struct {
	mu    sync.RWMutex
	store map[string]*model.Plan
}

func newMemPlanRepo() *memPlanRepo {
	return &memPlanRepo{store: make(map[string]*model.Plan)}
}

func (m *memPlanRepo) Save(ctx context.Context, tx repository.Tx, p *model.Plan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.store[p.ID] = &cp
	return nil
}

func (m *memPlanRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Plan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memPlanRepo) FindByPlanID(ctx context.Context, tx repository.Tx, gatewayPlanID string) (*model.Plan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.store {
		if p.PlanID == gatewayPlanID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memPlanRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.Plan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Plan
	for _, p := range m.store {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

type memSubscriptionRepo struct {
	mu      sync.RWMutex
	store   map[string]*model.Subscription
	saveErr error
}

func newMemSubscriptionRepo() *memSubscriptionRepo {
	return &memSubscriptionRepo{store: make(map[string]*model.Subscription)}
}

func (m *memSubscriptionRepo) Save(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.store[s.ID] = &cp
	return nil
}

func (m *memSubscriptionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSubscriptionRepo) FindBySubscriptionID(ctx context.Context, tx repository.Tx, gatewaySubID string) (*model.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.store {
		if s.SubscriptionID == gatewaySubID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memSubscriptionRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Subscription
	for _, s := range m.store {
		if s.UserID == userID {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memSubscriptionRepo) UpdateStatusIf(ctx context.Context, tx repository.Tx, id string, status model.SubscriptionStatus, expected []model.SubscriptionStatus, failureReason string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.store[id]
	if !ok {
		return false, nil
	}
	for _, e := range expected {
		if s.Status == e {
			s.Status = status
			if failureReason != "" {
				s.FailureReason = failureReason
			}
			s.UpdatedAt = time.Now()
			return true, nil
		}
	}
	return false, nil
}

func (m *memSubscriptionRepo) RecordRenewal(ctx context.Context, tx repository.Tx, id string, nextBilling time.Time, transactionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	s.NextBillingDate = nextBilling
	s.LastRenewalTx = transactionID
	s.FailureReason = ""
	s.UpdatedAt = time.Now()
	return nil
}

func (m *memSubscriptionRepo) ListDueForRenewal(ctx context.Context, tx repository.Tx, now time.Time, limit int) ([]*model.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Subscription
	for _, s := range m.store {
		if s.Status == model.SubscriptionStatusActive && s.NextBillingDate.Before(now) {
			cp := *s
			out = append(out, &cp)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

type memRefundRepo struct {
	mu    sync.RWMutex
	store map[string]*model.Refund
}

func newMemRefundRepo() *memRefundRepo {
	return &memRefundRepo{store: make(map[string]*model.Refund)}
}

func (m *memRefundRepo) Save(ctx context.Context, tx repository.Tx, r *model.Refund) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.store[r.ID] = &cp
	return nil
}

func (m *memRefundRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Refund, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memRefundRepo) ListByPayment(ctx context.Context, tx repository.Tx, paymentID string) ([]*model.Refund, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Refund
	for _, r := range m.store {
		if r.PaymentID == paymentID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memRefundRepo) UpdateStatusIf(ctx context.Context, tx repository.Tx, id string, status model.RefundStatus, expected []model.RefundStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.store[id]
	if !ok {
		return false, nil
	}
	for _, e := range expected {
		if r.Status == e {
			r.Status = status
			r.UpdatedAt = time.Now()
			return true, nil
		}
	}
	return false, nil
}

// fakeGateway lets tests script provider behavior per call.
type fakeGateway struct {
	name string

	createOrderFn  func(ctx context.Context, req adapter.CreateOrderRequest) (adapter.CreateOrderResult, error)
	verifyFn       func(ctx context.Context, orderID, paymentID, signature string) (adapter.VerifyResult, error)
	statusFn       func(ctx context.Context, orderID string) (adapter.StatusResult, error)
	createPlanFn   func(ctx context.Context, req adapter.PlanRequest) (adapter.PlanResult, error)
	createSubFn    func(ctx context.Context, planRef string, customer adapter.Customer) (adapter.SubscriptionResult, error)
	cancelSubFn    func(ctx context.Context, subscriptionID string) error
	renewFn        func(ctx context.Context, req adapter.RenewalRequest) (adapter.RenewalResult, error)
	refundFn       func(ctx context.Context, req adapter.RefundRequest) (adapter.RefundResult, error)
	parseWebhookFn func(payload []byte, signature string) (adapter.WebhookEvent, error)

	cancelCalls []string
}

func (f *fakeGateway) Name() string {
	if f.name == "" {
		return "razorpay"
	}
	return f.name
}

func (f *fakeGateway) CreateOrder(ctx context.Context, req adapter.CreateOrderRequest) (adapter.CreateOrderResult, error) {
	if f.createOrderFn != nil {
		return f.createOrderFn(ctx, req)
	}
	return adapter.CreateOrderResult{OrderID: "order_fake", Amount: req.Amount, Currency: req.Currency, Status: "created"}, nil
}

func (f *fakeGateway) VerifyPayment(ctx context.Context, orderID, paymentID, signature string) (adapter.VerifyResult, error) {
	if f.verifyFn != nil {
		return f.verifyFn(ctx, orderID, paymentID, signature)
	}
	return adapter.VerifyResult{Verified: true, Status: model.PaymentStatusSuccess}, nil
}

func (f *fakeGateway) PaymentStatus(ctx context.Context, orderID string) (adapter.StatusResult, error) {
	if f.statusFn != nil {
		return f.statusFn(ctx, orderID)
	}
	return adapter.StatusResult{Status: model.PaymentStatusPending}, nil
}

func (f *fakeGateway) CreatePlan(ctx context.Context, req adapter.PlanRequest) (adapter.PlanResult, error) {
	if f.createPlanFn != nil {
		return f.createPlanFn(ctx, req)
	}
	return adapter.PlanResult{PlanID: "plan_fake"}, nil
}

func (f *fakeGateway) CreateSubscription(ctx context.Context, planRef string, customer adapter.Customer) (adapter.SubscriptionResult, error) {
	if f.createSubFn != nil {
		return f.createSubFn(ctx, planRef, customer)
	}
	return adapter.SubscriptionResult{SubscriptionID: "sub_fake", Status: "created"}, nil
}

func (f *fakeGateway) CancelSubscription(ctx context.Context, subscriptionID string) error {
	f.cancelCalls = append(f.cancelCalls, subscriptionID)
	if f.cancelSubFn != nil {
		return f.cancelSubFn(ctx, subscriptionID)
	}
	return nil
}

func (f *fakeGateway) RenewSubscription(ctx context.Context, req adapter.RenewalRequest) (adapter.RenewalResult, error) {
	if f.renewFn != nil {
		return f.renewFn(ctx, req)
	}
	return adapter.RenewalResult{Success: true, TransactionID: "tx_fake", OrderID: "order_fake"}, nil
}

func (f *fakeGateway) InitiateRefund(ctx context.Context, req adapter.RefundRequest) (adapter.RefundResult, error) {
	if f.refundFn != nil {
		return f.refundFn(ctx, req)
	}
	return adapter.RefundResult{RefundID: "rfnd_fake", Status: "processed"}, nil
}

func (f *fakeGateway) ParseWebhook(payload []byte, signature string) (adapter.WebhookEvent, error) {
	if f.parseWebhookFn != nil {
		return f.parseWebhookFn(payload, signature)
	}
	return adapter.WebhookEvent{Kind: adapter.WebhookKindIgnored}, nil
}

type fakeRegistry struct {
	gateways map[string]adapter.Gateway
	def      string
}

func newFakeRegistry(def string, gws ...adapter.Gateway) *fakeRegistry {
	m := make(map[string]adapter.Gateway)
	for _, g := range gws {
		m[g.Name()] = g
	}
	return &fakeRegistry{gateways: m, def: def}
}

func (r *fakeRegistry) Resolve(name string) (adapter.Gateway, error) {
	if name == "" {
		name = r.def
	}
	g, ok := r.gateways[name]
	if !ok {
		return nil, domain.ErrUnknownGateway
	}
	return g, nil
}

func (r *fakeRegistry) Enabled() []string {
	var out []string
	for name := range r.gateways {
		out = append(out, name)
	}
	return out
}

// memBroadcaster records published updates for assertions.
type memBroadcaster struct {
	mu      sync.Mutex
	updates []adapter.StatusUpdate
}

func (b *memBroadcaster) Publish(ctx context.Context, update adapter.StatusUpdate) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.updates = append(b.updates, update)
	return nil
}

func (b *memBroadcaster) published() []adapter.StatusUpdate {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]adapter.StatusUpdate, len(b.updates))
	copy(out, b.updates)
	return out
}
