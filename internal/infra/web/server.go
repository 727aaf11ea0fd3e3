package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"payment-gateway-service/internal/config"
	"payment-gateway-service/internal/usecase"
)

type Server struct {
	paymentUC usecase.PaymentUseCase
	subUC     usecase.SubscriptionUseCase
	refundUC  usecase.RefundUseCase
	webhookUC usecase.WebhookUseCase

	auth        *AuthManager
	adminAPIKey string
	log         *zerolog.Logger
}

func NewServer(
	paymentUC usecase.PaymentUseCase,
	subUC usecase.SubscriptionUseCase,
	refundUC usecase.RefundUseCase,
	webhookUC usecase.WebhookUseCase,
	cfg config.ServerConfig,
	logger *zerolog.Logger,
) *Server {
	webLog := logger.With().Str("component", "web").Logger()
	return &Server{
		paymentUC:   paymentUC,
		subUC:       subUC,
		refundUC:    refundUC,
		webhookUC:   webhookUC,
		auth:        NewAuthManager(cfg.JWTSecret, cfg.SessionTTL),
		adminAPIKey: cfg.AdminAPIKey,
		log:         &webLog,
	}
}

// Router builds the full route tree.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.healthHandler)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Post("/webhook/{gateway}", s.webhookHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)

			r.Post("/payment/order", s.createOrderHandler)
			r.Post("/payment/verify", s.verifyPaymentHandler)
			r.Get("/payment/status/{orderID}", s.paymentStatusHandler)
			r.Get("/payment/{paymentID}", s.paymentDetailsHandler)
			r.Get("/payments", s.listPaymentsHandler)

			r.Post("/refund", s.initiateRefundHandler)
			r.Get("/refund/{refundID}", s.getRefundHandler)
			r.Get("/payment/{paymentID}/refunds", s.listRefundsHandler)

			r.Get("/plans", s.listPlansHandler)

			r.Post("/subscription", s.subscribeHandler)
			r.Post("/subscription/{id}/order", s.subscriptionOrderHandler)
			r.Post("/subscription/{id}/verify", s.verifySubscriptionHandler)
			r.Post("/subscription/{id}/cancel", s.cancelSubscriptionHandler)
			r.Get("/subscriptions", s.listSubscriptionsHandler)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.requireAdmin)
			r.Post("/plans", s.createPlanHandler)
		})
	})

	return r
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
