package web

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"payment-gateway-service/internal/usecase"
)

// webhookSignature extracts the provider's signature header for gateway.
// Each provider names its header differently.
func webhookSignature(gateway string, r *http.Request) string {
	switch gateway {
	case "razorpay":
		return r.Header.Get("X-Razorpay-Signature")
	case "phonepe":
		return r.Header.Get("X-VERIFY")
	case "cashfree":
		return r.Header.Get("x-webhook-signature")
	default:
		return ""
	}
}

// webhookHandler acknowledges every processed delivery with HTTP 200.
// Providers retry on non-2xx; a rejected or unknown event must not loop
// forever, so only transport-level failures signal retry.
func (s *Server) webhookHandler(w http.ResponseWriter, r *http.Request) {
	gateway := chi.URLParam(r, "gateway")

	payload, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}

	result, err := s.webhookUC.Process(r.Context(), gateway, payload, webhookSignature(gateway, r))
	if err != nil {
		s.log.Warn().Err(err).
			Str("gateway", gateway).
			Str("outcome", string(result.Outcome)).
			Str("event", result.Event).
			Msg("webhook not applied")
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": false,
			"outcome": result.Outcome,
			"message": result.Message,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": result.Outcome != usecase.WebhookRejected,
		"outcome": result.Outcome,
		"event":   result.Event,
	})
}
