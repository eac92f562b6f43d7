package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/kasuri-atelier/storefront/internal/payment"
)

// Reconciler is the part of the payment component the webhook needs.
type Reconciler interface {
	Reconcile(ctx context.Context, n payment.Notification) (*payment.Result, error)
}

// PaymentHandler receives asynchronous gateway notifications.
type PaymentHandler struct {
	verifier   *payment.SignatureVerifier
	reconciler Reconciler
}

func NewPaymentHandler(verifier *payment.SignatureVerifier, reconciler Reconciler) *PaymentHandler {
	return &PaymentHandler{verifier: verifier, reconciler: reconciler}
}

// Notification authenticates and reconciles a gateway callback. Once the
// payload is syntactically accepted and authentic, the endpoint answers
// 200 even if reconciliation fails downstream — otherwise the gateway
// keeps redelivering a notification we can never process.
func (h *PaymentHandler) Notification(w http.ResponseWriter, r *http.Request) {
	var n payment.Notification
	if err := json.NewDecoder(r.Body).Decode(&n); err != nil {
		http.Error(w, "invalid notification payload", http.StatusBadRequest)
		return
	}

	if err := h.verifier.Verify(n); err != nil {
		log.Warn().Str("order_id", n.OrderID).Msg("handler: rejected notification with bad signature")
		http.Error(w, "invalid signature", http.StatusForbidden)
		return
	}

	result, err := h.reconciler.Reconcile(r.Context(), n)
	if err != nil {
		if errors.Is(err, payment.ErrInvalidOrderID) {
			http.Error(w, "invalid order id", http.StatusBadRequest)
			return
		}
		log.Error().Err(err).Str("order_id", n.OrderID).Msg("handler: reconciliation failed, acknowledging anyway")
		respondJSON(w, http.StatusOK, map[string]string{"status": "accepted"})
		return
	}

	respondJSON(w, http.StatusOK, result)
}
