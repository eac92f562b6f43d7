package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/kasuri-atelier/storefront/internal/mint"
	"github.com/kasuri-atelier/storefront/internal/order"
)

// Resetter forces a certificate back to pending for operational recovery.
type Resetter interface {
	Reset(ctx context.Context, id uuid.UUID) (*order.Order, error)
}

type AdminHandler struct {
	resetter Resetter
}

func NewAdminHandler(resetter Resetter) *AdminHandler {
	return &AdminHandler{resetter: resetter}
}

// ResetCertificate clears the recorded certificate and re-arms the mint.
// It refuses to act while an attempt is in flight so an operator cannot
// race a live mint into a double issue.
func (h *AdminHandler) ResetCertificate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid order id", http.StatusBadRequest)
		return
	}

	o, err := h.resetter.Reset(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, order.ErrOrderNotFound):
			http.Error(w, "order not found", http.StatusNotFound)
		case errors.Is(err, mint.ErrResetConflict):
			http.Error(w, "mint attempt in progress", http.StatusConflict)
		case errors.Is(err, mint.ErrNothingToReset):
			http.Error(w, "no certificate state to reset", http.StatusConflict)
		default:
			log.Error().Err(err).Stringer("order_id", id).Msg("handler: certificate reset failed")
			http.Error(w, "failed to reset certificate", http.StatusInternalServerError)
		}
		return
	}

	respondJSON(w, http.StatusOK, newStatusResponse(o, o.Status == order.StatusPaid))
}
