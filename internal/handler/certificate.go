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
	"github.com/kasuri-atelier/storefront/internal/verify"
)

// Minter triggers certificate issuance for one order.
type Minter interface {
	Mint(ctx context.Context, id uuid.UUID) mint.Result
}

// Resolver answers certificate authenticity lookups.
type Resolver interface {
	Resolve(ctx context.Context, kind verify.Kind, value string) (*verify.Resolution, error)
}

// CertificateHandler exposes the mint trigger and verification lookups.
type CertificateHandler struct {
	minter   Minter
	resolver Resolver
}

func NewCertificateHandler(minter Minter, resolver Resolver) *CertificateHandler {
	return &CertificateHandler{minter: minter, resolver: resolver}
}

// Mint triggers certificate issuance. Provider calls may take seconds, so
// the endpoint replies 202 with the structured outcome; callers branch on
// the outcome rather than on side effects.
func (h *CertificateHandler) Mint(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid order id", http.StatusBadRequest)
		return
	}

	result := h.minter.Mint(r.Context(), id)
	if result.Outcome == mint.OutcomeNotFound {
		http.Error(w, "order not found", http.StatusNotFound)
		return
	}

	respondJSON(w, http.StatusAccepted, result)
}

// Verify resolves a certificate identifier (certificate ID by default, or
// tx ref / order ID via the kind query parameter) to its owning order.
func (h *CertificateHandler) Verify(w http.ResponseWriter, r *http.Request) {
	kind, err := verify.ParseKind(r.URL.Query().Get("kind"))
	if err != nil {
		http.Error(w, "unknown identifier kind", http.StatusBadRequest)
		return
	}
	value := chi.URLParam(r, "value")

	res, err := h.resolver.Resolve(r.Context(), kind, value)
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			http.Error(w, "certificate not found", http.StatusNotFound)
			return
		}
		log.Error().Err(err).Str("kind", string(kind)).Msg("handler: certificate lookup failed")
		http.Error(w, "certificate lookup failed", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, newStatusResponse(res.Order, res.Mintable))
}
