package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/kasuri-atelier/storefront/internal/order"
)

// OrderHandler handles order creation and status polling.
type OrderHandler struct {
	svc order.Service
}

func NewOrderHandler(svc order.Service) *OrderHandler {
	return &OrderHandler{svc: svc}
}

type createOrderRequest struct {
	Items           []order.Item          `json:"items"`
	ShippingAddress order.ShippingAddress `json:"shipping_address"`
}

// CreateOrder records the order before any payment is attempted and
// returns the generated order ID.
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	o, err := h.svc.CreateOrder(r.Context(), req.Items, req.ShippingAddress)
	if err != nil {
		switch {
		case errors.Is(err, order.ErrDuplicateOrderID):
			http.Error(w, "order with this ID already exists", http.StatusConflict)
		case errors.Is(err, order.ErrInvalidOrder):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			log.Error().Err(err).Msg("handler: failed to create order")
			http.Error(w, "failed to create order", http.StatusInternalServerError)
		}
		return
	}

	respondJSON(w, http.StatusCreated, o)
}

// GetStatus serves the polling contract: the normalized order and
// certificate status for one order ID.
func (h *OrderHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid order id", http.StatusBadRequest)
		return
	}

	o, err := h.svc.GetOrder(r.Context(), id)
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			http.Error(w, "order not found", http.StatusNotFound)
			return
		}
		log.Error().Err(err).Stringer("order_id", id).Msg("handler: failed to get order")
		http.Error(w, "failed to get order", http.StatusInternalServerError)
		return
	}

	mintable := o.Status == order.StatusPaid && o.CertificateStatus == order.CertStatusPending
	respondJSON(w, http.StatusOK, newStatusResponse(o, mintable))
}
