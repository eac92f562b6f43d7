package handler

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/kasuri-atelier/storefront/internal/order"
)

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("handler: failed to encode response")
	}
}

// statusResponse is the normalized projection served to polling clients.
type statusResponse struct {
	OrderID           string   `json:"order_id"`
	Status            string   `json:"status"`
	PaymentStatus     string   `json:"payment_status,omitempty"`
	CertificateStatus string   `json:"certificate_status,omitempty"`
	CertificateIDs    []string `json:"certificate_ids,omitempty"`
	CertificateTxRef  string   `json:"certificate_tx_ref,omitempty"`
	Mintable          bool     `json:"mintable"`
}

func newStatusResponse(o *order.Order, mintable bool) statusResponse {
	return statusResponse{
		OrderID:           o.ID.String(),
		Status:            string(o.Status),
		PaymentStatus:     o.PaymentStatus,
		CertificateStatus: string(o.CertificateStatus),
		CertificateIDs:    o.CertificateIDs,
		CertificateTxRef:  o.CertificateTxRef,
		Mintable:          mintable,
	}
}
