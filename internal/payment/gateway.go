package payment

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"errors"
)

var ErrBadSignature = errors.New("payment: notification signature mismatch")

// NormalizedStatus collapses the gateway's transaction vocabulary into the
// three states the reconciler acts on.
type NormalizedStatus string

const (
	StatusSettled NormalizedStatus = "settled"
	StatusPending NormalizedStatus = "pending"
	StatusDenied  NormalizedStatus = "denied"
)

// Notification is the asynchronous payment callback as delivered by the
// gateway. The same notification may arrive more than once and out of
// order with respect to other notifications for the same transaction.
type Notification struct {
	OrderID           string `json:"order_id"`
	TransactionID     string `json:"transaction_id"`
	TransactionStatus string `json:"transaction_status"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	PaymentType       string `json:"payment_type"`
	FraudStatus       string `json:"fraud_status,omitempty"`
	SignatureKey      string `json:"signature_key"`
}

// Normalize maps the raw gateway status onto the reconciler's vocabulary.
// A captured transaction only counts as settled when fraud screening
// accepted it.
func (n Notification) Normalize() NormalizedStatus {
	switch n.TransactionStatus {
	case "capture":
		if n.FraudStatus == "" || n.FraudStatus == "accept" {
			return StatusSettled
		}
		return StatusDenied
	case "settlement":
		return StatusSettled
	case "pending":
		return StatusPending
	case "deny", "cancel", "expire", "failure":
		return StatusDenied
	default:
		return StatusPending
	}
}

// SignatureVerifier checks notification authenticity against the merchant
// server key. The gateway signs sha512(orderID + statusCode + grossAmount
// + serverKey) and sends the hex digest in the payload.
type SignatureVerifier struct {
	serverKey string
}

func NewSignatureVerifier(serverKey string) *SignatureVerifier {
	return &SignatureVerifier{serverKey: serverKey}
}

func (v *SignatureVerifier) Verify(n Notification) error {
	sum := sha512.Sum512([]byte(n.OrderID + n.StatusCode + n.GrossAmount + v.serverKey))
	expected := hex.EncodeToString(sum[:])
	if subtle.ConstantTimeCompare([]byte(expected), []byte(n.SignatureKey)) != 1 {
		return ErrBadSignature
	}
	return nil
}
