package event

import "context"

const (
	TopicOrderPaid         = "storefront.order.paid"
	TopicCertificateMinted = "storefront.certificate.minted"
)

// Publisher emits domain events for downstream consumers (fulfillment
// dashboards, analytics). Publishing is best-effort: callers must not fail
// an order mutation because an event could not be delivered.
type Publisher interface {
	Publish(ctx context.Context, topic string, key string, event any) error
	Close() error
}

// OrderPaid is published after the first successful transition into paid.
type OrderPaid struct {
	OrderID       string  `json:"order_id"`
	TransactionID string  `json:"transaction_id"`
	GrandTotal    float64 `json:"grand_total"`
	PaidAt        string  `json:"paid_at"`
}

// CertificateMinted is published after a successful mint, whichever
// provider served it.
type CertificateMinted struct {
	OrderID       string `json:"order_id"`
	CertificateID string `json:"certificate_id"`
	TxRef         string `json:"tx_ref"`
	Provider      string `json:"provider"`
	MintedAt      string `json:"minted_at"`
}
