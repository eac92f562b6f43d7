package order

import (
	"time"

	"github.com/gofrs/uuid"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusPaid       Status = "paid"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

func (s Status) String() string {
	return string(s)
}

type CertificateStatus string

const (
	CertStatusPending CertificateStatus = "pending"
	CertStatusMinting CertificateStatus = "minting"
	CertStatusMinted  CertificateStatus = "minted"
	CertStatusFailed  CertificateStatus = "failed"
)

func (s CertificateStatus) String() string {
	return string(s)
}

// allowedTransitions is the single source of truth for order status moves.
// Status only advances; cancelled is reachable from any non-terminal state
// and is itself terminal.
var allowedTransitions = map[Status]map[Status]bool{
	StatusPending: {
		StatusPaid:      true,
		StatusCancelled: true,
	},
	StatusPaid: {
		StatusProcessing: true,
		StatusShipped:    true,
		StatusCancelled:  true,
	},
	StatusProcessing: {
		StatusShipped:   true,
		StatusCancelled: true,
	},
	StatusShipped: {
		StatusDelivered: true,
		StatusCancelled: true,
	},
	StatusDelivered: {},
	StatusCancelled: {},
}

// CanTransition reports whether moving an order from one status to another
// is legal. All status writes must consult this table rather than re-check
// transitions at call sites.
func CanTransition(from, to Status) bool {
	next, ok := allowedTransitions[from]
	return ok && next[to]
}

// AtLeastPaid reports whether a status is paid or any later forward state.
func AtLeastPaid(s Status) bool {
	switch s {
	case StatusPaid, StatusProcessing, StatusShipped, StatusDelivered:
		return true
	}
	return false
}

type Item struct {
	ProductID uuid.UUID `json:"product_id" db:"product_id"`
	Name      string    `json:"name" db:"name"`
	Artisan   string    `json:"artisan" db:"artisan"`
	Quantity  int       `json:"quantity" db:"quantity"`
	UnitPrice float64   `json:"unit_price" db:"unit_price"`
}

type ShippingAddress struct {
	FullName   string `json:"full_name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	Province   string `json:"province"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// Totals are derived once at creation and never recomputed afterwards.
type Totals struct {
	Subtotal       float64 `json:"subtotal"`
	ShippingFee    float64 `json:"shipping_fee"`
	CertificateFee float64 `json:"certificate_fee"`
	GrandTotal     float64 `json:"grand_total"`
}

// Order is the central aggregate. ID is the idempotency key for every
// operation that touches the order; Items, ShippingAddress and Totals are
// immutable after creation.
type Order struct {
	ID                  uuid.UUID         `json:"id"`
	Items               []Item            `json:"items"`
	ShippingAddress     ShippingAddress   `json:"shipping_address"`
	Status              Status            `json:"status"`
	PaymentStatus       string            `json:"payment_status,omitempty"`
	PaymentTxnID        string            `json:"payment_txn_id,omitempty"`
	PaymentMethod       string            `json:"payment_method,omitempty"`
	CertificateStatus   CertificateStatus `json:"certificate_status,omitempty"`
	CertificateIDs      []string          `json:"certificate_ids,omitempty"`
	CertificateTxRef    string            `json:"certificate_tx_ref,omitempty"`
	CertificateProvider string            `json:"certificate_provider,omitempty"`
	Totals              Totals            `json:"totals"`
	PaidAt              *time.Time        `json:"paid_at,omitempty"`
	MintedAt            *time.Time        `json:"minted_at,omitempty"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`
}

// SameSubmission reports whether two orders describe the same immutable
// creation payload. Used to treat a double-submitted create as a no-op.
func (o *Order) SameSubmission(other *Order) bool {
	if o.ID != other.ID || o.ShippingAddress != other.ShippingAddress || o.Totals != other.Totals {
		return false
	}
	if len(o.Items) != len(other.Items) {
		return false
	}
	for i := range o.Items {
		if o.Items[i] != other.Items[i] {
			return false
		}
	}
	return true
}
