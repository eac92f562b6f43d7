package order

import (
	"context"
	"errors"
	"time"

	"github.com/gofrs/uuid"
)

var (
	ErrOrderNotFound    = errors.New("order not found")
	ErrDuplicateOrderID = errors.New("order with this ID already exists")
	ErrInvalidOrder     = errors.New("invalid order")
)

// Patch is a partial update. Only non-nil fields are written, so concurrent
// writers touching disjoint fields never clobber each other. UpdatedAt is
// refreshed on every successful Update regardless of which fields are set.
type Patch struct {
	Status              *Status
	PaymentStatus       *string
	PaymentTxnID        *string
	PaymentMethod       *string
	CertificateStatus   *CertificateStatus
	CertificateIDs      *[]string
	CertificateTxRef    *string
	CertificateProvider *string
	PaidAt              *time.Time
	MintedAt            *time.Time
}

// IsZero reports whether the patch carries no fields at all.
func (p Patch) IsZero() bool {
	return p.Status == nil &&
		p.PaymentStatus == nil &&
		p.PaymentTxnID == nil &&
		p.PaymentMethod == nil &&
		p.CertificateStatus == nil &&
		p.CertificateIDs == nil &&
		p.CertificateTxRef == nil &&
		p.CertificateProvider == nil &&
		p.PaidAt == nil &&
		p.MintedAt == nil
}

// Store is the durable persistence contract for orders. Implementations
// must key every write by the order ID so retried operations stay safe.
type Store interface {
	// Create persists a new order. A duplicate ID fails with
	// ErrDuplicateOrderID unless the stored record describes the same
	// submission, in which case Create is a no-op success.
	Create(ctx context.Context, o *Order) error

	// Get returns the order or ErrOrderNotFound.
	Get(ctx context.Context, id uuid.UUID) (*Order, error)

	// Update merges the patch into the stored order and returns the
	// merged record. ErrOrderNotFound if the order does not exist.
	Update(ctx context.Context, id uuid.UUID, p Patch) (*Order, error)

	// TransitionCertificate atomically moves the certificate status to the
	// target value only if the current value is one of from. It reports
	// whether this caller won the transition.
	TransitionCertificate(ctx context.Context, id uuid.UUID, to CertificateStatus, from ...CertificateStatus) (bool, error)

	// ResetCertificate atomically re-arms the certificate: status back to
	// pending with the recorded identifiers cleared, in one write, unless
	// an attempt is in flight. Status and identifiers must change
	// together so a mint landing concurrently can never be half-erased.
	// False with a nil error means the certificate was minting.
	ResetCertificate(ctx context.Context, id uuid.UUID) (*Order, bool, error)

	// GetByCertificateID and GetByTxRef are indexed exact-match lookups
	// for the verifier. ErrOrderNotFound on miss.
	GetByCertificateID(ctx context.Context, certID string) (*Order, error)
	GetByTxRef(ctx context.Context, txRef string) (*Order, error)

	// Scan returns up to limit orders for degraded-mode full-collection
	// matching. Never the primary lookup path.
	Scan(ctx context.Context, limit int) ([]Order, error)
}
