package verify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/kasuri-atelier/storefront/internal/metrics"
	"github.com/kasuri-atelier/storefront/internal/order"
)

// Kind selects which identifier a lookup value represents.
type Kind string

const (
	KindCertificateID Kind = "certificate_id"
	KindTxRef         Kind = "tx_ref"
	KindOrderID       Kind = "order_id"
)

var ErrUnknownKind = errors.New("verify: unknown identifier kind")

// ParseKind maps the client-supplied kind string, defaulting to
// certificate ID, which is what shared certificate links carry.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindCertificateID, KindTxRef, KindOrderID:
		return Kind(s), nil
	case "":
		return KindCertificateID, nil
	}
	return "", ErrUnknownKind
}

// Resolution is a successful lookup. Mintable signals that the order has
// been paid but its certificate has not been issued yet, so the caller can
// offer a manual mint trigger.
type Resolution struct {
	Order    *order.Order
	Mintable bool
}

// CacheLookup is the degraded-mode tier consulted when the primary store
// cannot answer.
type CacheLookup interface {
	Get(ctx context.Context, id uuid.UUID) (*order.Order, error)
	FindByCertificateID(ctx context.Context, certID string) (*order.Order, error)
	FindByTxRef(ctx context.Context, txRef string) (*order.Order, error)
}

// Verifier resolves a certificate identifier to the owning order. Lookups
// run in three tiers, short-circuiting on the first hit: an indexed
// exact-match query, a bounded case-insensitive scan for stores missing
// the right index, and finally the local replication cache.
type Verifier struct {
	store     order.Store
	cache     CacheLookup
	metrics   *metrics.Metrics
	scanLimit int
}

func NewVerifier(store order.Store, cache CacheLookup, m *metrics.Metrics, scanLimit int) *Verifier {
	if scanLimit <= 0 {
		scanLimit = 500
	}
	return &Verifier{store: store, cache: cache, metrics: m, scanLimit: scanLimit}
}

func (v *Verifier) Resolve(ctx context.Context, kind Kind, value string) (*Resolution, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, order.ErrOrderNotFound
	}

	o, err := v.indexed(ctx, kind, value)
	if err == nil {
		v.metrics.VerifierLookups.WithLabelValues("indexed", "hit").Inc()
		return resolution(o), nil
	}
	v.metrics.VerifierLookups.WithLabelValues("indexed", "miss").Inc()
	if !errors.Is(err, order.ErrOrderNotFound) {
		log.Warn().Err(err).Str("kind", string(kind)).Msg("verify: indexed lookup failed, degrading to scan")
	}

	o, scanErr := v.scan(ctx, kind, value)
	if scanErr == nil {
		v.metrics.VerifierLookups.WithLabelValues("scan", "hit").Inc()
		return resolution(o), nil
	}
	v.metrics.VerifierLookups.WithLabelValues("scan", "miss").Inc()
	if !errors.Is(scanErr, order.ErrOrderNotFound) {
		log.Warn().Err(scanErr).Str("kind", string(kind)).Msg("verify: scan failed, degrading to cache")
	}

	o, cacheErr := v.fromCache(ctx, kind, value)
	if cacheErr == nil {
		v.metrics.VerifierLookups.WithLabelValues("cache", "hit").Inc()
		return resolution(o), nil
	}
	v.metrics.VerifierLookups.WithLabelValues("cache", "miss").Inc()

	if errors.Is(cacheErr, order.ErrOrderNotFound) {
		return nil, order.ErrOrderNotFound
	}
	return nil, fmt.Errorf("verify: all lookup tiers failed for %s: %w", kind, cacheErr)
}

func (v *Verifier) indexed(ctx context.Context, kind Kind, value string) (*order.Order, error) {
	switch kind {
	case KindCertificateID:
		return v.store.GetByCertificateID(ctx, value)
	case KindTxRef:
		return v.store.GetByTxRef(ctx, value)
	case KindOrderID:
		id, err := uuid.FromString(value)
		if err != nil {
			return nil, order.ErrOrderNotFound
		}
		return v.store.Get(ctx, id)
	}
	return nil, ErrUnknownKind
}

func (v *Verifier) scan(ctx context.Context, kind Kind, value string) (*order.Order, error) {
	orders, err := v.store.Scan(ctx, v.scanLimit)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		if matches(&orders[i], kind, value) {
			return &orders[i], nil
		}
	}
	return nil, order.ErrOrderNotFound
}

func (v *Verifier) fromCache(ctx context.Context, kind Kind, value string) (*order.Order, error) {
	switch kind {
	case KindCertificateID:
		return v.cache.FindByCertificateID(ctx, value)
	case KindTxRef:
		return v.cache.FindByTxRef(ctx, value)
	case KindOrderID:
		id, err := uuid.FromString(value)
		if err != nil {
			return nil, order.ErrOrderNotFound
		}
		return v.cache.Get(ctx, id)
	}
	return nil, ErrUnknownKind
}

func matches(o *order.Order, kind Kind, value string) bool {
	switch kind {
	case KindCertificateID:
		for _, id := range o.CertificateIDs {
			if strings.EqualFold(id, value) {
				return true
			}
		}
	case KindTxRef:
		return o.CertificateTxRef != "" && strings.EqualFold(o.CertificateTxRef, value)
	case KindOrderID:
		return strings.EqualFold(o.ID.String(), value)
	}
	return false
}

func resolution(o *order.Order) *Resolution {
	return &Resolution{
		Order:    o,
		Mintable: o.Status == order.StatusPaid && o.CertificateStatus == order.CertStatusPending,
	}
}
