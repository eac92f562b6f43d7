package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/kasuri-atelier/storefront/internal/event"
	"github.com/kasuri-atelier/storefront/internal/metrics"
	"github.com/kasuri-atelier/storefront/internal/order"
)

var ErrInvalidOrderID = errors.New("payment: notification carries an invalid order id")

const publishTimeout = 3 * time.Second

// Result describes what a notification did to the order. Conflict-free
// replays produce Changed=false with the same final state.
type Result struct {
	OrderID           uuid.UUID               `json:"order_id"`
	Normalized        NormalizedStatus        `json:"normalized_status"`
	OrderStatus       order.Status            `json:"order_status"`
	CertificateStatus order.CertificateStatus `json:"certificate_status"`
	Changed           bool                    `json:"changed"`
}

// Reconciler folds gateway notifications into idempotent order-status
// transitions. The update is a pure function of the current order and the
// incoming notification, so duplicated or replayed callbacks converge on
// the same state.
type Reconciler struct {
	store   order.Store
	events  event.Publisher
	metrics *metrics.Metrics
}

func NewReconciler(store order.Store, events event.Publisher, m *metrics.Metrics) *Reconciler {
	return &Reconciler{store: store, events: events, metrics: m}
}

func (r *Reconciler) Reconcile(ctx context.Context, n Notification) (*Result, error) {
	id, err := uuid.FromString(n.OrderID)
	if err != nil {
		return nil, ErrInvalidOrderID
	}

	o, err := r.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			return nil, order.ErrOrderNotFound
		}
		return nil, fmt.Errorf("payment: failed to load order %s: %w", id, err)
	}

	normalized := n.Normalize()
	r.metrics.PaymentNotifications.WithLabelValues(string(normalized)).Inc()

	patch := order.Patch{}
	if o.PaymentStatus != n.TransactionStatus {
		patch.PaymentStatus = &n.TransactionStatus
	}
	if n.TransactionID != "" && o.PaymentTxnID != n.TransactionID {
		patch.PaymentTxnID = &n.TransactionID
	}
	if n.PaymentType != "" && o.PaymentMethod != n.PaymentType {
		patch.PaymentMethod = &n.PaymentType
	}

	firstPaid := false
	switch normalized {
	case StatusSettled:
		if o.Status == order.StatusPending && order.CanTransition(o.Status, order.StatusPaid) {
			paid := order.StatusPaid
			now := time.Now().UTC()
			patch.Status = &paid
			patch.PaidAt = &now
			if o.CertificateStatus == "" {
				// First transition into paid makes the order eligible
				// for minting. Minting itself is a separate trigger.
				pending := order.CertStatusPending
				patch.CertificateStatus = &pending
			}
			firstPaid = true
		}
	case StatusDenied:
		// A paid order is never cancelled by a late denial.
		if !order.AtLeastPaid(o.Status) && order.CanTransition(o.Status, order.StatusCancelled) {
			cancelled := order.StatusCancelled
			patch.Status = &cancelled
		}
	case StatusPending:
		// Bookkeeping only. Once paid, a stray pending event never
		// regresses the order status.
	}

	if patch.IsZero() {
		return &Result{
			OrderID:           o.ID,
			Normalized:        normalized,
			OrderStatus:       o.Status,
			CertificateStatus: o.CertificateStatus,
			Changed:           false,
		}, nil
	}

	updated, err := r.store.Update(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("payment: failed to apply notification to order %s: %w", id, err)
	}

	log.Info().
		Stringer("order_id", updated.ID).
		Str("transaction_status", n.TransactionStatus).
		Stringer("order_status", updated.Status).
		Msg("payment: notification reconciled")

	if firstPaid {
		r.publishPaid(updated, n.TransactionID)
	}

	return &Result{
		OrderID:           updated.ID,
		Normalized:        normalized,
		OrderStatus:       updated.Status,
		CertificateStatus: updated.CertificateStatus,
		Changed:           true,
	}, nil
}

func (r *Reconciler) publishPaid(o *order.Order, txnID string) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	evt := event.OrderPaid{
		OrderID:       o.ID.String(),
		TransactionID: txnID,
		GrandTotal:    o.Totals.GrandTotal,
		PaidAt:        o.PaidAt.UTC().Format(time.RFC3339),
	}
	if err := r.events.Publish(ctx, event.TopicOrderPaid, evt.OrderID, evt); err != nil {
		log.Warn().Err(err).Stringer("order_id", o.ID).Msg("payment: failed to publish order paid event")
	}
}
