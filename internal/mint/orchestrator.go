package mint

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/kasuri-atelier/storefront/internal/event"
	"github.com/kasuri-atelier/storefront/internal/metrics"
	"github.com/kasuri-atelier/storefront/internal/notify"
	"github.com/kasuri-atelier/storefront/internal/order"
)

var (
	// ErrResetConflict is returned when an admin reset races a live attempt.
	ErrResetConflict = errors.New("mint: cannot reset certificate while an attempt is in progress")

	// ErrNothingToReset is returned when the order has no certificate
	// state at all, so there is nothing to re-arm.
	ErrNothingToReset = errors.New("mint: order has no certificate state to reset")
)

type Outcome string

const (
	OutcomeMintedViaPrimary  Outcome = "minted_via_primary"
	OutcomeMintedViaFallback Outcome = "minted_via_fallback"
	OutcomeFailed            Outcome = "failed"
	OutcomeAlreadyInProgress Outcome = "already_in_progress"
	OutcomeAlreadyMinted     Outcome = "already_minted"
	OutcomeNotEligible       Outcome = "not_eligible"
	OutcomeNotFound          Outcome = "not_found"
	OutcomeThrottled         Outcome = "throttled"
)

// Result is the structured mint outcome. Callers branch on Outcome rather
// than inferring what happened from side effects.
type Result struct {
	Outcome       Outcome `json:"outcome"`
	CertificateID string  `json:"certificate_id,omitempty"`
	TxRef         string  `json:"tx_ref,omitempty"`
	Provider      string  `json:"provider,omitempty"`
	Error         string  `json:"error,omitempty"`
}

// Orchestrator issues at most one certificate per order. The guarantee
// rests on a conditional write moving certificate status from
// pending|failed to minting before any provider is called; whoever loses
// that write backs off without touching a provider.
type Orchestrator struct {
	store      order.Store
	providers  []Provider
	mailer     notify.Mailer
	events     event.Publisher
	metrics    *metrics.Metrics
	retryAfter time.Duration

	mu          sync.Mutex
	lastAttempt map[uuid.UUID]time.Time
}

func NewOrchestrator(store order.Store, providers []Provider, mailer notify.Mailer, events event.Publisher, m *metrics.Metrics, retryAfter time.Duration) *Orchestrator {
	return &Orchestrator{
		store:       store,
		providers:   providers,
		mailer:      mailer,
		events:      events,
		metrics:     m,
		retryAfter:  retryAfter,
		lastAttempt: make(map[uuid.UUID]time.Time),
	}
}

// Mint is safe to call repeatedly and concurrently for the same order.
func (oc *Orchestrator) Mint(ctx context.Context, id uuid.UUID) Result {
	o, err := oc.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			return Result{Outcome: OutcomeNotFound}
		}
		return Result{Outcome: OutcomeFailed, Error: err.Error()}
	}

	switch {
	case o.CertificateStatus == order.CertStatusMinted:
		return Result{
			Outcome:       OutcomeAlreadyMinted,
			CertificateID: firstCertificateID(o),
			TxRef:         o.CertificateTxRef,
			Provider:      o.CertificateProvider,
		}
	case o.CertificateStatus == order.CertStatusMinting:
		return Result{Outcome: OutcomeAlreadyInProgress}
	case !order.AtLeastPaid(o.Status):
		return Result{Outcome: OutcomeNotEligible}
	case o.CertificateStatus != order.CertStatusPending && o.CertificateStatus != order.CertStatusFailed:
		return Result{Outcome: OutcomeNotEligible}
	}

	// Throttle only orders that would actually reach a provider, so a
	// repeat trigger on an ineligible or already-minted order still gets
	// its real outcome.
	if !oc.admitAttempt(id) {
		return Result{Outcome: OutcomeThrottled}
	}

	won, err := oc.store.TransitionCertificate(ctx, id, order.CertStatusMinting, order.CertStatusPending, order.CertStatusFailed)
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			return Result{Outcome: OutcomeNotFound}
		}
		return Result{Outcome: OutcomeFailed, Error: err.Error()}
	}
	if !won {
		// A concurrent trigger moved the status first. Re-read so the
		// caller learns which way it went.
		fresh, getErr := oc.store.Get(ctx, id)
		if getErr == nil && fresh.CertificateStatus == order.CertStatusMinted {
			return Result{
				Outcome:       OutcomeAlreadyMinted,
				CertificateID: firstCertificateID(fresh),
				TxRef:         fresh.CertificateTxRef,
				Provider:      fresh.CertificateProvider,
			}
		}
		return Result{Outcome: OutcomeAlreadyInProgress}
	}

	meta := buildMetadata(o)
	started := time.Now()
	receipt, provider, attemptErr := oc.attemptProviders(ctx, meta)
	oc.metrics.MintDuration.Observe(time.Since(started).Seconds())

	if attemptErr != nil {
		failed := order.CertStatusFailed
		if _, updErr := oc.store.Update(ctx, id, order.Patch{CertificateStatus: &failed}); updErr != nil {
			log.Error().Err(updErr).Stringer("order_id", id).Msg("mint: failed to record failed attempt")
		}
		log.Warn().Err(attemptErr).Stringer("order_id", id).Msg("mint: all providers failed")
		return Result{Outcome: OutcomeFailed, Error: attemptErr.Error()}
	}

	outcome := OutcomeMintedViaFallback
	if provider == oc.providers[0].Name() {
		outcome = OutcomeMintedViaPrimary
	}

	minted := order.CertStatusMinted
	now := time.Now().UTC()
	ids := []string{receipt.CertificateID}
	updated, err := oc.store.Update(ctx, id, order.Patch{
		CertificateStatus:   &minted,
		CertificateIDs:      &ids,
		CertificateTxRef:    &receipt.TxRef,
		CertificateProvider: &provider,
		MintedAt:            &now,
	})
	if err != nil {
		// The provider already issued the certificate; re-minting would
		// break the at-most-one guarantee. Report success and leave the
		// store inconsistency for operational reconciliation.
		log.Error().Err(err).
			Stringer("order_id", id).
			Str("certificate_id", receipt.CertificateID).
			Msg("mint: certificate issued but the store write failed")
		return Result{Outcome: outcome, CertificateID: receipt.CertificateID, TxRef: receipt.TxRef, Provider: provider}
	}

	log.Info().
		Stringer("order_id", id).
		Str("provider", provider).
		Str("certificate_id", receipt.CertificateID).
		Msg("mint: certificate issued")

	oc.notifyIssued(updated, receipt, provider)

	return Result{Outcome: outcome, CertificateID: receipt.CertificateID, TxRef: receipt.TxRef, Provider: provider}
}

// Reset forces a minted or failed certificate back to pending so the mint
// can be retried, clearing the previously recorded identifiers. Status and
// identifiers change in one store write: a mint landing concurrently
// either happens entirely before the reset or entirely after it, so an
// issued certificate can never end up minted with its identifiers erased.
func (oc *Orchestrator) Reset(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	o, err := oc.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.CertificateStatus == order.CertStatusMinting {
		return nil, ErrResetConflict
	}
	if o.CertificateStatus == "" {
		return nil, ErrNothingToReset
	}

	updated, won, err := oc.store.ResetCertificate(ctx, id)
	if err != nil {
		return nil, err
	}
	if !won {
		// A trigger moved the certificate into minting after the read
		// above.
		return nil, ErrResetConflict
	}

	log.Info().Stringer("order_id", id).Msg("mint: certificate state reset to pending")
	return updated, nil
}

// attemptProviders walks the chain in order and returns the first
// successful receipt. Transient primary failures are expected; they are
// logged and the next provider takes over.
func (oc *Orchestrator) attemptProviders(ctx context.Context, meta Metadata) (*Receipt, string, error) {
	if len(oc.providers) == 0 {
		return nil, "", errors.New("mint: no providers configured")
	}

	var errs []error
	for _, p := range oc.providers {
		receipt, err := p.Mint(ctx, meta)
		if err != nil {
			oc.metrics.MintAttempts.WithLabelValues(p.Name(), "error").Inc()
			log.Warn().Err(err).Str("provider", p.Name()).Str("order_id", meta.OrderID).Msg("mint: provider attempt failed")
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
			continue
		}
		oc.metrics.MintAttempts.WithLabelValues(p.Name(), "success").Inc()
		return receipt, p.Name(), nil
	}
	return nil, "", errors.Join(errs...)
}

func (oc *Orchestrator) notifyIssued(o *order.Order, receipt *Receipt, provider string) {
	copied := *o
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := oc.mailer.CertificateIssued(ctx, &copied, receipt.CertificateID); err != nil {
			log.Warn().Err(err).Stringer("order_id", copied.ID).Msg("mint: certificate notification failed")
		}

		evt := event.CertificateMinted{
			OrderID:       copied.ID.String(),
			CertificateID: receipt.CertificateID,
			TxRef:         receipt.TxRef,
			Provider:      provider,
			MintedAt:      time.Now().UTC().Format(time.RFC3339),
		}
		if err := oc.events.Publish(ctx, event.TopicCertificateMinted, evt.OrderID, evt); err != nil {
			log.Warn().Err(err).Stringer("order_id", copied.ID).Msg("mint: failed to publish certificate minted event")
		}
	}()
}

// admitAttempt rate-limits triggers per order. This is a throttle only;
// correctness rests on the conditional status transition.
func (oc *Orchestrator) admitAttempt(id uuid.UUID) bool {
	if oc.retryAfter <= 0 {
		return true
	}
	oc.mu.Lock()
	defer oc.mu.Unlock()
	now := time.Now()
	if last, ok := oc.lastAttempt[id]; ok && now.Sub(last) < oc.retryAfter {
		return false
	}
	oc.lastAttempt[id] = now
	return true
}

func buildMetadata(o *order.Order) Metadata {
	issued := o.CreatedAt
	if o.PaidAt != nil {
		issued = *o.PaidAt
	}
	meta := Metadata{
		OrderID:   o.ID.String(),
		IssueDate: issued.UTC().Format("2006-01-02"),
		Recipient: o.ShippingAddress.Email,
	}
	if len(o.Items) > 0 {
		meta.ProductName = o.Items[0].Name
		meta.Artisan = o.Items[0].Artisan
	}
	return meta
}

func firstCertificateID(o *order.Order) string {
	if len(o.CertificateIDs) == 0 {
		return ""
	}
	return o.CertificateIDs[0]
}
