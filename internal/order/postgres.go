package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const orderColumns = `id, items, shipping_address, status, payment_status, payment_txn_id, payment_method,
		certificate_status, certificate_ids, certificate_tx_ref, certificate_provider,
		subtotal, shipping_fee, certificate_fee, grand_total,
		paid_at, minted_at, created_at, updated_at`

type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, o *Order) error {
	now := time.Now().UTC()
	o.CreatedAt = now
	o.UpdatedAt = now
	if o.CertificateIDs == nil {
		o.CertificateIDs = []string{}
	}

	query := `
		INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`
	_, err := s.db.Exec(ctx, query,
		o.ID,
		o.Items,
		o.ShippingAddress,
		string(o.Status),
		o.PaymentStatus,
		o.PaymentTxnID,
		o.PaymentMethod,
		string(o.CertificateStatus),
		o.CertificateIDs,
		o.CertificateTxRef,
		o.CertificateProvider,
		o.Totals.Subtotal,
		o.Totals.ShippingFee,
		o.Totals.CertificateFee,
		o.Totals.GrandTotal,
		o.PaidAt,
		o.MintedAt,
		o.CreatedAt,
		o.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			existing, getErr := s.Get(ctx, o.ID)
			if getErr == nil && existing.SameSubmission(o) {
				// Double-submitted create with identical payload is a no-op.
				*o = *existing
				return nil
			}
			return ErrDuplicateOrderID
		}
		return fmt.Errorf("store: failed to insert order %s: %w", o.ID, err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	return s.getOne(ctx, query, id)
}

func (s *PostgresStore) GetByCertificateID(ctx context.Context, certID string) (*Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE $1 = ANY(certificate_ids)`
	return s.getOne(ctx, query, certID)
}

func (s *PostgresStore) GetByTxRef(ctx context.Context, txRef string) (*Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE certificate_tx_ref = $1 AND certificate_tx_ref <> ''`
	return s.getOne(ctx, query, txRef)
}

func (s *PostgresStore) getOne(ctx context.Context, query string, args ...any) (*Order, error) {
	var o Order
	err := s.db.QueryRow(ctx, query, args...).Scan(
		&o.ID,
		&o.Items,
		&o.ShippingAddress,
		&o.Status,
		&o.PaymentStatus,
		&o.PaymentTxnID,
		&o.PaymentMethod,
		&o.CertificateStatus,
		&o.CertificateIDs,
		&o.CertificateTxRef,
		&o.CertificateProvider,
		&o.Totals.Subtotal,
		&o.Totals.ShippingFee,
		&o.Totals.CertificateFee,
		&o.Totals.GrandTotal,
		&o.PaidAt,
		&o.MintedAt,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("store: failed to select order: %w", err)
	}
	return &o, nil
}

func (s *PostgresStore) Update(ctx context.Context, id uuid.UUID, p Patch) (*Order, error) {
	sets := []string{"updated_at = $1"}
	args := []any{time.Now().UTC()}

	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if p.Status != nil {
		add("status", string(*p.Status))
	}
	if p.PaymentStatus != nil {
		add("payment_status", *p.PaymentStatus)
	}
	if p.PaymentTxnID != nil {
		add("payment_txn_id", *p.PaymentTxnID)
	}
	if p.PaymentMethod != nil {
		add("payment_method", *p.PaymentMethod)
	}
	if p.CertificateStatus != nil {
		add("certificate_status", string(*p.CertificateStatus))
	}
	if p.CertificateIDs != nil {
		ids := *p.CertificateIDs
		if ids == nil {
			ids = []string{}
		}
		add("certificate_ids", ids)
	}
	if p.CertificateTxRef != nil {
		add("certificate_tx_ref", *p.CertificateTxRef)
	}
	if p.CertificateProvider != nil {
		add("certificate_provider", *p.CertificateProvider)
	}
	if p.PaidAt != nil {
		add("paid_at", *p.PaidAt)
	}
	if p.MintedAt != nil {
		add("minted_at", *p.MintedAt)
	}

	args = append(args, id)
	query := fmt.Sprintf(
		"UPDATE orders SET %s WHERE id = $%d RETURNING "+orderColumns,
		strings.Join(sets, ", "), len(args),
	)

	o, err := s.getOne(ctx, query, args...)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("store: failed to update order %s: %w", id, err)
	}
	return o, nil
}

func (s *PostgresStore) TransitionCertificate(ctx context.Context, id uuid.UUID, to CertificateStatus, from ...CertificateStatus) (bool, error) {
	states := make([]string, 0, len(from))
	for _, f := range from {
		states = append(states, string(f))
	}

	query := `
		UPDATE orders
		SET certificate_status = $1, updated_at = $2
		WHERE id = $3 AND certificate_status = ANY($4)
	`
	cmdTag, err := s.db.Exec(ctx, query, string(to), time.Now().UTC(), id, states)
	if err != nil {
		return false, fmt.Errorf("store: failed to transition certificate status for order %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		// Either the order is missing or another caller moved the status
		// first. Distinguish so callers can report the right outcome.
		if _, getErr := s.Get(ctx, id); getErr != nil {
			return false, getErr
		}
		return false, nil
	}
	return true, nil
}

func (s *PostgresStore) ResetCertificate(ctx context.Context, id uuid.UUID) (*Order, bool, error) {
	query := `
		UPDATE orders
		SET certificate_status = $1, certificate_ids = '{}', certificate_tx_ref = '',
			certificate_provider = '', updated_at = $2
		WHERE id = $3 AND certificate_status <> $4
		RETURNING ` + orderColumns

	o, err := s.getOne(ctx, query, string(CertStatusPending), time.Now().UTC(), id, string(CertStatusMinting))
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			// No row updated: the order is missing or its certificate is
			// mid-attempt. Distinguish for the caller.
			if _, getErr := s.Get(ctx, id); getErr != nil {
				return nil, false, getErr
			}
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("store: failed to reset certificate for order %s: %w", id, err)
	}
	return o, true, nil
}

func (s *PostgresStore) Scan(ctx context.Context, limit int) ([]Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC LIMIT $1`

	rows, err := s.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("store: failed to scan orders: %w", err)
	}
	defer rows.Close()

	orders := make([]Order, 0)
	for rows.Next() {
		var o Order
		err := rows.Scan(
			&o.ID,
			&o.Items,
			&o.ShippingAddress,
			&o.Status,
			&o.PaymentStatus,
			&o.PaymentTxnID,
			&o.PaymentMethod,
			&o.CertificateStatus,
			&o.CertificateIDs,
			&o.CertificateTxRef,
			&o.CertificateProvider,
			&o.Totals.Subtotal,
			&o.Totals.ShippingFee,
			&o.Totals.CertificateFee,
			&o.Totals.GrandTotal,
			&o.PaidAt,
			&o.MintedAt,
			&o.CreatedAt,
			&o.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("store: failed to scan order row: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: error iterating orders: %w", err)
	}
	return orders, nil
}

var _ Store = (*PostgresStore)(nil)
