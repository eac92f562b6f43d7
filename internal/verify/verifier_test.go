package verify_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasuri-atelier/storefront/internal/metrics"
	"github.com/kasuri-atelier/storefront/internal/order"
	"github.com/kasuri-atelier/storefront/internal/verify"
)

type mockStore struct {
	getFn          func(ctx context.Context, id uuid.UUID) (*order.Order, error)
	getByCertIDFn  func(ctx context.Context, certID string) (*order.Order, error)
	getByTxRefFn   func(ctx context.Context, txRef string) (*order.Order, error)
	scanFn         func(ctx context.Context, limit int) ([]order.Order, error)
}

func (m *mockStore) Create(ctx context.Context, o *order.Order) error { return nil }

func (m *mockStore) Get(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	if m.getFn == nil {
		return nil, order.ErrOrderNotFound
	}
	return m.getFn(ctx, id)
}

func (m *mockStore) Update(ctx context.Context, id uuid.UUID, p order.Patch) (*order.Order, error) {
	return nil, order.ErrOrderNotFound
}

func (m *mockStore) TransitionCertificate(ctx context.Context, id uuid.UUID, to order.CertificateStatus, from ...order.CertificateStatus) (bool, error) {
	return false, nil
}

func (m *mockStore) ResetCertificate(ctx context.Context, id uuid.UUID) (*order.Order, bool, error) {
	return nil, false, order.ErrOrderNotFound
}

func (m *mockStore) GetByCertificateID(ctx context.Context, certID string) (*order.Order, error) {
	if m.getByCertIDFn == nil {
		return nil, order.ErrOrderNotFound
	}
	return m.getByCertIDFn(ctx, certID)
}

func (m *mockStore) GetByTxRef(ctx context.Context, txRef string) (*order.Order, error) {
	if m.getByTxRefFn == nil {
		return nil, order.ErrOrderNotFound
	}
	return m.getByTxRefFn(ctx, txRef)
}

func (m *mockStore) Scan(ctx context.Context, limit int) ([]order.Order, error) {
	if m.scanFn == nil {
		return nil, nil
	}
	return m.scanFn(ctx, limit)
}

type mockCache struct {
	getFn           func(ctx context.Context, id uuid.UUID) (*order.Order, error)
	findByCertIDFn  func(ctx context.Context, certID string) (*order.Order, error)
	findByTxRefFn   func(ctx context.Context, txRef string) (*order.Order, error)
}

func (m *mockCache) Get(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	if m.getFn == nil {
		return nil, order.ErrOrderNotFound
	}
	return m.getFn(ctx, id)
}

func (m *mockCache) FindByCertificateID(ctx context.Context, certID string) (*order.Order, error) {
	if m.findByCertIDFn == nil {
		return nil, order.ErrOrderNotFound
	}
	return m.findByCertIDFn(ctx, certID)
}

func (m *mockCache) FindByTxRef(ctx context.Context, txRef string) (*order.Order, error) {
	if m.findByTxRefFn == nil {
		return nil, order.ErrOrderNotFound
	}
	return m.findByTxRefFn(ctx, txRef)
}

func mintedOrder() *order.Order {
	paid := time.Now().UTC().Add(-time.Hour)
	minted := time.Now().UTC()
	return &order.Order{
		ID:                  uuid.Must(uuid.NewV4()),
		Status:              order.StatusPaid,
		CertificateStatus:   order.CertStatusMinted,
		CertificateIDs:      []string{"Cert-ABC-123"},
		CertificateTxRef:    "0xDEADBEEF",
		CertificateProvider: "crossmint",
		PaidAt:              &paid,
		MintedAt:            &minted,
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		input   string
		want    verify.Kind
		wantErr bool
	}{
		{input: "", want: verify.KindCertificateID},
		{input: "certificate_id", want: verify.KindCertificateID},
		{input: "tx_ref", want: verify.KindTxRef},
		{input: "order_id", want: verify.KindOrderID},
		{input: "token", wantErr: true},
	}

	for _, tt := range tests {
		t.Run("kind_"+tt.input, func(t *testing.T) {
			got, err := verify.ParseKind(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, verify.ErrUnknownKind)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestVerifier_IndexedHit(t *testing.T) {
	o := mintedOrder()
	store := &mockStore{
		getByCertIDFn: func(ctx context.Context, certID string) (*order.Order, error) {
			assert.Equal(t, "Cert-ABC-123", certID)
			return o, nil
		},
	}

	v := verify.NewVerifier(store, &mockCache{}, metrics.New(), 0)
	res, err := v.Resolve(context.Background(), verify.KindCertificateID, "Cert-ABC-123")
	require.NoError(t, err)
	assert.Equal(t, o.ID, res.Order.ID)
	assert.False(t, res.Mintable)
}

func TestVerifier_ScanFallback(t *testing.T) {
	o := mintedOrder()
	store := &mockStore{
		getByCertIDFn: func(ctx context.Context, certID string) (*order.Order, error) {
			return nil, errors.New("index unavailable")
		},
		scanFn: func(ctx context.Context, limit int) ([]order.Order, error) {
			assert.Equal(t, 500, limit)
			return []order.Order{*o}, nil
		},
	}

	v := verify.NewVerifier(store, &mockCache{}, metrics.New(), 0)

	// The scan comparison is case-insensitive.
	res, err := v.Resolve(context.Background(), verify.KindCertificateID, "cert-abc-123")
	require.NoError(t, err)
	assert.Equal(t, o.ID, res.Order.ID)
}

func TestVerifier_CacheFallback(t *testing.T) {
	o := mintedOrder()
	store := &mockStore{
		getByTxRefFn: func(ctx context.Context, txRef string) (*order.Order, error) {
			return nil, errors.New("primary down")
		},
		scanFn: func(ctx context.Context, limit int) ([]order.Order, error) {
			return nil, errors.New("primary down")
		},
	}
	cache := &mockCache{
		findByTxRefFn: func(ctx context.Context, txRef string) (*order.Order, error) {
			return o, nil
		},
	}

	v := verify.NewVerifier(store, cache, metrics.New(), 0)
	res, err := v.Resolve(context.Background(), verify.KindTxRef, "0xDEADBEEF")
	require.NoError(t, err)
	assert.Equal(t, o.ID, res.Order.ID)
}

func TestVerifier_AllTiersMiss(t *testing.T) {
	v := verify.NewVerifier(&mockStore{}, &mockCache{}, metrics.New(), 0)
	_, err := v.Resolve(context.Background(), verify.KindCertificateID, "cert-unknown")
	assert.ErrorIs(t, err, order.ErrOrderNotFound)
}

func TestVerifier_EmptyValue(t *testing.T) {
	v := verify.NewVerifier(&mockStore{}, &mockCache{}, metrics.New(), 0)
	_, err := v.Resolve(context.Background(), verify.KindCertificateID, "   ")
	assert.ErrorIs(t, err, order.ErrOrderNotFound)
}

func TestVerifier_ResolveByAllKinds(t *testing.T) {
	o := mintedOrder()
	store := &mockStore{
		getFn: func(ctx context.Context, id uuid.UUID) (*order.Order, error) {
			if id == o.ID {
				return o, nil
			}
			return nil, order.ErrOrderNotFound
		},
		getByCertIDFn: func(ctx context.Context, certID string) (*order.Order, error) {
			return o, nil
		},
		getByTxRefFn: func(ctx context.Context, txRef string) (*order.Order, error) {
			return o, nil
		},
	}
	v := verify.NewVerifier(store, &mockCache{}, metrics.New(), 0)

	for _, tc := range []struct {
		kind  verify.Kind
		value string
	}{
		{verify.KindCertificateID, "Cert-ABC-123"},
		{verify.KindTxRef, "0xDEADBEEF"},
		{verify.KindOrderID, o.ID.String()},
	} {
		t.Run(string(tc.kind), func(t *testing.T) {
			res, err := v.Resolve(context.Background(), tc.kind, tc.value)
			require.NoError(t, err)
			assert.Equal(t, o.ID, res.Order.ID)
		})
	}
}

func TestVerifier_MintableFlag(t *testing.T) {
	o := mintedOrder()
	o.CertificateStatus = order.CertStatusPending
	o.CertificateIDs = nil
	store := &mockStore{
		getFn: func(ctx context.Context, id uuid.UUID) (*order.Order, error) {
			return o, nil
		},
	}

	v := verify.NewVerifier(store, &mockCache{}, metrics.New(), 0)
	res, err := v.Resolve(context.Background(), verify.KindOrderID, o.ID.String())
	require.NoError(t, err)
	assert.True(t, res.Mintable)
}

func TestVerifier_MalformedOrderID(t *testing.T) {
	v := verify.NewVerifier(&mockStore{}, &mockCache{}, metrics.New(), 0)
	_, err := v.Resolve(context.Background(), verify.KindOrderID, "not-a-uuid")
	assert.ErrorIs(t, err, order.ErrOrderNotFound)
}
