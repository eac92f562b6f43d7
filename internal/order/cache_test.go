package order_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasuri-atelier/storefront/internal/order"
)

func newTestCache(t *testing.T) *order.Cache {
	cache, err := order.NewCache(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })
	return cache
}

func cachedOrder(t *testing.T) *order.Order {
	t.Helper()
	return &order.Order{
		ID: uuid.Must(uuid.NewV4()),
		Items: []order.Item{
			{ProductID: uuid.Must(uuid.NewV4()), Name: "Indigo shawl", Artisan: "M. Sato", Quantity: 1, UnitPrice: 240},
		},
		ShippingAddress:   order.ShippingAddress{FullName: "Jo Doe", Email: "jo@example.com", Line1: "1 Weaver St", City: "Kyoto", Country: "JP"},
		Status:            order.StatusPaid,
		CertificateStatus: order.CertStatusMinted,
		CertificateIDs:    []string{"Cert-ABC-123"},
		CertificateTxRef:  "0xDEADBEEF",
		Totals:            order.Totals{Subtotal: 240, GrandTotal: 240},
		CreatedAt:         time.Now().UTC().Truncate(time.Second),
		UpdatedAt:         time.Now().UTC().Truncate(time.Second),
	}
}

func TestCache_PutGet(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	o := cachedOrder(t)
	require.NoError(t, cache.Put(ctx, o))

	got, err := cache.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)
	assert.Equal(t, o.Items, got.Items)
	assert.Equal(t, o.ShippingAddress, got.ShippingAddress)
	assert.Equal(t, o.Totals, got.Totals)
	assert.Equal(t, o.CertificateIDs, got.CertificateIDs)
}

func TestCache_PutOverwrites(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	o := cachedOrder(t)
	require.NoError(t, cache.Put(ctx, o))

	o.Status = order.StatusShipped
	require.NoError(t, cache.Put(ctx, o))

	got, err := cache.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusShipped, got.Status)
}

func TestCache_GetMiss(t *testing.T) {
	cache := newTestCache(t)

	_, err := cache.Get(context.Background(), uuid.Must(uuid.NewV4()))
	assert.True(t, errors.Is(err, order.ErrOrderNotFound))
}

func TestCache_FindByCertificateID(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	o := cachedOrder(t)
	require.NoError(t, cache.Put(ctx, o))

	tests := []struct {
		name    string
		certID  string
		wantHit bool
	}{
		{"exact_match", "Cert-ABC-123", true},
		{"case_insensitive", "cert-abc-123", true},
		{"miss", "cert-unknown", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := cache.FindByCertificateID(ctx, tt.certID)
			if tt.wantHit {
				require.NoError(t, err)
				assert.Equal(t, o.ID, got.ID)
			} else {
				assert.True(t, errors.Is(err, order.ErrOrderNotFound))
			}
		})
	}
}

func TestCache_FindByTxRef(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	o := cachedOrder(t)
	require.NoError(t, cache.Put(ctx, o))

	got, err := cache.FindByTxRef(ctx, "0xdeadbeef")
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)

	empty := cachedOrder(t)
	empty.CertificateTxRef = ""
	require.NoError(t, cache.Put(ctx, empty))

	_, err = cache.FindByTxRef(ctx, "")
	assert.True(t, errors.Is(err, order.ErrOrderNotFound))
}
