package order_test

import (
	"context"
	"errors"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasuri-atelier/storefront/internal/order"
)

type mockStore struct {
	createFunc     func(ctx context.Context, o *order.Order) error
	getFunc        func(ctx context.Context, id uuid.UUID) (*order.Order, error)
	updateFunc     func(ctx context.Context, id uuid.UUID, p order.Patch) (*order.Order, error)
	transitionFunc func(ctx context.Context, id uuid.UUID, to order.CertificateStatus, from ...order.CertificateStatus) (bool, error)
	resetFunc      func(ctx context.Context, id uuid.UUID) (*order.Order, bool, error)
	byCertFunc     func(ctx context.Context, certID string) (*order.Order, error)
	byTxRefFunc    func(ctx context.Context, txRef string) (*order.Order, error)
	scanFunc       func(ctx context.Context, limit int) ([]order.Order, error)
}

func (m *mockStore) Create(ctx context.Context, o *order.Order) error {
	return m.createFunc(ctx, o)
}

func (m *mockStore) Get(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	return m.getFunc(ctx, id)
}

func (m *mockStore) Update(ctx context.Context, id uuid.UUID, p order.Patch) (*order.Order, error) {
	return m.updateFunc(ctx, id, p)
}

func (m *mockStore) TransitionCertificate(ctx context.Context, id uuid.UUID, to order.CertificateStatus, from ...order.CertificateStatus) (bool, error) {
	return m.transitionFunc(ctx, id, to, from...)
}

func (m *mockStore) ResetCertificate(ctx context.Context, id uuid.UUID) (*order.Order, bool, error) {
	return m.resetFunc(ctx, id)
}

func (m *mockStore) GetByCertificateID(ctx context.Context, certID string) (*order.Order, error) {
	return m.byCertFunc(ctx, certID)
}

func (m *mockStore) GetByTxRef(ctx context.Context, txRef string) (*order.Order, error) {
	return m.byTxRefFunc(ctx, txRef)
}

func (m *mockStore) Scan(ctx context.Context, limit int) ([]order.Order, error) {
	return m.scanFunc(ctx, limit)
}

func validItems() []order.Item {
	return []order.Item{
		{ProductID: uuid.Must(uuid.NewV4()), Name: "Kasuri throw", Artisan: "A. Tanaka", Quantity: 2, UnitPrice: 45},
		{ProductID: uuid.Must(uuid.NewV4()), Name: "Sakiori runner", Artisan: "M. Sato", Quantity: 1, UnitPrice: 10},
	}
}

func validAddress() order.ShippingAddress {
	return order.ShippingAddress{
		FullName: "Jo Doe", Email: "jo@example.com",
		Line1: "1 Weaver St", City: "Kyoto", PostalCode: "600-0000", Country: "JP",
	}
}

func TestService_CreateOrder(t *testing.T) {
	tests := []struct {
		name       string
		items      []order.Item
		addr       order.ShippingAddress
		createFunc func(ctx context.Context, o *order.Order) error
		wantErr    bool
		wantErrIs  error
	}{
		{
			name:    "no_items",
			items:   nil,
			addr:    validAddress(),
			wantErr: true, wantErrIs: order.ErrInvalidOrder,
		},
		{
			name: "zero_quantity",
			items: []order.Item{
				{ProductID: uuid.Must(uuid.NewV4()), Name: "Throw", Quantity: 0, UnitPrice: 45},
			},
			addr:    validAddress(),
			wantErr: true, wantErrIs: order.ErrInvalidOrder,
		},
		{
			name: "negative_price",
			items: []order.Item{
				{ProductID: uuid.Must(uuid.NewV4()), Name: "Throw", Quantity: 1, UnitPrice: -5},
			},
			addr:    validAddress(),
			wantErr: true, wantErrIs: order.ErrInvalidOrder,
		},
		{
			name:    "incomplete_address",
			items:   validItems(),
			addr:    order.ShippingAddress{FullName: "Jo Doe"},
			wantErr: true, wantErrIs: order.ErrInvalidOrder,
		},
		{
			name:  "duplicate_id",
			items: validItems(),
			addr:  validAddress(),
			createFunc: func(ctx context.Context, o *order.Order) error {
				return order.ErrDuplicateOrderID
			},
			wantErr: true, wantErrIs: order.ErrDuplicateOrderID,
		},
		{
			name:       "success",
			items:      validItems(),
			addr:       validAddress(),
			createFunc: func(ctx context.Context, o *order.Order) error { return nil },
			wantErr:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockStore{createFunc: tt.createFunc}
			svc := order.NewService(store, order.Fees{Shipping: 12, Certificate: 8})

			o, err := svc.CreateOrder(context.Background(), tt.items, tt.addr)
			if tt.wantErr {
				assert.Error(t, err)
				if tt.wantErrIs != nil {
					assert.True(t, errors.Is(err, tt.wantErrIs))
				}
				return
			}
			require.NoError(t, err)
			assert.NotEqual(t, uuid.Nil, o.ID)
			assert.Equal(t, order.StatusPending, o.Status)
			assert.Equal(t, 100.0, o.Totals.Subtotal)
			assert.Equal(t, 12.0, o.Totals.ShippingFee)
			assert.Equal(t, 8.0, o.Totals.CertificateFee)
			assert.Equal(t, 120.0, o.Totals.GrandTotal)
		})
	}
}

func TestService_GetOrder(t *testing.T) {
	id := uuid.Must(uuid.NewV4())

	t.Run("not_found", func(t *testing.T) {
		store := &mockStore{
			getFunc: func(ctx context.Context, id uuid.UUID) (*order.Order, error) {
				return nil, order.ErrOrderNotFound
			},
		}
		svc := order.NewService(store, order.Fees{})

		_, err := svc.GetOrder(context.Background(), id)
		assert.True(t, errors.Is(err, order.ErrOrderNotFound))
	})

	t.Run("success", func(t *testing.T) {
		want := &order.Order{ID: id, Status: order.StatusPaid}
		store := &mockStore{
			getFunc: func(ctx context.Context, gotID uuid.UUID) (*order.Order, error) {
				assert.Equal(t, id, gotID)
				return want, nil
			},
		}
		svc := order.NewService(store, order.Fees{})

		got, err := svc.GetOrder(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})
}
