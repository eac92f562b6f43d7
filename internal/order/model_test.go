package order_test

import (
	"testing"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/kasuri-atelier/storefront/internal/order"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    order.Status
		to      order.Status
		allowed bool
	}{
		{"pending_to_paid", order.StatusPending, order.StatusPaid, true},
		{"pending_to_cancelled", order.StatusPending, order.StatusCancelled, true},
		{"paid_to_shipped", order.StatusPaid, order.StatusShipped, true},
		{"shipped_to_delivered", order.StatusShipped, order.StatusDelivered, true},
		{"paid_to_pending", order.StatusPaid, order.StatusPending, false},
		{"delivered_to_cancelled", order.StatusDelivered, order.StatusCancelled, false},
		{"cancelled_to_paid", order.StatusCancelled, order.StatusPaid, false},
		{"pending_to_delivered", order.StatusPending, order.StatusDelivered, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, order.CanTransition(tt.from, tt.to))
		})
	}
}

func TestAtLeastPaid(t *testing.T) {
	assert.False(t, order.AtLeastPaid(order.StatusPending))
	assert.False(t, order.AtLeastPaid(order.StatusCancelled))
	assert.True(t, order.AtLeastPaid(order.StatusPaid))
	assert.True(t, order.AtLeastPaid(order.StatusShipped))
	assert.True(t, order.AtLeastPaid(order.StatusDelivered))
}

func TestOrderSameSubmission(t *testing.T) {
	id := uuid.Must(uuid.NewV4())
	productID := uuid.Must(uuid.NewV4())

	base := func() *order.Order {
		return &order.Order{
			ID: id,
			Items: []order.Item{
				{ProductID: productID, Name: "Kasuri throw", Artisan: "A. Tanaka", Quantity: 1, UnitPrice: 100},
			},
			ShippingAddress: order.ShippingAddress{FullName: "Jo Doe", Line1: "1 Weaver St", City: "Kyoto", Country: "JP"},
			Totals:          order.Totals{Subtotal: 100, GrandTotal: 100},
		}
	}

	t.Run("identical", func(t *testing.T) {
		assert.True(t, base().SameSubmission(base()))
	})

	t.Run("different_id", func(t *testing.T) {
		other := base()
		other.ID = uuid.Must(uuid.NewV4())
		assert.False(t, base().SameSubmission(other))
	})

	t.Run("different_items", func(t *testing.T) {
		other := base()
		other.Items[0].Quantity = 2
		assert.False(t, base().SameSubmission(other))
	})

	t.Run("different_totals", func(t *testing.T) {
		other := base()
		other.Totals.GrandTotal = 200
		assert.False(t, base().SameSubmission(other))
	})

	t.Run("mutable_fields_ignored", func(t *testing.T) {
		other := base()
		other.Status = order.StatusPaid
		other.CertificateStatus = order.CertStatusMinted
		assert.True(t, base().SameSubmission(other))
	})
}
