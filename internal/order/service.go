package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
)

// Fees are the flat charges applied to every order at creation.
type Fees struct {
	Shipping    float64
	Certificate float64
}

type Service interface {
	CreateOrder(ctx context.Context, items []Item, addr ShippingAddress) (*Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*Order, error)
}

type service struct {
	store Store
	fees  Fees
}

func NewService(store Store, fees Fees) Service {
	return &service{store: store, fees: fees}
}

func (s *service) CreateOrder(ctx context.Context, items []Item, addr ShippingAddress) (*Order, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: order must contain at least one item", ErrInvalidOrder)
	}

	subtotal := 0.0
	for i := range items {
		item := &items[i]
		if item.ProductID == uuid.Nil {
			return nil, fmt.Errorf("%w: product id in order item cannot be nil", ErrInvalidOrder)
		}
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity for product %s must be greater than zero", ErrInvalidOrder, item.ProductID)
		}
		if item.UnitPrice < 0 {
			return nil, fmt.Errorf("%w: price for product %s cannot be negative", ErrInvalidOrder, item.ProductID)
		}
		subtotal += float64(item.Quantity) * item.UnitPrice
	}

	if addr.FullName == "" || addr.Line1 == "" || addr.City == "" || addr.Country == "" {
		return nil, fmt.Errorf("%w: shipping address is incomplete", ErrInvalidOrder)
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("service: failed to generate order ID: %w", err)
	}

	o := &Order{
		ID:              id,
		Items:           items,
		ShippingAddress: addr,
		Status:          StatusPending,
		Totals: Totals{
			Subtotal:       subtotal,
			ShippingFee:    s.fees.Shipping,
			CertificateFee: s.fees.Certificate,
			GrandTotal:     subtotal + s.fees.Shipping + s.fees.Certificate,
		},
	}

	if err := s.store.Create(ctx, o); err != nil {
		if errors.Is(err, ErrDuplicateOrderID) {
			return nil, ErrDuplicateOrderID
		}
		log.Error().Err(err).Stringer("order_id", id).Msg("service: failed to create order")
		return nil, fmt.Errorf("service: failed to create order: %w", err)
	}

	log.Info().Stringer("order_id", o.ID).Float64("grand_total", o.Totals.GrandTotal).Msg("service: order created")
	return o, nil
}

func (s *service) GetOrder(ctx context.Context, id uuid.UUID) (*Order, error) {
	o, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("service: failed to fetch order: %w", err)
	}
	return o, nil
}
