package memory

import (
	"context"
	"slices"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/xenking/storefront/internal/domain/order"
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository in memory.
type OrderRepository struct {
	s *Store
}

// NewOrderRepository returns an OrderRepository backed by s.
func NewOrderRepository(s *Store) *OrderRepository {
	return &OrderRepository{s: s}
}

// Create stores a new order with freshly assigned ids.
func (r *OrderRepository) Create(ctx context.Context, no order.NewOrder) (*order.Order, error) {
	if no.Customer == nil {
		return nil, errors.New("order customer is required")
	}

	o := order.Order{
		ID:         uuid.NewString(),
		CustomerID: no.Customer.ID,
		OrderedAt:  r.s.now().UTC(),
		Items:      make([]order.LineItem, len(no.Items)),
	}
	for i, it := range no.Items {
		o.Items[i] = order.LineItem{
			ID:        uuid.NewString(),
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     it.Price.Round(2),
		}
	}

	if err := r.s.write(ctx, func() error {
		if _, ok := r.s.customers[o.CustomerID]; !ok {
			return errors.Errorf("customer %s does not exist", o.CustomerID)
		}
		r.s.orders[o.ID] = o
		return nil
	}); err != nil {
		return nil, err
	}

	c := *no.Customer
	o.Customer = &c
	o.Items = slices.Clone(o.Items)
	return &o, nil
}

// FindByID returns the order with its customer, or order.ErrNotFound.
func (r *OrderRepository) FindByID(_ context.Context, id string) (*order.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	o, ok := r.s.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	o.Items = slices.Clone(o.Items)
	if c, ok := r.s.customers[o.CustomerID]; ok {
		o.Customer = &c
	}
	return &o, nil
}
