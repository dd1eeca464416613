package memory

import (
	"context"

	"github.com/google/uuid"

	"github.com/xenking/storefront/internal/domain/customer"
)

var _ customer.Repository = (*CustomerRepository)(nil)

// CustomerRepository implements customer.Repository in memory.
type CustomerRepository struct {
	s *Store
}

// NewCustomerRepository returns a CustomerRepository backed by s.
func NewCustomerRepository(s *Store) *CustomerRepository {
	return &CustomerRepository{s: s}
}

// FindByEmail returns the customer owning email or customer.ErrNotFound.
func (r *CustomerRepository) FindByEmail(_ context.Context, email string) (*customer.Customer, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	id, ok := r.s.emails[email]
	if !ok {
		return nil, customer.ErrNotFound
	}
	c := r.s.customers[id]
	return &c, nil
}

// FindByID returns the customer with the given id or customer.ErrNotFound.
func (r *CustomerRepository) FindByID(_ context.Context, id string) (*customer.Customer, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.customers[id]
	if !ok {
		return nil, customer.ErrNotFound
	}
	return &c, nil
}

// Create stores a new customer. The e-mail index acts as the uniqueness
// constraint.
func (r *CustomerRepository) Create(ctx context.Context, nc customer.NewCustomer) (*customer.Customer, error) {
	var c customer.Customer
	err := r.s.write(ctx, func() error {
		if _, taken := r.s.emails[nc.Email]; taken {
			return customer.ErrEmailInUse
		}
		c = customer.Customer{
			ID:        uuid.NewString(),
			Name:      nc.Name,
			Email:     nc.Email,
			CreatedAt: r.s.now().UTC(),
		}
		r.s.customers[c.ID] = c
		r.s.emails[c.Email] = c.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}
