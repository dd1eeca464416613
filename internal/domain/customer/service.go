package customer

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
)

// CreateRequest holds the input for registering a customer.
type CreateRequest struct {
	Name  string
	Email string
}

// Service encapsulates customer registration.
type Service struct {
	customers Repository
}

// NewService creates a customer Service backed by the given repository.
func NewService(customers Repository) *Service {
	return &Service{customers: customers}
}

// Create registers a new customer after checking that the e-mail is not
// already taken. Nothing is written when the check fails.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Customer, error) {
	name := strings.TrimSpace(req.Name)
	email := NormalizeEmail(req.Email)
	if name == "" {
		return nil, ErrNameRequired
	}
	if email == "" {
		return nil, ErrEmailRequired
	}

	existing, err := s.customers.FindByEmail(ctx, email)
	switch {
	case err == nil && existing != nil:
		return nil, ErrEmailInUse
	case err != nil && !errors.Is(err, ErrNotFound):
		return nil, errors.Wrap(err, "find customer by email")
	}

	c, err := s.customers.Create(ctx, NewCustomer{Name: name, Email: email})
	if err != nil {
		if errors.Is(err, ErrEmailInUse) {
			return nil, ErrEmailInUse
		}
		return nil, errors.Wrap(err, "create customer")
	}
	return c, nil
}

// Get returns the customer with the given id.
func (s *Service) Get(ctx context.Context, id string) (*Customer, error) {
	c, err := s.customers.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "find customer")
	}
	return c, nil
}

// NormalizeEmail trims and lower-cases an e-mail address so lookups and the
// uniqueness rule are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
