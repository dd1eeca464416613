package customer

import (
	"context"
	"time"

	"github.com/xenking/storefront/internal/domain/apperr"
)

var (
	// ErrNotFound is returned when a requested customer does not exist.
	ErrNotFound = apperr.NotFound("customer not found")
	// ErrEmailInUse is returned when another customer already owns the e-mail.
	ErrEmailInUse = apperr.Conflict("e-mail is already in use")
	// ErrNameRequired is returned for a blank customer name.
	ErrNameRequired = apperr.Validation("name is required")
	// ErrEmailRequired is returned for a blank e-mail.
	ErrEmailRequired = apperr.Validation("e-mail is required")
)

// Customer is a registered buyer. E-mails are unique across customers.
type Customer struct {
	ID        string
	Name      string
	Email     string
	CreatedAt time.Time
}

// NewCustomer holds the fields required to create a customer.
type NewCustomer struct {
	Name  string
	Email string
}

// Repository defines persistence operations for customers.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*Customer, error)
	FindByID(ctx context.Context, id string) (*Customer, error)
	// Create stores a new customer. Implementations backed by a store with a
	// uniqueness constraint return ErrEmailInUse on violation.
	Create(ctx context.Context, c NewCustomer) (*Customer, error)
}
