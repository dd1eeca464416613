package product

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/apperr"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = apperr.NotFound("product not found")

// Product represents a catalog item and its available stock.
type Product struct {
	ID       string
	Name     string
	Price    decimal.Decimal
	Quantity int
}

// QuantityUpdate sets the absolute available quantity of a product.
type QuantityUpdate struct {
	ID       string
	Quantity int
}

// Repository defines catalog operations used by the order flow and the
// read-only catalog view.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	// FindAllByID returns the products matching ids in a single lookup.
	// Unknown ids are absent from the result.
	FindAllByID(ctx context.Context, ids []string) ([]Product, error)
	UpdateQuantity(ctx context.Context, updates []QuantityUpdate) error
}
