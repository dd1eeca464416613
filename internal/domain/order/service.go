package order

import (
	"context"
	"fmt"
	"math"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/domain/apperr"
	"github.com/xenking/storefront/internal/domain/customer"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/domain/txn"
)

// Sentinel errors for order placement and lookup.
var (
	ErrEmptyProducts    = apperr.Validation("products required")
	ErrCustomerNotFound = apperr.NotFound("customer does not exist")
	ErrNotFound         = apperr.NotFound("order not found")
)

// ProductNotFoundError indicates a requested product is not in the catalog.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product with id '%s' does not exist", e.ProductID)
}

// ErrKind classifies the error as not found.
func (e *ProductNotFoundError) ErrKind() apperr.Kind { return apperr.KindNotFound }

// InsufficientStockError indicates the requested quantity exceeds the
// available stock of a product.
type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("product with id '%s' has insufficient quantity (requested %d, available %d)",
		e.ProductID, e.Requested, e.Available)
}

// ErrKind classifies the error as a validation failure.
func (e *InsufficientStockError) ErrKind() apperr.Kind { return apperr.KindValidation }

// InvalidQuantityError indicates a requested product has a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// ErrKind classifies the error as a validation failure.
func (e *InvalidQuantityError) ErrKind() apperr.Kind { return apperr.KindValidation }

// RequestedProduct is one product id and quantity in an order request.
type RequestedProduct struct {
	ID       string
	Quantity int
}

// CreateRequest holds the input for placing an order.
type CreateRequest struct {
	CustomerID string
	Products   []RequestedProduct
}

// Service encapsulates order placement business logic.
type Service struct {
	orders    Repository
	products  product.Repository
	customers customer.Repository
	tx        txn.Transactor
}

// NewService creates an order Service. A nil transactor runs the catalog
// read and both writes without a surrounding transaction.
func NewService(
	orders Repository,
	products product.Repository,
	customers customer.Repository,
	tx txn.Transactor,
) *Service {
	if tx == nil {
		tx = txn.Nop{}
	}
	return &Service{
		orders:    orders,
		products:  products,
		customers: customers,
		tx:        tx,
	}
}

// lineItem is a validated line item with the stock level it leaves behind.
type lineItem struct {
	NewLineItem
	updatedQuantity int
}

// Create validates the customer and every requested product against the
// catalog, persists the order and decrements stock. Validation is fail-fast
// and performs no writes; the catalog read and both writes share one
// transaction.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Order, error) {
	c, err := s.customers.FindByID(ctx, req.CustomerID)
	if err != nil {
		if errors.Is(err, customer.ErrNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, errors.Wrap(err, "find customer")
	}

	requested, err := mergeRequested(req.Products)
	if err != nil {
		return nil, err
	}

	var created *Order
	if err := s.tx.InTx(ctx, func(ctx context.Context) error {
		ids := make([]string, len(requested))
		for i, p := range requested {
			ids[i] = p.ID
		}

		// Batch fetch all products in a single query.
		fetched, err := s.products.FindAllByID(ctx, ids)
		if err != nil {
			return errors.Wrap(err, "find products")
		}

		items, err := buildLineItems(requested, fetched)
		if err != nil {
			return err
		}

		newItems := make([]NewLineItem, len(items))
		updates := make([]product.QuantityUpdate, len(items))
		for i, it := range items {
			newItems[i] = it.NewLineItem
			updates[i] = product.QuantityUpdate{ID: it.ProductID, Quantity: it.updatedQuantity}
		}

		o, err := s.orders.Create(ctx, NewOrder{Customer: c, Items: newItems})
		if err != nil {
			return errors.Wrap(err, "create order")
		}
		if err := s.products.UpdateQuantity(ctx, updates); err != nil {
			return errors.Wrap(err, "update product quantities")
		}

		created = o
		return nil
	}); err != nil {
		return nil, err
	}

	return created, nil
}

// Get returns the order with the given id.
func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	o, err := s.orders.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "find order")
	}
	return o, nil
}

// mergeRequested checks quantities and folds repeated product ids into a
// single entry, keeping first-seen order.
func mergeRequested(products []RequestedProduct) ([]RequestedProduct, error) {
	if len(products) == 0 {
		return nil, ErrEmptyProducts
	}

	merged := make([]RequestedProduct, 0, len(products))
	index := make(map[string]int, len(products))
	for _, p := range products {
		if p.Quantity <= 0 {
			return nil, &InvalidQuantityError{ProductID: p.ID}
		}
		if i, ok := index[p.ID]; ok {
			merged[i].Quantity = addQuantity(merged[i].Quantity, p.Quantity)
			continue
		}
		index[p.ID] = len(merged)
		merged = append(merged, p)
	}
	return merged, nil
}

// addQuantity adds two positive quantities, saturating at math.MaxInt so a
// merged line can never wrap below the stock level.
func addQuantity(a, b int) int {
	if a > math.MaxInt-b {
		return math.MaxInt
	}
	return a + b
}

// buildLineItems matches each requested product against the catalog in
// request order and stops at the first failure.
func buildLineItems(requested []RequestedProduct, catalog []product.Product) ([]lineItem, error) {
	byID := make(map[string]product.Product, len(catalog))
	for _, p := range catalog {
		byID[p.ID] = p
	}

	items := make([]lineItem, 0, len(requested))
	for _, r := range requested {
		p, ok := byID[r.ID]
		if !ok {
			return nil, &ProductNotFoundError{ProductID: r.ID}
		}
		if r.Quantity > p.Quantity {
			return nil, &InsufficientStockError{
				ProductID: r.ID,
				Requested: r.Quantity,
				Available: p.Quantity,
			}
		}
		items = append(items, lineItem{
			NewLineItem: NewLineItem{
				ProductID: r.ID,
				Quantity:  r.Quantity,
				Price:     p.Price.Round(2),
			},
			updatedQuantity: p.Quantity - r.Quantity,
		})
	}
	return items, nil
}
