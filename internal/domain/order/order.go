package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/customer"
)

// Order is a customer's purchase of one or more catalog products.
type Order struct {
	ID         string
	CustomerID string
	Customer   *customer.Customer
	OrderedAt  time.Time
	Items      []LineItem
}

// LineItem is one product-quantity-price tuple. Price is the catalog price
// captured when the order was placed.
type LineItem struct {
	ID        string
	ProductID string
	Quantity  int
	Price     decimal.Decimal
}

// Total returns the sum of price*quantity over all line items.
func (o *Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range o.Items {
		total = total.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total.Round(2)
}

// NewOrder holds the validated data needed to persist an order.
type NewOrder struct {
	Customer *customer.Customer
	Items    []NewLineItem
}

// NewLineItem is a validated line item awaiting persistence.
type NewLineItem struct {
	ProductID string
	Quantity  int
	Price     decimal.Decimal
}

// Repository defines persistence operations for orders.
type Repository interface {
	Create(ctx context.Context, o NewOrder) (*Order, error)
	FindByID(ctx context.Context, id string) (*Order, error)
}
