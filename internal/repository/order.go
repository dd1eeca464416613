package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/customer"
	"github.com/xenking/storefront/internal/domain/order"
)

const (
	createOrderSQL = `INSERT INTO orders (id, customer_id, created_at) VALUES ($1, $2, $3)`

	createOrderProductSQL = `INSERT INTO orders_products (id, order_id, product_id, position, quantity, price)
		VALUES ($1, $2, $3, $4, $5, $6)`

	findOrderSQL = `SELECT o.id, o.created_at, c.id, c.name, c.email, c.created_at
		FROM orders o JOIN customers c ON c.id = o.customer_id
		WHERE o.id = $1`

	findOrderProductsSQL = `SELECT id, product_id, quantity, price
		FROM orders_products WHERE order_id = $1 ORDER BY position`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order and its line items. Callers that need the two
// inserts to be atomic run Create inside Transactor.InTx.
func (r *OrderRepository) Create(ctx context.Context, no order.NewOrder) (*order.Order, error) {
	if no.Customer == nil {
		return nil, errors.New("order customer is required")
	}

	c := *no.Customer
	o := &order.Order{
		ID:         uuid.NewString(),
		CustomerID: c.ID,
		Customer:   &c,
		OrderedAt:  time.Now().UTC().Truncate(time.Microsecond),
		Items:      make([]order.LineItem, len(no.Items)),
	}

	batch := &pgx.Batch{}
	batch.Queue(createOrderSQL, o.ID, o.CustomerID, o.OrderedAt)
	for i, it := range no.Items {
		o.Items[i] = order.LineItem{
			ID:        uuid.NewString(),
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     it.Price.Round(2),
		}
		li := o.Items[i]
		batch.Queue(createOrderProductSQL, li.ID, o.ID, li.ProductID, i, li.Quantity, li.Price)
	}

	br := conn(ctx, r.pool).SendBatch(ctx, batch)
	defer func() { _ = br.Close() }()

	if _, err := br.Exec(); err != nil {
		return nil, fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	for _, li := range o.Items {
		if _, err := br.Exec(); err != nil {
			return nil, fmt.Errorf("creating line item for %q: %w", li.ProductID, err)
		}
	}
	if err := br.Close(); err != nil {
		return nil, fmt.Errorf("creating order %q: %w", o.ID, err)
	}

	return o, nil
}

// FindByID loads an order with its customer and line items.
func (r *OrderRepository) FindByID(ctx context.Context, id string) (*order.Order, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, order.ErrNotFound
	}

	q := conn(ctx, r.pool)

	var (
		o order.Order
		c customer.Customer
	)
	err := q.QueryRow(ctx, findOrderSQL, id).Scan(
		&o.ID, &o.OrderedAt, &c.ID, &c.Name, &c.Email, &c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	o.OrderedAt = o.OrderedAt.UTC()
	c.CreatedAt = c.CreatedAt.UTC()
	o.CustomerID = c.ID
	o.Customer = &c

	rows, err := q.Query(ctx, findOrderProductsSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting line items of %q: %w", id, err)
	}
	o.Items, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (order.LineItem, error) {
		var li order.LineItem
		err := row.Scan(&li.ID, &li.ProductID, &li.Quantity, &li.Price)
		return li, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning line items of %q: %w", id, err)
	}

	return &o, nil
}
