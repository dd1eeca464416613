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
)

const (
	findCustomerByEmailSQL = `SELECT id, name, email, created_at FROM customers WHERE email = $1`

	findCustomerByIDSQL = `SELECT id, name, email, created_at FROM customers WHERE id = $1`

	createCustomerSQL = `INSERT INTO customers (id, name, email, created_at)
		VALUES ($1, $2, $3, $4)`

	customersEmailKey = "customers_email_key"
)

var _ customer.Repository = (*CustomerRepository)(nil)

// CustomerRepository implements customer.Repository backed by PostgreSQL.
type CustomerRepository struct {
	pool *pgxpool.Pool
}

// NewCustomerRepository returns a CustomerRepository that uses the given pool.
func NewCustomerRepository(pool *pgxpool.Pool) *CustomerRepository {
	return &CustomerRepository{pool: pool}
}

// FindByEmail returns the customer with the given e-mail.
func (r *CustomerRepository) FindByEmail(ctx context.Context, email string) (*customer.Customer, error) {
	return r.findOne(ctx, findCustomerByEmailSQL, email)
}

// FindByID returns the customer with the given id.
func (r *CustomerRepository) FindByID(ctx context.Context, id string) (*customer.Customer, error) {
	if _, err := uuid.Parse(id); err != nil {
		// Not a UUID, so it cannot match the primary key.
		return nil, customer.ErrNotFound
	}
	return r.findOne(ctx, findCustomerByIDSQL, id)
}

func (r *CustomerRepository) findOne(ctx context.Context, sql string, arg string) (*customer.Customer, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, sql, arg)
	if err != nil {
		return nil, fmt.Errorf("querying customer: %w", err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCustomer)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, customer.ErrNotFound
		}
		return nil, fmt.Errorf("scanning customer: %w", err)
	}
	return &c, nil
}

// Create inserts a new customer. A violation of the e-mail unique constraint
// is reported as customer.ErrEmailInUse.
func (r *CustomerRepository) Create(ctx context.Context, nc customer.NewCustomer) (*customer.Customer, error) {
	c := customer.Customer{
		ID:        uuid.NewString(),
		Name:      nc.Name,
		Email:     nc.Email,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}

	if _, err := conn(ctx, r.pool).Exec(ctx, createCustomerSQL, c.ID, c.Name, c.Email, c.CreatedAt); err != nil {
		if isUniqueViolation(err, customersEmailKey) {
			return nil, customer.ErrEmailInUse
		}
		return nil, fmt.Errorf("creating customer: %w", err)
	}
	return &c, nil
}

func scanCustomer(row pgx.CollectableRow) (customer.Customer, error) {
	var c customer.Customer
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.CreatedAt)
	c.CreatedAt = c.CreatedAt.UTC()
	return c, err
}
