package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/product"
)

const (
	listProductsSQL = `SELECT id, name, price, quantity FROM products ORDER BY id`

	getProductByIDSQL = `SELECT id, name, price, quantity FROM products WHERE id = $1`

	getProductsByIDsSQL = `SELECT id, name, price, quantity FROM products WHERE id = ANY($1) ORDER BY id`

	updateProductQuantitySQL = `UPDATE products SET quantity = $2, updated_at = now() WHERE id = $1`

	upsertProductSQL = `INSERT INTO products (id, name, price, quantity)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, price = EXCLUDED.price, quantity = EXCLUDED.quantity, updated_at = now()`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns all products from the catalog ordered by ID.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	return &p, nil
}

// FindAllByID returns products matching any of the given IDs. Inside a
// transaction the rows are locked until commit, in id order so concurrent
// orders cannot deadlock.
func (r *ProductRepository) FindAllByID(ctx context.Context, ids []string) ([]product.Product, error) {
	sql := getProductsByIDsSQL
	if inTx(ctx) {
		sql += " FOR UPDATE"
	}
	rows, err := conn(ctx, r.pool).Query(ctx, sql, ids)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// UpdateQuantity writes absolute stock levels in one batch. An update that
// matches no row fails with product.ErrNotFound.
func (r *ProductRepository) UpdateQuantity(ctx context.Context, updates []product.QuantityUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, u := range updates {
		batch.Queue(updateProductQuantitySQL, u.ID, u.Quantity)
	}

	br := conn(ctx, r.pool).SendBatch(ctx, batch)
	defer func() { _ = br.Close() }()

	for _, u := range updates {
		tag, err := br.Exec()
		if err != nil {
			return fmt.Errorf("updating quantity of %q: %w", u.ID, err)
		}
		if tag.RowsAffected() == 0 {
			return errors.Wrapf(product.ErrNotFound, "update quantity of %s", u.ID)
		}
	}
	return br.Close()
}

// Upsert inserts or replaces catalog entries.
func (r *ProductRepository) Upsert(ctx context.Context, products ...product.Product) error {
	if len(products) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, p := range products {
		batch.Queue(upsertProductSQL, p.ID, p.Name, p.Price, p.Quantity)
	}

	br := conn(ctx, r.pool).SendBatch(ctx, batch)
	defer func() { _ = br.Close() }()

	for _, p := range products {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("upserting product %q: %w", p.ID, err)
		}
	}
	return br.Close()
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var p product.Product
	err := row.Scan(&p.ID, &p.Name, &p.Price, &p.Quantity)
	return p, err
}
