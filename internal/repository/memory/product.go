package memory

import (
	"cmp"
	"context"
	"slices"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/domain/product"
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository in memory.
type ProductRepository struct {
	s *Store
}

// NewProductRepository returns a ProductRepository backed by s.
func NewProductRepository(s *Store) *ProductRepository {
	return &ProductRepository{s: s}
}

// List returns all products ordered by id.
func (r *ProductRepository) List(_ context.Context) ([]product.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]product.Product, 0, len(r.s.products))
	for _, p := range r.s.products {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b product.Product) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

// GetByID returns a single product or product.ErrNotFound.
func (r *ProductRepository) GetByID(_ context.Context, id string) (*product.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.products[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

// FindAllByID returns the products matching ids; unknown ids are skipped.
func (r *ProductRepository) FindAllByID(_ context.Context, ids []string) ([]product.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]product.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := r.s.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// UpdateQuantity sets absolute quantities. Either every update applies or,
// if any id is unknown, none does.
func (r *ProductRepository) UpdateQuantity(ctx context.Context, updates []product.QuantityUpdate) error {
	return r.s.write(ctx, func() error {
		for _, u := range updates {
			if _, ok := r.s.products[u.ID]; !ok {
				return errors.Wrapf(product.ErrNotFound, "update quantity of %s", u.ID)
			}
		}
		for _, u := range updates {
			p := r.s.products[u.ID]
			p.Quantity = u.Quantity
			r.s.products[u.ID] = p
		}
		return nil
	})
}

// Upsert inserts or replaces catalog entries. Used to seed the store.
func (r *ProductRepository) Upsert(ctx context.Context, products ...product.Product) error {
	return r.s.write(ctx, func() error {
		for _, p := range products {
			r.s.products[p.ID] = p
		}
		return nil
	})
}
