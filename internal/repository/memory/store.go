// Package memory provides in-memory repositories for local development and
// tests. All repositories created from one Store share its state.
package memory

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/xenking/storefront/internal/domain/customer"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/domain/txn"
)

// Store holds the shared in-memory state.
type Store struct {
	// txMu serialises units of work and standalone writes so a rollback never
	// discards a write made outside the failed transaction.
	txMu sync.Mutex

	mu        sync.RWMutex
	customers map[string]customer.Customer
	emails    map[string]string // email -> customer id
	products  map[string]product.Product
	orders    map[string]order.Order

	now func() time.Time
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		customers: make(map[string]customer.Customer),
		emails:    make(map[string]string),
		products:  make(map[string]product.Product),
		orders:    make(map[string]order.Order),
		now:       time.Now,
	}
}

type txKey struct{}

type snapshot struct {
	customers map[string]customer.Customer
	emails    map[string]string
	products  map[string]product.Product
	orders    map[string]order.Order
}

func (s *Store) snapshot() snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshot{
		customers: maps.Clone(s.customers),
		emails:    maps.Clone(s.emails),
		products:  maps.Clone(s.products),
		orders:    maps.Clone(s.orders),
	}
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customers = snap.customers
	s.emails = snap.emails
	s.products = snap.products
	s.orders = snap.orders
}

// write runs fn under the store write lock, taking txMu first unless ctx
// already belongs to a unit of work.
func (s *Store) write(ctx context.Context, fn func() error) error {
	if ctx.Value(txKey{}) == nil {
		s.txMu.Lock()
		defer s.txMu.Unlock()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}

var _ txn.Transactor = (*Transactor)(nil)

// Transactor runs units of work one at a time and rolls the whole store back
// when fn fails.
type Transactor struct {
	s *Store
}

// NewTransactor returns a Transactor over s.
func NewTransactor(s *Store) *Transactor {
	return &Transactor{s: s}
}

// InTx implements txn.Transactor.
func (t *Transactor) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	t.s.txMu.Lock()
	defer t.s.txMu.Unlock()

	snap := t.s.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		t.s.restore(snap)
		return err
	}
	return nil
}
