package order

import (
	"context"
	"math"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront/internal/domain/apperr"
	"github.com/xenking/storefront/internal/domain/customer"
	"github.com/xenking/storefront/internal/domain/product"
)

// --- Mock implementations ---

type mockCustomerRepo struct {
	byID map[string]*customer.Customer
	err  error
}

func (m *mockCustomerRepo) FindByEmail(_ context.Context, _ string) (*customer.Customer, error) {
	return nil, customer.ErrNotFound
}

func (m *mockCustomerRepo) FindByID(_ context.Context, id string) (*customer.Customer, error) {
	if m.err != nil {
		return nil, m.err
	}
	c, ok := m.byID[id]
	if !ok {
		return nil, customer.ErrNotFound
	}
	return c, nil
}

func (m *mockCustomerRepo) Create(_ context.Context, _ customer.NewCustomer) (*customer.Customer, error) {
	return nil, errors.New("not implemented")
}

type mockProductRepo struct {
	byID      map[string]*product.Product
	findCalls [][]string
	findErr   error
	updates   [][]product.QuantityUpdate
	updateErr error
}

func (m *mockProductRepo) List(_ context.Context) ([]product.Product, error) {
	return nil, nil
}

func (m *mockProductRepo) GetByID(_ context.Context, id string) (*product.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return p, nil
}

func (m *mockProductRepo) FindAllByID(_ context.Context, ids []string) ([]product.Product, error) {
	m.findCalls = append(m.findCalls, ids)
	if m.findErr != nil {
		return nil, m.findErr
	}
	var out []product.Product
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *mockProductRepo) UpdateQuantity(_ context.Context, updates []product.QuantityUpdate) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.updates = append(m.updates, updates)
	for _, u := range updates {
		m.byID[u.ID].Quantity = u.Quantity
	}
	return nil
}

type mockOrderRepo struct {
	created []NewOrder
	byID    map[string]*Order
	err     error
}

func (m *mockOrderRepo) Create(_ context.Context, o NewOrder) (*Order, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.created = append(m.created, o)
	items := make([]LineItem, len(o.Items))
	for i, it := range o.Items {
		items[i] = LineItem{ID: "li", ProductID: it.ProductID, Quantity: it.Quantity, Price: it.Price}
	}
	return &Order{ID: "o1", CustomerID: o.Customer.ID, Customer: o.Customer, Items: items}, nil
}

func (m *mockOrderRepo) FindByID(_ context.Context, id string) (*Order, error) {
	o, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return o, nil
}

type mockTransactor struct {
	calls int
}

func (m *mockTransactor) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	return fn(ctx)
}

// --- Helpers ---

type fixture struct {
	customers *mockCustomerRepo
	products  *mockProductRepo
	orders    *mockOrderRepo
	tx        *mockTransactor
	svc       *Service
}

func newFixture(products ...product.Product) *fixture {
	byID := make(map[string]*product.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}
	f := &fixture{
		customers: &mockCustomerRepo{byID: map[string]*customer.Customer{
			"c1": {ID: "c1", Name: "Ada", Email: "ada@example.com"},
		}},
		products: &mockProductRepo{byID: byID},
		orders:   &mockOrderRepo{},
		tx:       &mockTransactor{},
	}
	f.svc = NewService(f.orders, f.products, f.customers, f.tx)
	return f
}

func (f *fixture) assertNoWrites(t *testing.T) {
	t.Helper()
	assert.Empty(t, f.orders.created, "no order must be written")
	assert.Empty(t, f.products.updates, "no stock must be written")
}

func newTestProduct(id string, price string, qty int) product.Product {
	return product.Product{
		ID:       id,
		Name:     "Product " + id,
		Price:    decimal.RequireFromString(price),
		Quantity: qty,
	}
}

// --- Tests ---

func TestCreate_Success(t *testing.T) {
	f := newFixture(newTestProduct("P1", "10.00", 5))

	o, err := f.svc.Create(context.Background(), CreateRequest{
		CustomerID: "c1",
		Products:   []RequestedProduct{{ID: "P1", Quantity: 3}},
	})
	require.NoError(t, err)
	require.Len(t, o.Items, 1)
	assert.Equal(t, "P1", o.Items[0].ProductID)
	assert.Equal(t, 3, o.Items[0].Quantity)
	assert.Equal(t, "10.00", o.Items[0].Price.StringFixed(2))
	assert.Equal(t, "c1", o.Customer.ID)
	assert.Equal(t, 2, f.products.byID["P1"].Quantity)
	assert.Equal(t, 1, f.tx.calls)
	require.Len(t, f.products.findCalls, 1, "products are fetched in one batch")
}

func TestCreate_MultipleProducts(t *testing.T) {
	f := newFixture(
		newTestProduct("P1", "10.00", 5),
		newTestProduct("P2", "2.499", 10),
	)

	o, err := f.svc.Create(context.Background(), CreateRequest{
		CustomerID: "c1",
		Products: []RequestedProduct{
			{ID: "P2", Quantity: 4},
			{ID: "P1", Quantity: 1},
		},
	})
	require.NoError(t, err)
	require.Len(t, o.Items, 2)
	assert.Equal(t, "P2", o.Items[0].ProductID, "input order is preserved")
	assert.Equal(t, "2.50", o.Items[0].Price.StringFixed(2))
	assert.True(t, decimal.RequireFromString("20.00").Equal(o.Total()))

	require.Len(t, f.products.updates, 1)
	assert.Equal(t, []product.QuantityUpdate{
		{ID: "P2", Quantity: 6},
		{ID: "P1", Quantity: 4},
	}, f.products.updates[0])
}

func TestCreate_DuplicateProductsAreMerged(t *testing.T) {
	f := newFixture(newTestProduct("P1", "10.00", 5))

	o, err := f.svc.Create(context.Background(), CreateRequest{
		CustomerID: "c1",
		Products: []RequestedProduct{
			{ID: "P1", Quantity: 2},
			{ID: "P1", Quantity: 2},
		},
	})
	require.NoError(t, err)
	require.Len(t, o.Items, 1)
	assert.Equal(t, 4, o.Items[0].Quantity)
	assert.Equal(t, 1, f.products.byID["P1"].Quantity)
}

func TestCreate_DuplicateProductsExceedStock(t *testing.T) {
	f := newFixture(newTestProduct("P1", "10.00", 5))

	_, err := f.svc.Create(context.Background(), CreateRequest{
		CustomerID: "c1",
		Products: []RequestedProduct{
			{ID: "P1", Quantity: 3},
			{ID: "P1", Quantity: 3},
		},
	})
	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 6, stockErr.Requested)
	f.assertNoWrites(t)
}

func TestCreate_DuplicateProductsSaturate(t *testing.T) {
	f := newFixture(newTestProduct("P1", "10.00", 5))

	_, err := f.svc.Create(context.Background(), CreateRequest{
		CustomerID: "c1",
		Products: []RequestedProduct{
			{ID: "P1", Quantity: math.MaxInt},
			{ID: "P1", Quantity: math.MaxInt},
		},
	})
	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, math.MaxInt, stockErr.Requested)
	assert.Equal(t, 5, stockErr.Available)
	assert.Equal(t, 5, f.products.byID["P1"].Quantity)
	f.assertNoWrites(t)
}

func TestCreate_UnknownCustomerBeforeRequestShape(t *testing.T) {
	f := newFixture(newTestProduct("P1", "10.00", 5))

	for _, products := range [][]RequestedProduct{
		nil,
		{{ID: "P1", Quantity: 0}},
	} {
		_, err := f.svc.Create(context.Background(), CreateRequest{CustomerID: "nobody", Products: products})
		require.ErrorIs(t, err, ErrCustomerNotFound)
		assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	}
	f.assertNoWrites(t)
}

func TestCreate_UnknownCustomer(t *testing.T) {
	f := newFixture(newTestProduct("P1", "10.00", 5))

	_, err := f.svc.Create(context.Background(), CreateRequest{
		CustomerID: "nobody",
		Products:   []RequestedProduct{{ID: "P1", Quantity: 1}},
	})
	require.ErrorIs(t, err, ErrCustomerNotFound)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Empty(t, f.products.findCalls, "no catalog read after a missing customer")
	assert.Zero(t, f.tx.calls)
	f.assertNoWrites(t)
}

func TestCreate_UnknownProduct(t *testing.T) {
	f := newFixture(newTestProduct("P1", "10.00", 5))

	_, err := f.svc.Create(context.Background(), CreateRequest{
		CustomerID: "c1",
		Products: []RequestedProduct{
			{ID: "P1", Quantity: 1},
			{ID: "missing", Quantity: 1},
		},
	})
	var pnfErr *ProductNotFoundError
	require.ErrorAs(t, err, &pnfErr)
	assert.Equal(t, "missing", pnfErr.ProductID)
	assert.Contains(t, err.Error(), "missing")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Equal(t, 5, f.products.byID["P1"].Quantity)
	f.assertNoWrites(t)
}

func TestCreate_InsufficientStock(t *testing.T) {
	f := newFixture(newTestProduct("P1", "10.00", 5))

	req := CreateRequest{
		CustomerID: "c1",
		Products:   []RequestedProduct{{ID: "P1", Quantity: 6}},
	}

	// A failed attempt leaves no trace, so retrying yields the same error.
	for range 2 {
		_, err := f.svc.Create(context.Background(), req)
		var stockErr *InsufficientStockError
		require.ErrorAs(t, err, &stockErr)
		assert.Equal(t, "P1", stockErr.ProductID)
		assert.Contains(t, err.Error(), "P1")
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		assert.Equal(t, 5, f.products.byID["P1"].Quantity)
		f.assertNoWrites(t)
	}
}

func TestCreate_FailFastOrder(t *testing.T) {
	// The first failing product in request order decides the error.
	f := newFixture(newTestProduct("P1", "10.00", 1))

	_, err := f.svc.Create(context.Background(), CreateRequest{
		CustomerID: "c1",
		Products: []RequestedProduct{
			{ID: "P1", Quantity: 2},
			{ID: "missing", Quantity: 1},
		},
	})
	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	f.assertNoWrites(t)
}

func TestCreate_RequestValidation(t *testing.T) {
	tests := []struct {
		name     string
		products []RequestedProduct
		check    func(t *testing.T, err error)
	}{
		{
			name:     "empty products",
			products: nil,
			check: func(t *testing.T, err error) {
				require.ErrorIs(t, err, ErrEmptyProducts)
			},
		},
		{
			name:     "zero quantity",
			products: []RequestedProduct{{ID: "P1", Quantity: 0}},
			check: func(t *testing.T, err error) {
				var iqErr *InvalidQuantityError
				require.ErrorAs(t, err, &iqErr)
				assert.Equal(t, "P1", iqErr.ProductID)
			},
		},
		{
			name:     "negative quantity",
			products: []RequestedProduct{{ID: "P1", Quantity: -3}},
			check: func(t *testing.T, err error) {
				var iqErr *InvalidQuantityError
				require.ErrorAs(t, err, &iqErr)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(newTestProduct("P1", "10.00", 5))
			_, err := f.svc.Create(context.Background(), CreateRequest{CustomerID: "c1", Products: tt.products})
			tt.check(t, err)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
			f.assertNoWrites(t)
		})
	}
}

func TestCreate_OrderCreateError(t *testing.T) {
	f := newFixture(newTestProduct("P1", "10.00", 5))
	f.orders.err = errors.New("db write failed")

	_, err := f.svc.Create(context.Background(), CreateRequest{
		CustomerID: "c1",
		Products:   []RequestedProduct{{ID: "P1", Quantity: 1}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create order")
	assert.Empty(t, f.products.updates, "stock is not touched when the order write fails")
}

func TestCreate_UpdateQuantityError(t *testing.T) {
	f := newFixture(newTestProduct("P1", "10.00", 5))
	f.products.updateErr = errors.New("db write failed")

	_, err := f.svc.Create(context.Background(), CreateRequest{
		CustomerID: "c1",
		Products:   []RequestedProduct{{ID: "P1", Quantity: 1}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "update product quantities")
	assert.Equal(t, apperr.KindUnknown, apperr.KindOf(err))
}

func TestCreate_CustomerLookupError(t *testing.T) {
	f := newFixture(newTestProduct("P1", "10.00", 5))
	f.customers.err = errors.New("timeout")

	_, err := f.svc.Create(context.Background(), CreateRequest{
		CustomerID: "c1",
		Products:   []RequestedProduct{{ID: "P1", Quantity: 1}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "find customer")
	assert.NotErrorIs(t, err, ErrCustomerNotFound)
}

func TestGet(t *testing.T) {
	f := newFixture()
	f.orders.byID = map[string]*Order{"o1": {ID: "o1", CustomerID: "c1"}}

	o, err := f.svc.Get(context.Background(), "o1")
	require.NoError(t, err)
	assert.Equal(t, "c1", o.CustomerID)

	_, err = f.svc.Get(context.Background(), "o2")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestOrderTotal(t *testing.T) {
	o := &Order{Items: []LineItem{
		{ProductID: "a", Quantity: 2, Price: decimal.RequireFromString("6.50")},
		{ProductID: "b", Quantity: 1, Price: decimal.RequireFromString("7.00")},
	}}
	assert.Equal(t, "20.00", o.Total().StringFixed(2))
}
