package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront/internal/domain/customer"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/handler"
	"github.com/xenking/storefront/internal/repository/memory"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()

	store := memory.NewStore()
	customers := memory.NewCustomerRepository(store)
	products := memory.NewProductRepository(store)
	require.NoError(t, products.Upsert(context.Background(),
		product.Product{ID: "P1", Name: "Notebook", Price: decimal.RequireFromString("10"), Quantity: 5},
	))

	h, err := handler.New(
		customer.NewService(customers),
		order.NewService(memory.NewOrderRepository(store), products, customers, memory.NewTransactor(store)),
		products,
		handler.Options{},
	)
	require.NoError(t, err)

	srv := httptest.NewServer(handler.NewEngine(h, "storefront-test", nil))
	t.Cleanup(srv.Close)
	return srv
}

func TestClientRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := New(newServer(t).URL)

	products, err := c.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "10.00", products[0].Price)

	cust, err := c.CreateCustomer(ctx, "Ana", "ana@example.com")
	require.NoError(t, err)

	got, err := c.GetCustomer(ctx, cust.ID)
	require.NoError(t, err)
	assert.Equal(t, cust.Email, got.Email)

	o, err := c.CreateOrder(ctx, cust.ID, []OrderProduct{{ID: "P1", Quantity: 3}})
	require.NoError(t, err)
	assert.Equal(t, "30.00", o.Total)
	require.Len(t, o.OrderProducts, 1)
	assert.Equal(t, "10.00", o.OrderProducts[0].Price)

	fetched, err := c.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.ID, fetched.ID)
	require.NotNil(t, fetched.Customer)
	assert.Equal(t, cust.ID, fetched.Customer.ID)
}

func TestClientErrors(t *testing.T) {
	ctx := context.Background()
	c := New(newServer(t).URL)

	cust, err := c.CreateCustomer(ctx, "Ana", "ana@example.com")
	require.NoError(t, err)

	_, err = c.CreateCustomer(ctx, "Ana", "ana@example.com")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "e-mail is already in use", apiErr.Message)

	_, err = c.CreateOrder(ctx, cust.ID, []OrderProduct{{ID: "P1", Quantity: 6}})
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Contains(t, apiErr.Message, "P1")

	_, err = c.GetOrder(ctx, "missing")
	assert.True(t, IsNotFound(err))
}

func TestClientRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))
	t.Cleanup(srv.Close)

	products, err := New(srv.URL, WithRetries(3)).ListProducts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, products)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClientDoesNotRetryPost(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	_, err := New(srv.URL, WithRetries(3)).CreateCustomer(context.Background(), "Ana", "ana@example.com")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, http.StatusText(http.StatusBadGateway), apiErr.Message)
	assert.Equal(t, int32(1), calls.Load())
}
