// Package client is a Go client for the storefront HTTP API.
package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-resty/resty/v2"
)

// APIError is returned for every non-2xx response.
type APIError struct {
	Status  int    `json:"-"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("storefront: %d: %s", e.Status, e.Message)
}

// IsNotFound reports whether err is a 404 APIError.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// Customer is a registered customer.
type Customer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Product is a catalog entry. Price is a decimal string with two places.
type Product struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    string `json:"price"`
	Quantity int    `json:"quantity"`
}

// OrderProduct is one requested product.
type OrderProduct struct {
	ID       string `json:"id"`
	Quantity int    `json:"quantity"`
}

// LineItem is a product line of a placed order.
type LineItem struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Price     string `json:"price"`
}

// Order is a placed order.
type Order struct {
	ID            string     `json:"id"`
	Customer      *Customer  `json:"customer"`
	OrderedAt     time.Time  `json:"ordered_at"`
	Total         string     `json:"total"`
	OrderProducts []LineItem `json:"order_products"`
}

// Client calls the storefront API.
type Client struct {
	http *resty.Client
}

// Option configures a Client.
type Option func(*resty.Client)

// WithHTTPClient replaces the underlying transport client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *resty.Client) {
		if hc.Transport != nil {
			c.SetTransport(hc.Transport)
		}
		c.SetTimeout(hc.Timeout)
	}
}

// WithRetries retries idempotent requests up to n times on transport errors
// and 5xx responses.
func WithRetries(n int) Option {
	return func(c *resty.Client) {
		c.SetRetryCount(n).
			SetRetryWaitTime(100 * time.Millisecond).
			SetRetryMaxWaitTime(2 * time.Second).
			AddRetryCondition(func(r *resty.Response, err error) bool {
				if r == nil || r.Request == nil {
					return err != nil
				}
				if r.Request.Method == http.MethodPost {
					return false
				}
				return err != nil || r.StatusCode() >= http.StatusInternalServerError
			})
	}
}

// New returns a Client for the API rooted at baseURL, e.g.
// "http://localhost:8080".
func New(baseURL string, opts ...Option) *Client {
	rc := resty.New().
		SetBaseURL(baseURL+"/api").
		SetTimeout(10*time.Second).
		SetHeader("Accept", "application/json")
	for _, o := range opts {
		o(rc)
	}
	return &Client{http: rc}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var apiErr APIError
	req := c.http.R().
		SetContext(ctx).
		SetResult(out).
		SetError(&apiErr)
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	if resp.IsError() {
		apiErr.Status = resp.StatusCode()
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode())
		}
		return &apiErr
	}
	return nil
}

// CreateCustomer registers a customer.
func (c *Client) CreateCustomer(ctx context.Context, name, email string) (*Customer, error) {
	var out Customer
	body := map[string]string{"name": name, "email": email}
	if err := c.do(ctx, http.MethodPost, "/customers", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetCustomer fetches a customer by id.
func (c *Client) GetCustomer(ctx context.Context, id string) (*Customer, error) {
	var out Customer
	if err := c.do(ctx, http.MethodGet, "/customers/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateOrder places an order for customerID.
func (c *Client) CreateOrder(ctx context.Context, customerID string, products []OrderProduct) (*Order, error) {
	var out Order
	body := struct {
		CustomerID string         `json:"customer_id"`
		Products   []OrderProduct `json:"products"`
	}{customerID, products}
	if err := c.do(ctx, http.MethodPost, "/orders", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetOrder fetches an order by id.
func (c *Client) GetOrder(ctx context.Context, id string) (*Order, error) {
	var out Order
	if err := c.do(ctx, http.MethodGet, "/orders/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListProducts returns the catalog.
func (c *Client) ListProducts(ctx context.Context) ([]Product, error) {
	var out []Product
	if err := c.do(ctx, http.MethodGet, "/products", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
