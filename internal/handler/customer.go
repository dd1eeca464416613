package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xenking/storefront/internal/domain/customer"
)

type createCustomerRequest struct {
	Name  string `json:"name" validate:"required,max=200"`
	Email string `json:"email" validate:"required,email,max=320"`
}

type customerResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

func toCustomerResponse(c *customer.Customer) customerResponse {
	return customerResponse{
		ID:        c.ID,
		Name:      c.Name,
		Email:     c.Email,
		CreatedAt: c.CreatedAt,
	}
}

// CreateCustomer handles POST /customers.
func (h *Handler) CreateCustomer(c *gin.Context) {
	var req createCustomerRequest
	if !h.bind(c, &req) {
		return
	}

	created, err := h.customers.Create(c.Request.Context(), customer.CreateRequest{
		Name:  req.Name,
		Email: req.Email,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.Header("Location", "/api/customers/"+created.ID)
	c.JSON(http.StatusCreated, toCustomerResponse(created))
}

// GetCustomer handles GET /customers/:id.
func (h *Handler) GetCustomer(c *gin.Context) {
	found, err := h.customers.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toCustomerResponse(found))
}
