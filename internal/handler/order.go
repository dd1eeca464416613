package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/apperr"
	"github.com/xenking/storefront/internal/domain/order"
)

type createOrderRequest struct {
	CustomerID string                `json:"customer_id" validate:"required"`
	Products   []orderProductRequest `json:"products" validate:"dive"`
}

type orderProductRequest struct {
	ID       string `json:"id" validate:"required"`
	Quantity int    `json:"quantity"`
}

type orderResponse struct {
	ID            string                 `json:"id"`
	Customer      *customerResponse      `json:"customer,omitempty"`
	OrderedAt     time.Time              `json:"ordered_at"`
	Total         string                 `json:"total"`
	OrderProducts []orderProductResponse `json:"order_products"`
}

type orderProductResponse struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Price     string `json:"price"`
}

func toOrderResponse(o *order.Order) orderResponse {
	resp := orderResponse{
		ID:            o.ID,
		OrderedAt:     o.OrderedAt,
		Total:         o.Total().StringFixed(2),
		OrderProducts: make([]orderProductResponse, len(o.Items)),
	}
	if o.Customer != nil {
		cr := toCustomerResponse(o.Customer)
		resp.Customer = &cr
	}
	for i, it := range o.Items {
		resp.OrderProducts[i] = orderProductResponse{
			ID:        it.ID,
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     it.Price.StringFixed(2),
		}
	}
	return resp
}

// CreateOrder handles POST /orders. A successful order is announced to the
// event publisher; publish failures are logged and do not fail the request.
func (h *Handler) CreateOrder(c *gin.Context) {
	var req createOrderRequest
	if !h.bind(c, &req) {
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "CreateOrder",
		trace.WithAttributes(
			attribute.String("customer.id", req.CustomerID),
			attribute.Int("order.products", len(req.Products)),
		),
	)
	defer span.End()

	products := make([]order.RequestedProduct, len(req.Products))
	for i, p := range req.Products {
		products[i] = order.RequestedProduct{ID: p.ID, Quantity: p.Quantity}
	}

	created, err := h.orders.Create(ctx, order.CreateRequest{
		CustomerID: req.CustomerID,
		Products:   products,
	})
	if err != nil {
		kind := apperr.KindOf(err)
		h.ordersRejected.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind.String())))
		span.RecordError(err)
		span.SetStatus(codes.Error, kind.String())
		h.fail(c, err)
		return
	}

	span.SetAttributes(attribute.String("order.id", created.ID))
	h.ordersCreated.Add(ctx, 1)

	if err := h.publisher.PublishOrderCreated(ctx, created); err != nil {
		zctx.From(ctx).Warn("Publish order event",
			zap.String("order_id", created.ID),
			zap.Error(err),
		)
	}

	c.Header("Location", "/api/orders/"+created.ID)
	c.JSON(http.StatusCreated, toOrderResponse(created))
}

// GetOrder handles GET /orders/:id.
func (h *Handler) GetOrder(c *gin.Context) {
	found, err := h.orders.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(found))
}
