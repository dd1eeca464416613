// Package handler exposes the storefront services over HTTP.
package handler

import (
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/apperr"
	"github.com/xenking/storefront/internal/domain/customer"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/events"
)

const instrumentationName = "github.com/xenking/storefront/internal/handler"

// Options holds optional Handler dependencies. Zero values fall back to
// no-op implementations.
type Options struct {
	Publisher      events.Publisher
	MeterProvider  metric.MeterProvider
	TracerProvider trace.TracerProvider
}

func (o *Options) setDefaults() {
	if o.Publisher == nil {
		o.Publisher = events.Nop{}
	}
	if o.MeterProvider == nil {
		o.MeterProvider = metricnoop.NewMeterProvider()
	}
	if o.TracerProvider == nil {
		o.TracerProvider = tracenoop.NewTracerProvider()
	}
}

// Handler serves the customer, order and product endpoints.
type Handler struct {
	customers *customer.Service
	orders    *order.Service
	products  product.Repository
	publisher events.Publisher
	validate  *validator.Validate
	tracer    trace.Tracer

	ordersCreated  metric.Int64Counter
	ordersRejected metric.Int64Counter
}

// New constructs a Handler with the required domain dependencies.
func New(
	customers *customer.Service,
	orders *order.Service,
	products product.Repository,
	opts Options,
) (*Handler, error) {
	opts.setDefaults()

	meter := opts.MeterProvider.Meter(instrumentationName)
	created, err := meter.Int64Counter("storefront.orders.created",
		metric.WithDescription("Orders placed successfully"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "orders.created counter")
	}
	rejected, err := meter.Int64Counter("storefront.orders.rejected",
		metric.WithDescription("Order requests rejected, by error kind"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "orders.rejected counter")
	}

	return &Handler{
		customers:      customers,
		orders:         orders,
		products:       products,
		publisher:      opts.Publisher,
		validate:       newValidator(),
		tracer:         opts.TracerProvider.Tracer(instrumentationName),
		ordersCreated:  created,
		ordersRejected: rejected,
	}, nil
}

// Register mounts all routes on r.
func (h *Handler) Register(r gin.IRouter) {
	r.POST("/customers", h.CreateCustomer)
	r.GET("/customers/:id", h.GetCustomer)

	r.POST("/orders", h.CreateOrder)
	r.GET("/orders/:id", h.GetOrder)

	r.GET("/products", h.ListProducts)
	r.GET("/products/:id", h.GetProduct)
}

// newValidator reports field names as they appear in JSON.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// errorResponse is the body of every non-2xx response.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusUnprocessableEntity
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as an error response. Unclassified errors are logged and
// reported without detail.
func (h *Handler) fail(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	status := statusFor(kind)
	if kind == apperr.KindUnknown {
		zctx.From(c.Request.Context()).Error("Request failed", zap.Error(err))
	}
	c.AbortWithStatusJSON(status, errorResponse{Code: status, Message: apperr.Message(err)})
}

// bind decodes the JSON body into req and validates it. On failure the
// response is already written and bind returns false.
func (h *Handler) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{
			Code:    http.StatusBadRequest,
			Message: "invalid request body",
		})
		return false
	}
	if err := h.validate.Struct(req); err != nil {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, errorResponse{
			Code:    http.StatusUnprocessableEntity,
			Message: validationMessage(err),
		})
		return false
	}
	return true
}

func validationMessage(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return "invalid request"
	}
	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		field := fe.Namespace()
		if _, rest, ok := strings.Cut(field, "."); ok {
			field = rest
		}
		msgs = append(msgs, "field '"+field+"' failed on '"+fe.Tag()+"'")
	}
	return strings.Join(msgs, "; ")
}
