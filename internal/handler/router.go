package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/trace"
)

// NewEngine returns a gin engine serving h under /api. Routes get server
// spans named after their templates.
func NewEngine(h *Handler, service string, tp trace.TracerProvider) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	e := gin.New()
	e.ContextWithFallback = true
	e.HandleMethodNotAllowed = true
	if tp != nil {
		e.Use(otelgin.Middleware(service, otelgin.WithTracerProvider(tp)))
	}

	h.Register(e.Group("/api"))

	e.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, errorResponse{Code: http.StatusNotFound, Message: "route not found"})
	})
	e.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, errorResponse{Code: http.StatusMethodNotAllowed, Message: "method not allowed"})
	})
	return e
}
