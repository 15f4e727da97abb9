package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/imrishuroy/go-orderlifecycle/internal/orders"
	"github.com/imrishuroy/go-orderlifecycle/internal/validation"
)

// HandlerConfig groups dependencies for the HTTP layer.
type HandlerConfig struct {
	Service *orders.Service
	Logger  logrus.FieldLogger
}

type handler struct {
	svc *orders.Service
	log logrus.FieldLogger
	v   *validatorv10.Validate
}

// NewRouter builds the gin engine with health, order and return routes.
func NewRouter(cfg HandlerConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(cfg.Logger))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	RegisterRoutes(r, cfg)
	return r
}

// RegisterRoutes registers order and return routes behind the identity middleware.
func RegisterRoutes(r gin.IRouter, cfg HandlerConfig) {
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	h := &handler{svc: cfg.Service, log: log, v: validation.New()}

	api := r.Group("/", Identity())

	api.POST("/orders", h.createOrder)
	api.GET("/orders", h.listOrders)
	api.GET("/orders/:id", h.getOrder)
	api.GET("/orders/:id/history", h.getHistory)
	api.POST("/orders/:id/transitions", h.transition)
	api.POST("/orders/:id/cancel", h.cancelOrder)
	api.PUT("/orders/:id/fulfillment", h.updateFulfillment)
	api.POST("/orders/:id/refund", h.refund)

	api.POST("/returns", h.requestReturn)
	api.GET("/returns/:id", h.getReturn)
	api.PUT("/returns/:id/process", h.processReturn)
}
