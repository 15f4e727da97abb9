package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/imrishuroy/go-orderlifecycle/internal/orders"
)

type errorBody struct {
	Error   string      `json:"error"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

var errorKinds = []struct {
	err    error
	status int
	code   string
}{
	{orders.ErrValidation, http.StatusBadRequest, "validation_failed"},
	{orders.ErrUnauthorized, http.StatusForbidden, "forbidden"},
	{orders.ErrProductNotFound, http.StatusNotFound, "product_not_found"},
	{orders.ErrNotFound, http.StatusNotFound, "not_found"},
	{orders.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
	{orders.ErrInvalidOrderState, http.StatusConflict, "invalid_order_state"},
	{orders.ErrInvalidReturnState, http.StatusConflict, "invalid_return_state"},
	{orders.ErrDuplicateReturnRequest, http.StatusConflict, "duplicate_return_request"},
	{orders.ErrInsufficientStock, http.StatusConflict, "insufficient_stock"},
	{orders.ErrConflict, http.StatusConflict, "conflict"},
	{orders.ErrCatalogUnavailable, http.StatusBadGateway, "catalog_unavailable"},
}

// writeError maps a service error onto a status code and JSON body.
func (h *handler) writeError(c *gin.Context, err error) {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			c.JSON(k.status, errorBody{Error: k.code, Message: err.Error(), Details: details(err)})
			return
		}
	}

	h.log.WithFields(logrus.Fields{
		"request_id": c.GetString(requestIDKey),
		"path":       c.FullPath(),
	}).WithError(err).Error("unhandled error")
	c.JSON(http.StatusInternalServerError, errorBody{Error: "internal_error", Message: "internal server error"})
}

func details(err error) interface{} {
	var transition *orders.InvalidTransitionError
	if errors.As(err, &transition) {
		return gin.H{
			"from":    transition.From,
			"to":      transition.To,
			"allowed": orders.AllowedTargets(transition.From),
		}
	}
	var stock *orders.InsufficientStockError
	if errors.As(err, &stock) {
		return gin.H{
			"product_id": stock.ProductID,
			"available":  stock.Available,
			"requested":  stock.Requested,
		}
	}
	var missing *orders.ProductNotFoundError
	if errors.As(err, &missing) {
		return gin.H{"product_id": missing.ProductID}
	}
	return nil
}
