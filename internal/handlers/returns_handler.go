package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/go-orderlifecycle/internal/orders"
	"github.com/imrishuroy/go-orderlifecycle/internal/validation"
)

func (h *handler) requestReturn(c *gin.Context) {
	var req validation.ReturnRequest
	if err := validation.BindAndValidate(c, &req, h.v); err != nil {
		return
	}

	ret, err := h.svc.RequestReturn(c.Request.Context(), req.OrderID, req.Reason, actorFrom(c))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.Header("Location", fmt.Sprintf("/returns/%s", ret.ID))
	c.JSON(http.StatusCreated, toReturnView(ret))
}

func (h *handler) getReturn(c *gin.Context) {
	ret, err := h.svc.GetReturn(c.Request.Context(), c.Param("id"), actorFrom(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toReturnView(ret))
}

func (h *handler) processReturn(c *gin.Context) {
	var req validation.ProcessReturnRequest
	if err := validation.BindAndValidate(c, &req, h.v); err != nil {
		return
	}

	ret, err := h.svc.ProcessReturn(c.Request.Context(), orders.ProcessReturnCommand{
		ReturnID:     c.Param("id"),
		Action:       orders.ReturnAction(req.Action),
		Resolution:   req.Resolution,
		RefundAmount: req.RefundAmount,
		RefundMethod: req.RefundMethod,
	}, actorFrom(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toReturnView(ret))
}
