package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/go-orderlifecycle/internal/orders"
	"github.com/imrishuroy/go-orderlifecycle/internal/validation"
)

func (h *handler) createOrder(c *gin.Context) {
	var req validation.CreateOrderRequest
	if err := validation.BindAndValidate(c, &req, h.v); err != nil {
		// BindAndValidate already wrote a 400
		return
	}

	actor := actorFrom(c)
	cmd := orders.CreateOrderCommand{
		UserID:          req.UserID,
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  req.BillingAddress,
		PaymentMethod:   req.PaymentMethod,
		Items:           make([]orders.ItemRequest, 0, len(req.Items)),
	}
	if cmd.UserID == "" {
		cmd.UserID = actor.UserID
	}
	for _, it := range req.Items {
		cmd.Items = append(cmd.Items, orders.ItemRequest{ProductID: it.ProductID, Quantity: it.Quantity})
	}

	order, err := h.svc.CreateOrder(c.Request.Context(), cmd, actor)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.Header("Location", fmt.Sprintf("/orders/%s", order.ID))
	c.JSON(http.StatusCreated, toOrderView(order))
}

func (h *handler) listOrders(c *gin.Context) {
	var status *orders.Status
	if raw := c.Query("status"); raw != "" {
		st := orders.Status(raw)
		status = &st
	}

	list, err := h.svc.ListOrders(c.Request.Context(), c.Query("user_id"), status, actorFrom(c))
	if err != nil {
		h.writeError(c, err)
		return
	}

	out := make([]orderView, 0, len(list))
	for _, o := range list {
		out = append(out, toOrderView(o))
	}
	c.JSON(http.StatusOK, gin.H{"orders": out, "count": len(out)})
}

func (h *handler) getOrder(c *gin.Context) {
	order, err := h.svc.GetOrder(c.Request.Context(), c.Param("id"), actorFrom(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderView(order))
}

func (h *handler) getHistory(c *gin.Context) {
	history, err := h.svc.GetHistory(c.Request.Context(), c.Param("id"), actorFrom(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order_id": c.Param("id"), "history": toHistoryViews(history)})
}

func (h *handler) transition(c *gin.Context) {
	var req validation.TransitionRequest
	if err := validation.BindAndValidate(c, &req, h.v); err != nil {
		return
	}

	opts := orders.TransitionOptions{
		Note:           req.Note,
		TrackingNumber: optional(req.TrackingNumber),
		CancelReason:   optional(req.CancelReason),
		RefundAmount:   req.RefundAmount,
		RefundMethod:   optional(req.RefundMethod),
	}
	if req.EstimatedDelivery != "" {
		d, err := time.Parse(dateLayout, req.EstimatedDelivery)
		if err != nil {
			h.writeError(c, fmt.Errorf("%w: estimated_delivery: %v", orders.ErrValidation, err))
			return
		}
		opts.EstimatedDelivery = &d
	}

	order, err := h.svc.Transition(c.Request.Context(), c.Param("id"), orders.Status(req.Status), actorFrom(c), opts)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderView(order))
}

func (h *handler) cancelOrder(c *gin.Context) {
	var req validation.CancelRequest
	if c.Request.ContentLength > 0 {
		if err := validation.BindAndValidate(c, &req, h.v); err != nil {
			return
		}
	}

	order, err := h.svc.CancelOrder(c.Request.Context(), c.Param("id"), req.Reason, actorFrom(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderView(order))
}

func (h *handler) updateFulfillment(c *gin.Context) {
	var req validation.FulfillmentRequest
	if err := validation.BindAndValidate(c, &req, h.v); err != nil {
		return
	}

	cmd := orders.FulfillmentCommand{OrderID: c.Param("id"), TrackingNumber: req.TrackingNumber}
	if req.EstimatedDelivery != nil {
		d, err := time.Parse(dateLayout, *req.EstimatedDelivery)
		if err != nil {
			h.writeError(c, fmt.Errorf("%w: estimated_delivery: %v", orders.ErrValidation, err))
			return
		}
		cmd.EstimatedDelivery = &d
	}

	order, err := h.svc.UpdateFulfillment(c.Request.Context(), cmd, actorFrom(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderView(order))
}

func (h *handler) refund(c *gin.Context) {
	var req validation.RefundRequest
	if c.Request.ContentLength > 0 {
		if err := validation.BindAndValidate(c, &req, h.v); err != nil {
			return
		}
	}

	order, err := h.svc.Refund(c.Request.Context(), orders.RefundCommand{
		OrderID: c.Param("id"),
		Amount:  req.Amount,
		Method:  req.Method,
		Note:    req.Note,
	}, actorFrom(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderView(order))
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
