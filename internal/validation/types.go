package validation

import "github.com/shopspring/decimal"

// Item is one requested order line.
type Item struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

// CreateOrderRequest is the payload for POST /orders.
type CreateOrderRequest struct {
	UserID          string `json:"user_id,omitempty"` // admins may order on behalf of a user
	ShippingAddress string `json:"shipping_address" validate:"required"`
	BillingAddress  string `json:"billing_address,omitempty"`
	PaymentMethod   string `json:"payment_method" validate:"required"`
	Items           []Item `json:"items" validate:"required,min=1,dive"`
}

// TransitionRequest is the payload for POST /orders/:id/transitions.
type TransitionRequest struct {
	Status            string           `json:"status" validate:"required,oneof=Processing Shipped Delivered Cancelled Returned Refunded"`
	Note              string           `json:"note,omitempty"`
	TrackingNumber    string           `json:"tracking_number,omitempty"`
	EstimatedDelivery string           `json:"estimated_delivery,omitempty" validate:"omitempty,datetime=2006-01-02"`
	CancelReason      string           `json:"cancel_reason,omitempty"`
	RefundAmount      *decimal.Decimal `json:"refund_amount,omitempty"`
	RefundMethod      string           `json:"refund_method,omitempty"`
}

// CancelRequest is the payload for POST /orders/:id/cancel.
type CancelRequest struct {
	Reason string `json:"reason,omitempty" validate:"max=500"`
}

// FulfillmentRequest is the payload for PUT /orders/:id/fulfillment.
type FulfillmentRequest struct {
	TrackingNumber    *string `json:"tracking_number,omitempty" validate:"omitempty,min=1"`
	EstimatedDelivery *string `json:"estimated_delivery,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// RefundRequest is the payload for POST /orders/:id/refund.
type RefundRequest struct {
	Amount *decimal.Decimal `json:"amount,omitempty"`
	Method string           `json:"method,omitempty"`
	Note   string           `json:"note,omitempty"`
}

// ReturnRequest is the payload for POST /returns.
type ReturnRequest struct {
	OrderID string `json:"order_id" validate:"required"`
	Reason  string `json:"reason" validate:"required,max=1000"`
}

// ProcessReturnRequest is the payload for PUT /returns/:id/process.
type ProcessReturnRequest struct {
	Action       string           `json:"action" validate:"required,oneof=approve reject"`
	Resolution   string           `json:"resolution,omitempty"`
	RefundAmount *decimal.Decimal `json:"refund_amount,omitempty"`
	RefundMethod string           `json:"refund_method,omitempty"`
}
