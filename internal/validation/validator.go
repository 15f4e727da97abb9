package validation

import (
	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// New returns a validator with the struct-level rules for order payloads registered.
func New() *validatorv10.Validate {
	v := validatorv10.New()

	v.RegisterStructValidation(createOrderStructValidation, CreateOrderRequest{})
	v.RegisterStructValidation(transitionStructValidation, TransitionRequest{})
	v.RegisterStructValidation(fulfillmentStructValidation, FulfillmentRequest{})
	v.RegisterStructValidation(refundStructValidation, RefundRequest{})
	v.RegisterStructValidation(processReturnStructValidation, ProcessReturnRequest{})

	return v
}

// createOrderStructValidation rejects a product listed on more than one line.
func createOrderStructValidation(sl validatorv10.StructLevel) {
	req := sl.Current().Interface().(CreateOrderRequest)

	seen := make(map[string]struct{}, len(req.Items))
	for _, it := range req.Items {
		if _, dup := seen[it.ProductID]; dup {
			sl.ReportError(req.Items, "items", "Items", "unique_product", it.ProductID)
			return
		}
		seen[it.ProductID] = struct{}{}
	}
}

func transitionStructValidation(sl validatorv10.StructLevel) {
	req := sl.Current().Interface().(TransitionRequest)
	if req.RefundAmount != nil && !req.RefundAmount.IsPositive() {
		sl.ReportError(req.RefundAmount, "refund_amount", "RefundAmount", "gt_zero", "")
	}
	if (req.RefundAmount != nil || req.RefundMethod != "") && req.Status != "Refunded" {
		sl.ReportError(req.RefundAmount, "refund_amount", "RefundAmount", "excluded_unless", "status Refunded")
	}
	if req.CancelReason != "" && req.Status != "Cancelled" {
		sl.ReportError(req.CancelReason, "cancel_reason", "CancelReason", "excluded_unless", "status Cancelled")
	}
}

func fulfillmentStructValidation(sl validatorv10.StructLevel) {
	req := sl.Current().Interface().(FulfillmentRequest)
	if req.TrackingNumber == nil && req.EstimatedDelivery == nil {
		sl.ReportError(req.TrackingNumber, "tracking_number", "TrackingNumber", "required_without", "estimated_delivery")
	}
}

func refundStructValidation(sl validatorv10.StructLevel) {
	req := sl.Current().Interface().(RefundRequest)
	if req.Amount != nil && !req.Amount.IsPositive() {
		sl.ReportError(req.Amount, "amount", "Amount", "gt_zero", "")
	}
}

func processReturnStructValidation(sl validatorv10.StructLevel) {
	req := sl.Current().Interface().(ProcessReturnRequest)
	if req.RefundAmount != nil && !req.RefundAmount.GreaterThan(decimal.Zero) {
		sl.ReportError(req.RefundAmount, "refund_amount", "RefundAmount", "gt_zero", "")
	}
	if req.Action == "reject" && (req.RefundAmount != nil || req.RefundMethod != "") {
		sl.ReportError(req.RefundAmount, "refund_amount", "RefundAmount", "excluded_with_reject", "")
	}
}
