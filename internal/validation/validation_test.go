package validation

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateOrderRequest_Valid(t *testing.T) {
	v := New()

	req := CreateOrderRequest{
		ShippingAddress: "1 Main St",
		PaymentMethod:   "card",
		Items: []Item{
			{ProductID: "P1", Quantity: 2},
			{ProductID: "P2", Quantity: 1},
		},
	}
	require.NoError(t, v.Struct(req))
}

func TestCreateOrderRequest_DuplicateProduct(t *testing.T) {
	v := New()

	req := CreateOrderRequest{
		ShippingAddress: "1 Main St",
		PaymentMethod:   "card",
		Items:           []Item{{ProductID: "P1", Quantity: 1}, {ProductID: "P1", Quantity: 2}},
	}
	err := v.Struct(req)
	require.Error(t, err)
	assert.Equal(t, "unique_product", FieldErrors(err)["items"])
}

func TestCreateOrderRequest_MissingFields(t *testing.T) {
	v := New()

	err := v.Struct(CreateOrderRequest{Items: []Item{}})
	require.Error(t, err)
	fields := FieldErrors(err)
	assert.Equal(t, "required", fields["ShippingAddress"])
	assert.Equal(t, "required", fields["PaymentMethod"])
	assert.Contains(t, fields, "Items")

	err = v.Struct(CreateOrderRequest{ShippingAddress: "a", PaymentMethod: "b", Items: []Item{{ProductID: "P1"}}})
	require.Error(t, err)
	assert.Equal(t, "required", FieldErrors(err)["Quantity"])
}

func TestTransitionRequest(t *testing.T) {
	v := New()

	require.NoError(t, v.Struct(TransitionRequest{Status: "Shipped", EstimatedDelivery: "2025-03-05"}))
	require.Error(t, v.Struct(TransitionRequest{Status: "Lost"}))
	require.Error(t, v.Struct(TransitionRequest{Status: "Shipped", EstimatedDelivery: "next week"}))

	zero := decimal.Zero
	require.Error(t, v.Struct(TransitionRequest{Status: "Refunded", RefundAmount: &zero}))

	amount := decimal.RequireFromString("5")
	require.NoError(t, v.Struct(TransitionRequest{Status: "Refunded", RefundAmount: &amount, RefundMethod: "card"}))
	require.Error(t, v.Struct(TransitionRequest{Status: "Shipped", RefundAmount: &amount}))
	require.Error(t, v.Struct(TransitionRequest{Status: "Delivered", RefundMethod: "card"}))
	require.Error(t, v.Struct(TransitionRequest{Status: "Shipped", CancelReason: "oops"}))
	require.NoError(t, v.Struct(TransitionRequest{Status: "Cancelled", CancelReason: "oops"}))
}

func TestFulfillmentRequest_NeedsAField(t *testing.T) {
	v := New()

	require.Error(t, v.Struct(FulfillmentRequest{}))
	tracking := "TRK-9"
	require.NoError(t, v.Struct(FulfillmentRequest{TrackingNumber: &tracking}))
	empty := ""
	require.Error(t, v.Struct(FulfillmentRequest{TrackingNumber: &empty}))
}

func TestProcessReturnRequest(t *testing.T) {
	v := New()

	amount := decimal.RequireFromString("12.50")
	require.NoError(t, v.Struct(ProcessReturnRequest{Action: "approve", RefundAmount: &amount}))
	require.Error(t, v.Struct(ProcessReturnRequest{Action: "reject", RefundAmount: &amount}))
	require.Error(t, v.Struct(ProcessReturnRequest{Action: "maybe"}))
	require.NoError(t, v.Struct(ProcessReturnRequest{Action: "reject"}))
}

func TestBindAndValidate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	v := New()

	run := func(body string) (*httptest.ResponseRecorder, error) {
		rec := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(rec)
		c.Request = httptest.NewRequest(http.MethodPost, "/returns", strings.NewReader(body))
		c.Request.Header.Set("Content-Type", "application/json")
		var req ReturnRequest
		return rec, BindAndValidate(c, &req, v)
	}

	rec, err := run(`{"order_id":"o1","reason":"broken"}`)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, err = run(`{"order_id":`)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_request_body")

	rec, err = run(`{"order_id":"o1"}`)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "validation_failed")
	assert.Contains(t, rec.Body.String(), `"Reason":"required"`)
}
