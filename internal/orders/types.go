package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of an order.
type Status string

// Order statuses
const (
	StatusProcessing Status = "Processing"
	StatusShipped    Status = "Shipped"
	StatusDelivered  Status = "Delivered"
	StatusCancelled  Status = "Cancelled"
	StatusReturned   Status = "Returned"
	StatusRefunded   Status = "Refunded"
)

var statusDescriptions = map[Status]string{
	StatusProcessing: "Order received, not yet shipped",
	StatusShipped:    "Order has been shipped",
	StatusDelivered:  "Order delivered to customer",
	StatusCancelled:  "Order cancelled before shipping",
	StatusReturned:   "Items returned by customer",
	StatusRefunded:   "Refund processed for returned order",
}

// ParseStatus maps a wire value onto a known Status.
func ParseStatus(s string) (Status, bool) {
	st := Status(s)
	_, ok := statusDescriptions[st]
	return st, ok
}

// Description returns a human readable explanation of the status.
func (s Status) Description() string { return statusDescriptions[s] }

func (s Status) String() string { return string(s) }

// PaymentStatus tracks whether payment for the order has been captured.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "Pending"
	PaymentCompleted PaymentStatus = "Completed"
)

// ReturnStatus is the state of a return request.
type ReturnStatus string

const (
	ReturnPending  ReturnStatus = "Pending"
	ReturnApproved ReturnStatus = "Approved"
	ReturnRejected ReturnStatus = "Rejected"
)

var returnStatusDescriptions = map[ReturnStatus]string{
	ReturnPending:  "Waiting for approval",
	ReturnApproved: "Return approved",
	ReturnRejected: "Return rejected",
}

// Description returns a human readable explanation of the return status.
func (s ReturnStatus) Description() string { return returnStatusDescriptions[s] }

// ReturnAction is the administrative decision applied to a pending return.
type ReturnAction string

const (
	ActionApprove ReturnAction = "approve"
	ActionReject  ReturnAction = "reject"
)

// Order is a confirmed purchase with a fixed item list and price snapshot.
type Order struct {
	ID                string
	UserID            string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	TotalAmount       decimal.Decimal
	Status            Status
	ShippingAddress   string
	BillingAddress    string
	PaymentMethod     string
	PaymentStatus     PaymentStatus
	TrackingNumber    *string
	EstimatedDelivery *time.Time
	CancelReason      *string
	RefundAmount      *decimal.Decimal
	RefundMethod      *string
	RefundedAt        *time.Time
	PendingReturnID   string
	Items             []OrderItem
	History           []HistoryEntry
}

// ItemCount is the number of line items on the order.
func (o Order) ItemCount() int { return len(o.Items) }

// OwnedBy reports whether userID placed the order.
func (o Order) OwnedBy(userID string) bool { return o.UserID == userID }

// OrderItem is an immutable line captured at creation time.
type OrderItem struct {
	ID          string
	ProductID   string
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
	Discount    decimal.Decimal
}

// Subtotal is quantity × (unit price − discount).
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Sub(i.Discount).Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// HistoryEntry records one status change.
type HistoryEntry struct {
	Status    Status
	ChangedAt time.Time
	ChangedBy string
	Note      string
}

// ReturnRequest is a customer request to reverse a delivered order.
type ReturnRequest struct {
	ID            string
	OrderID       string
	UserID        string
	RequestDate   time.Time
	Reason        string
	Status        ReturnStatus
	Resolution    *string
	RefundAmount  *decimal.Decimal
	RefundMethod  *string
	ProcessedDate *time.Time
	ProcessedBy   *string
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID string
	Admin  bool
}

// Product is the catalog view of a product at lookup time.
type Product struct {
	ID    string
	Name  string
	Price decimal.Decimal
	Stock int
}
