package orders

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Store persists orders and return requests.
//
// Implementations must apply every mutation atomically and must reject a
// status change whose From no longer matches the stored status with ErrConflict.
type Store interface {
	// CreateOrder writes the order together with all of its items, or nothing.
	CreateOrder(ctx context.Context, order Order) error
	GetOrder(ctx context.Context, orderID string) (Order, error)
	// ListOrders returns the user's orders, newest first.
	ListOrders(ctx context.Context, filter ListFilter) ([]Order, error)
	// ApplyStatusChange moves the order from change.From to change.To and
	// appends change.Entry to its history in one conditional write.
	ApplyStatusChange(ctx context.Context, change StatusChange) (Order, error)
	UpdateFulfillment(ctx context.Context, update FulfillmentUpdate) (Order, error)
	// CreateReturn stores a pending return and marks it on the order. It fails
	// with ErrDuplicateReturnRequest if another return is still pending and
	// with ErrConflict if the order is no longer Delivered.
	CreateReturn(ctx context.Context, ret ReturnRequest) error
	GetReturn(ctx context.Context, returnID string) (ReturnRequest, error)
	// ResolveReturn closes a pending return and, when res.OrderChange is set,
	// applies that status change in the same transaction.
	ResolveReturn(ctx context.Context, res ReturnResolution) (ReturnRequest, error)
}

// ListFilter narrows ListOrders.
type ListFilter struct {
	UserID string
	Status *Status
}

// StatusChange is a validated edge produced by the Engine.
type StatusChange struct {
	OrderID           string
	From              Status
	To                Status
	At                time.Time
	Entry             HistoryEntry
	TrackingNumber    *string
	EstimatedDelivery *time.Time
	CancelReason      *string
	RefundAmount      *decimal.Decimal
	RefundMethod      *string
}

// FulfillmentUpdate changes shipping metadata without touching status.
type FulfillmentUpdate struct {
	OrderID           string
	TrackingNumber    *string
	EstimatedDelivery *time.Time
	At                time.Time
}

// ReturnResolution closes a pending return request.
type ReturnResolution struct {
	ReturnID      string
	OrderID       string
	Status        ReturnStatus
	Resolution    string
	RefundAmount  *decimal.Decimal
	RefundMethod  *string
	ProcessedDate time.Time
	ProcessedBy   string
	OrderChange   *StatusChange
}

// Catalog resolves products at order creation time. A missing product must be
// reported with an error matching ErrProductNotFound; anything else is treated
// as a transient failure.
type Catalog interface {
	GetProduct(ctx context.Context, productID string) (Product, error)
}

// NotificationKind selects the message template.
type NotificationKind string

const (
	NotifyOrderShipped   NotificationKind = "order_shipped"
	NotifyReturnResolved NotificationKind = "return_resolved"
)

// Notification is a best-effort message to a user.
type Notification struct {
	Kind        NotificationKind
	RecipientID string
	Context     map[string]string
}

// Notifier delivers notifications. Failures never affect the calling operation.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Metrics records operational counters.
type Metrics interface {
	Count(ctx context.Context, name string, dimensions map[string]string) error
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, Notification) error { return nil }

type nopMetrics struct{}

func (nopMetrics) Count(context.Context, string, map[string]string) error { return nil }
