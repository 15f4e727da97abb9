package mysqlstore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/go-orderlifecycle/internal/orders"
)

// These tests run against a real database, e.g.
// ORDERS_MYSQL_DSN="root:secret@tcp(localhost:3306)/orders_test?parseTime=true".
func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("ORDERS_MYSQL_DSN")
	if dsn == "" {
		t.Skip("ORDERS_MYSQL_DSN not set")
	}
	db, err := Open(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, Migrate(db.DB))
	return New(db)
}

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newOrder(user string, created time.Time) orders.Order {
	id := uuid.NewString()
	return orders.Order{
		ID:              id,
		UserID:          user,
		CreatedAt:       created,
		UpdatedAt:       created,
		TotalAmount:     decimal.RequireFromString("80"),
		Status:          orders.StatusProcessing,
		ShippingAddress: "1 Main St",
		BillingAddress:  "1 Main St",
		PaymentMethod:   "card",
		PaymentStatus:   orders.PaymentCompleted,
		Items: []orders.OrderItem{
			{ID: uuid.NewString(), ProductID: "P1", ProductName: "Widget", Quantity: 2, UnitPrice: decimal.RequireFromString("25")},
			{ID: uuid.NewString(), ProductID: "P2", ProductName: "Gadget", Quantity: 1, UnitPrice: decimal.RequireFromString("30")},
		},
		History: []orders.HistoryEntry{{Status: orders.StatusProcessing, ChangedAt: created, ChangedBy: user, Note: "Order placed"}},
	}
}

func move(o orders.Order, to orders.Status, at time.Time) orders.StatusChange {
	return orders.StatusChange{
		OrderID: o.ID, From: o.Status, To: to, At: at,
		Entry: orders.HistoryEntry{Status: to, ChangedAt: at, ChangedBy: "admin", Note: "moved"},
	}
}

func TestStore_CreateAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	o := newOrder(uuid.NewString(), base)
	require.NoError(t, s.CreateOrder(ctx, o))

	got, err := s.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)
	assert.True(t, got.TotalAmount.Equal(o.TotalAmount))
	require.Len(t, got.Items, 2)
	assert.Equal(t, "P1", got.Items[0].ProductID)
	assert.Equal(t, 2, got.Items[0].Quantity)
	require.Len(t, got.History, 1)
	assert.Equal(t, "Order placed", got.History[0].Note)
	assert.Nil(t, got.TrackingNumber)

	_, err = s.GetOrder(ctx, "missing")
	require.ErrorIs(t, err, orders.ErrNotFound)
}

func TestStore_StatusChangeIsConditional(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	o := newOrder(uuid.NewString(), base)
	require.NoError(t, s.CreateOrder(ctx, o))

	tracking := "TRK-1"
	change := move(o, orders.StatusShipped, base.Add(time.Hour))
	change.TrackingNumber = &tracking
	shipped, err := s.ApplyStatusChange(ctx, change)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusShipped, shipped.Status)
	require.NotNil(t, shipped.TrackingNumber)
	assert.Equal(t, tracking, *shipped.TrackingNumber)
	assert.Len(t, shipped.History, 2)

	_, err = s.ApplyStatusChange(ctx, move(o, orders.StatusCancelled, base.Add(2*time.Hour)))
	require.ErrorIs(t, err, orders.ErrConflict)

	missing := o
	missing.ID = "missing"
	_, err = s.ApplyStatusChange(ctx, move(missing, orders.StatusShipped, base))
	require.ErrorIs(t, err, orders.ErrNotFound)

	got, err := s.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusShipped, got.Status)
	assert.Len(t, got.History, 2)
}

func TestStore_ListNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	user := uuid.NewString()
	older := newOrder(user, base)
	newer := newOrder(user, base.Add(time.Hour))
	require.NoError(t, s.CreateOrder(ctx, older))
	require.NoError(t, s.CreateOrder(ctx, newer))
	require.NoError(t, s.CreateOrder(ctx, newOrder(uuid.NewString(), base)))

	list, err := s.ListOrders(ctx, orders.ListFilter{UserID: user})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)
	assert.Len(t, list[1].Items, 2)

	shipped := orders.StatusShipped
	list, err = s.ListOrders(ctx, orders.ListFilter{UserID: user, Status: &shipped})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestStore_ReturnLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	o := newOrder(uuid.NewString(), base)
	o.Status = orders.StatusDelivered
	require.NoError(t, s.CreateOrder(ctx, o))

	ret := orders.ReturnRequest{
		ID: uuid.NewString(), OrderID: o.ID, UserID: o.UserID,
		RequestDate: base, Reason: "broken", Status: orders.ReturnPending,
	}
	require.NoError(t, s.CreateReturn(ctx, ret))

	dup := ret
	dup.ID = uuid.NewString()
	require.ErrorIs(t, s.CreateReturn(ctx, dup), orders.ErrDuplicateReturnRequest)

	amount := decimal.RequireFromString("50")
	change := move(o, orders.StatusReturned, base.Add(time.Hour))
	resolved, err := s.ResolveReturn(ctx, orders.ReturnResolution{
		ReturnID: ret.ID, OrderID: o.ID, Status: orders.ReturnApproved, Resolution: "ok",
		RefundAmount: &amount, ProcessedDate: base.Add(time.Hour), ProcessedBy: "admin",
		OrderChange: &change,
	})
	require.NoError(t, err)
	assert.Equal(t, orders.ReturnApproved, resolved.Status)
	assert.True(t, resolved.RefundAmount.Equal(amount))

	got, err := s.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusReturned, got.Status)
	assert.Empty(t, got.PendingReturnID)

	_, err = s.ResolveReturn(ctx, orders.ReturnResolution{ReturnID: ret.ID, OrderID: o.ID, Status: orders.ReturnRejected})
	require.ErrorIs(t, err, orders.ErrInvalidReturnState)
}

func TestStore_CreateReturnRequiresDelivered(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	o := newOrder(uuid.NewString(), base)
	require.NoError(t, s.CreateOrder(ctx, o))

	err := s.CreateReturn(ctx, orders.ReturnRequest{
		ID: uuid.NewString(), OrderID: o.ID, UserID: o.UserID,
		RequestDate: base, Reason: "x", Status: orders.ReturnPending,
	})
	require.ErrorIs(t, err, orders.ErrConflict)
}
