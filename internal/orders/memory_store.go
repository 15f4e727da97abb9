package orders

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
)

// MemoryStore is a mutex-guarded Store for local runs and tests.
type MemoryStore struct {
	mu      sync.Mutex
	orders  map[string]Order
	returns map[string]ReturnRequest
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orders:  map[string]Order{},
		returns: map[string]ReturnRequest{},
	}
}

func (m *MemoryStore) CreateOrder(_ context.Context, order Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.orders[order.ID]; exists {
		return persistenceErr("create order", fmt.Errorf("order %s already exists", order.ID))
	}
	m.orders[order.ID] = cloneOrder(order)
	return nil
}

func (m *MemoryStore) GetOrder(_ context.Context, orderID string) (Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return Order{}, fmt.Errorf("%w: order %s", ErrNotFound, orderID)
	}
	return cloneOrder(o), nil
}

func (m *MemoryStore) ListOrders(_ context.Context, filter ListFilter) ([]Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Order{}
	for _, o := range m.orders {
		if o.UserID != filter.UserID {
			continue
		}
		if filter.Status != nil && o.Status != *filter.Status {
			continue
		}
		out = append(out, cloneOrder(o))
	}
	sortNewestFirst(out)
	return out, nil
}

func (m *MemoryStore) ApplyStatusChange(_ context.Context, change StatusChange) (Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[change.OrderID]
	if !ok {
		return Order{}, fmt.Errorf("%w: order %s", ErrNotFound, change.OrderID)
	}
	if o.Status != change.From {
		return Order{}, ErrConflict
	}
	o = applyChange(o, change)
	m.orders[o.ID] = o
	return cloneOrder(o), nil
}

func (m *MemoryStore) UpdateFulfillment(_ context.Context, update FulfillmentUpdate) (Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[update.OrderID]
	if !ok {
		return Order{}, fmt.Errorf("%w: order %s", ErrNotFound, update.OrderID)
	}
	if update.TrackingNumber != nil {
		o.TrackingNumber = clonePtr(update.TrackingNumber)
	}
	if update.EstimatedDelivery != nil {
		o.EstimatedDelivery = clonePtr(update.EstimatedDelivery)
	}
	o.UpdatedAt = update.At
	m.orders[o.ID] = o
	return cloneOrder(o), nil
}

func (m *MemoryStore) CreateReturn(_ context.Context, ret ReturnRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[ret.OrderID]
	if !ok {
		return fmt.Errorf("%w: order %s", ErrNotFound, ret.OrderID)
	}
	if o.PendingReturnID != "" {
		return ErrDuplicateReturnRequest
	}
	if o.Status != StatusDelivered {
		return ErrConflict
	}
	o.PendingReturnID = ret.ID
	m.orders[o.ID] = o
	m.returns[ret.ID] = cloneReturn(ret)
	return nil
}

func (m *MemoryStore) GetReturn(_ context.Context, returnID string) (ReturnRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.returns[returnID]
	if !ok {
		return ReturnRequest{}, fmt.Errorf("%w: return %s", ErrNotFound, returnID)
	}
	return cloneReturn(r), nil
}

func (m *MemoryStore) ResolveReturn(_ context.Context, res ReturnResolution) (ReturnRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.returns[res.ReturnID]
	if !ok {
		return ReturnRequest{}, fmt.Errorf("%w: return %s", ErrNotFound, res.ReturnID)
	}
	if r.Status != ReturnPending {
		return ReturnRequest{}, ErrInvalidReturnState
	}
	o, ok := m.orders[res.OrderID]
	if !ok {
		return ReturnRequest{}, fmt.Errorf("%w: order %s", ErrNotFound, res.OrderID)
	}
	if o.PendingReturnID != res.ReturnID {
		return ReturnRequest{}, ErrConflict
	}
	if res.OrderChange != nil {
		if o.Status != res.OrderChange.From {
			return ReturnRequest{}, ErrConflict
		}
		o = applyChange(o, *res.OrderChange)
	}
	o.PendingReturnID = ""

	r = resolvedReturn(r, res)
	m.orders[o.ID] = o
	m.returns[r.ID] = r
	return cloneReturn(r), nil
}

// applyChange returns order with change applied. Shared by the in-process stores.
func applyChange(o Order, change StatusChange) Order {
	o = cloneOrder(o)
	o.Status = change.To
	o.UpdatedAt = change.At
	o.History = append(o.History, change.Entry)
	if change.TrackingNumber != nil {
		o.TrackingNumber = clonePtr(change.TrackingNumber)
	}
	if change.EstimatedDelivery != nil {
		o.EstimatedDelivery = clonePtr(change.EstimatedDelivery)
	}
	if change.CancelReason != nil {
		o.CancelReason = clonePtr(change.CancelReason)
	}
	if change.RefundAmount != nil {
		o.RefundAmount = clonePtr(change.RefundAmount)
		at := change.At
		o.RefundedAt = &at
	}
	if change.RefundMethod != nil {
		o.RefundMethod = clonePtr(change.RefundMethod)
	}
	return o
}

func resolvedReturn(r ReturnRequest, res ReturnResolution) ReturnRequest {
	resolution := res.Resolution
	processedAt := res.ProcessedDate
	processedBy := res.ProcessedBy
	r.Status = res.Status
	r.Resolution = &resolution
	r.ProcessedDate = &processedAt
	r.ProcessedBy = &processedBy
	r.RefundAmount = clonePtr(res.RefundAmount)
	r.RefundMethod = clonePtr(res.RefundMethod)
	return r
}

// cloneOrder copies everything the caller could mutate through the result.
func cloneOrder(o Order) Order {
	o.Items = slices.Clone(o.Items)
	o.History = slices.Clone(o.History)
	o.TrackingNumber = clonePtr(o.TrackingNumber)
	o.EstimatedDelivery = clonePtr(o.EstimatedDelivery)
	o.CancelReason = clonePtr(o.CancelReason)
	o.RefundAmount = clonePtr(o.RefundAmount)
	o.RefundMethod = clonePtr(o.RefundMethod)
	o.RefundedAt = clonePtr(o.RefundedAt)
	return o
}

func cloneReturn(r ReturnRequest) ReturnRequest {
	r.Resolution = clonePtr(r.Resolution)
	r.RefundAmount = clonePtr(r.RefundAmount)
	r.RefundMethod = clonePtr(r.RefundMethod)
	r.ProcessedDate = clonePtr(r.ProcessedDate)
	r.ProcessedBy = clonePtr(r.ProcessedBy)
	return r
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func sortNewestFirst(list []Order) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID > list[j].ID
		}
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
}
