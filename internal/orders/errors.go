package orders

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation signals malformed input.
	ErrValidation = errors.New("orders: validation failed")
	// ErrNotFound indicates the order or return request does not exist.
	ErrNotFound = errors.New("orders: not found")
	// ErrUnauthorized indicates the caller neither owns the resource nor is an administrator.
	ErrUnauthorized = errors.New("orders: unauthorized")
	// ErrInvalidOrderState indicates the operation is not legal for the order's current status.
	ErrInvalidOrderState = errors.New("orders: invalid order state")
	// ErrInvalidTransition indicates the requested edge is not in the transition table.
	ErrInvalidTransition = errors.New("orders: invalid status transition")
	// ErrInvalidReturnState indicates the return request is no longer pending.
	ErrInvalidReturnState = errors.New("orders: invalid return state")
	// ErrDuplicateReturnRequest indicates a pending return already exists for the order.
	ErrDuplicateReturnRequest = errors.New("orders: return already requested")
	// ErrProductNotFound indicates the catalog has no such product.
	ErrProductNotFound = errors.New("orders: product not found")
	// ErrInsufficientStock indicates the catalog cannot cover the requested quantity.
	ErrInsufficientStock = errors.New("orders: insufficient stock")
	// ErrCatalogUnavailable indicates a transient catalog failure.
	ErrCatalogUnavailable = errors.New("orders: catalog unavailable")
	// ErrConflict indicates a concurrent writer changed the record first.
	ErrConflict = errors.New("orders: concurrent modification")
	// ErrPersistence indicates a storage failure; partial writes were rolled back.
	ErrPersistence = errors.New("orders: persistence failure")
)

// InvalidTransitionError carries the rejected edge.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("orders: invalid status transition from %s to %s", e.From, e.To)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }

// ProductNotFoundError names the product the catalog could not resolve.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("orders: product %s not found", e.ProductID)
}

func (e *ProductNotFoundError) Unwrap() error { return ErrProductNotFound }

// InsufficientStockError reports the shortfall for one product.
type InsufficientStockError struct {
	ProductID string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("orders: insufficient stock for product %s: only %d available, %d requested",
		e.ProductID, e.Available, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// PersistenceError wraps a storage failure. errors.Is matches ErrPersistence
// while errors.As still reaches the underlying driver error.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("orders: persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

func persistenceErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Err: err}
}

func validationErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
