package catalog

import (
	"context"
	"sync"

	"github.com/imrishuroy/go-orderlifecycle/internal/orders"
)

// Static is an in-memory catalog for local runs and tests.
type Static struct {
	mu       sync.RWMutex
	products map[string]orders.Product
}

// NewStatic returns a catalog holding products.
func NewStatic(products ...orders.Product) *Static {
	s := &Static{products: make(map[string]orders.Product, len(products))}
	for _, p := range products {
		s.products[p.ID] = p
	}
	return s
}

// Put adds or replaces a product.
func (s *Static) Put(p orders.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
}

func (s *Static) GetProduct(_ context.Context, productID string) (orders.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[productID]
	if !ok {
		return orders.Product{}, &orders.ProductNotFoundError{ProductID: productID}
	}
	return p, nil
}
