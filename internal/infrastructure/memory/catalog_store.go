package memory

import (
	"context"
	"sync"
	"time"

	"storefront/internal/domain/catalog"
	"storefront/internal/domain/ledger"
)

// CatalogStore keeps products and stock movements under one mutex so that the
// ledger decrement is a single indivisible operation against the backing
// store, mirroring what the durable adapter does in a transaction.
type CatalogStore struct {
	mu        sync.RWMutex
	products  map[string]*catalog.Product
	movements map[string]ledger.Movement // ledger.Key(orderID, productID)
}

func NewCatalogStore() *CatalogStore {
	return &CatalogStore{
		products:  make(map[string]*catalog.Product),
		movements: make(map[string]ledger.Movement),
	}
}

// Seed inserts or replaces a product; used by tests and local bootstrap.
func (s *CatalogStore) Seed(p catalog.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.UpdatedAt = time.Now().UTC()
	s.products[p.ID] = &p
}

func (s *CatalogStore) Get(ctx context.Context, productID string) (*catalog.Product, error) {
	_ = ctx

	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[productID]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	clone := *p
	return &clone, nil
}

// Stock reports the current available count; test helper.
func (s *CatalogStore) Stock(productID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.products[productID]; ok {
		return p.Stock
	}
	return 0
}

func (s *CatalogStore) Decrement(ctx context.Context, orderID, productID string, qty int) (bool, error) {
	_ = ctx
	if qty <= 0 {
		return false, ledger.ErrInvalidQuantity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := ledger.Key(orderID, productID)
	if _, done := s.movements[key]; done {
		return false, nil
	}

	p, ok := s.products[productID]
	if !ok {
		return false, catalog.ErrNotFound
	}
	if p.Stock < qty {
		return false, ledger.ErrInsufficientStock
	}

	p.Stock -= qty
	p.UpdatedAt = time.Now().UTC()
	s.movements[key] = ledger.Movement{
		OrderID:    orderID,
		ProductID:  productID,
		Quantity:   qty,
		OccurredAt: time.Now().UTC(),
	}
	return true, nil
}

func (s *CatalogStore) Restore(ctx context.Context, orderID, productID string) error {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()

	key := ledger.Key(orderID, productID)
	m, ok := s.movements[key]
	if !ok {
		return nil
	}
	delete(s.movements, key)
	if p, exists := s.products[productID]; exists {
		p.Stock += m.Quantity
		p.UpdatedAt = time.Now().UTC()
	}
	return nil
}
