package memory

import (
	"context"
	"sync"

	domain "storefront/internal/domain/cart"
)

type CartRepository struct {
	mu    sync.RWMutex
	carts map[string][]domain.Entry // userID -> entries
}

func NewCartRepository() *CartRepository {
	return &CartRepository{carts: make(map[string][]domain.Entry)}
}

func (r *CartRepository) List(ctx context.Context, userID string) ([]domain.Entry, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]domain.Entry(nil), r.carts[userID]...), nil
}

// Put upserts the entry for its product; quantity zero removes it.
func (r *CartRepository) Put(ctx context.Context, userID string, e domain.Entry) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	entries := r.carts[userID]
	for i, existing := range entries {
		if existing.ProductID == e.ProductID {
			if e.Quantity <= 0 {
				r.carts[userID] = append(entries[:i], entries[i+1:]...)
			} else {
				entries[i].Quantity = e.Quantity
			}
			return nil
		}
	}
	if e.Quantity > 0 {
		r.carts[userID] = append(entries, e)
	}
	return nil
}

func (r *CartRepository) Clear(ctx context.Context, userID string) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.carts, userID)
	return nil
}
