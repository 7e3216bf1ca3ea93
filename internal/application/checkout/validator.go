package checkout

import (
	"context"
	"fmt"

	"storefront/internal/domain/cart"
	"storefront/internal/domain/catalog"
	"storefront/internal/domain/order"
)

// Snapshot is the validated cart state at checkout time: line items carrying
// the authoritative current price, ready to be captured onto an order.
type Snapshot struct {
	UserID string
	Items  []order.LineItem
}

func (s *Snapshot) Total() int64 {
	var total int64
	for _, li := range s.Items {
		total += li.Subtotal()
	}
	return total
}

// Validator recomputes prices and availability from live catalog state at the
// moment of order creation. Client-sent totals are never trusted. Read-only:
// neither cart nor stock is mutated here.
type Validator struct {
	carts    cart.Repository
	products catalog.Repository
}

func NewValidator(carts cart.Repository, products catalog.Repository) *Validator {
	return &Validator{carts: carts, products: products}
}

// Validate joins the user's cart entries against current product records.
// Fails with ErrEmptyCart when there is nothing to check out, ErrProductNotFound
// when any referenced product no longer exists, and a CartRejectionError
// listing every entry whose quantity exceeds current stock.
func (v *Validator) Validate(ctx context.Context, userID string) (*Snapshot, error) {
	entries, err := v.carts.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("checkout: list cart: %w", err)
	}
	if len(entries) == 0 {
		return nil, ErrEmptyCart
	}

	snapshot := &Snapshot{
		UserID: userID,
		Items:  make([]order.LineItem, 0, len(entries)),
	}
	var rejected []RejectedEntry

	for _, e := range entries {
		product, err := v.products.Get(ctx, e.ProductID)
		if err != nil {
			return nil, fmt.Errorf("checkout: product %s: %w", e.ProductID, err)
		}
		if e.Quantity > product.Stock {
			rejected = append(rejected, RejectedEntry{
				ProductID: product.ID,
				Requested: e.Quantity,
				Available: product.Stock,
			})
			continue
		}
		snapshot.Items = append(snapshot.Items, order.LineItem{
			ProductID:   product.ID,
			ProductName: product.Name,
			Quantity:    e.Quantity,
			UnitPrice:   product.EffectivePrice(),
		})
	}

	if len(rejected) > 0 {
		return nil, &CartRejectionError{Rejected: rejected}
	}
	return snapshot, nil
}
