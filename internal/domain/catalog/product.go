package catalog

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("catalog: product not found")

// Product is a live catalog record. Stock on the product is the authoritative
// available count and is only ever mutated through the inventory ledger.
type Product struct {
	ID            string
	Name          string
	Price         int64 // list price, minor currency units
	DiscountPrice int64 // 0 when no discount is set
	Stock         int
	UpdatedAt     time.Time
}

// EffectivePrice returns the discounted price when a discount is present and
// strictly lower than the list price, otherwise the list price.
func (p Product) EffectivePrice() int64 {
	if p.DiscountPrice > 0 && p.DiscountPrice < p.Price {
		return p.DiscountPrice
	}
	return p.Price
}
