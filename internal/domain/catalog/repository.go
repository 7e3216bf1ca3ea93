package catalog

import "context"

// Repository reads live product records. Returns ErrNotFound for unknown ids.
type Repository interface {
	Get(ctx context.Context, productID string) (*Product, error)
}
