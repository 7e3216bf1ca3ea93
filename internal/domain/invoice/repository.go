package invoice

import "context"

type Repository interface {
	Create(ctx context.Context, inv *Invoice) error
	ListByOrderID(ctx context.Context, orderID string) ([]Invoice, error)
}
