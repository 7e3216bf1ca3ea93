package ledger

import "context"

// Ledger is the only mutator of available-stock counts.
type Ledger interface {
	// Decrement atomically subtracts qty from the product's stock and records
	// the movement, as one indivisible operation against the backing store.
	// A repeat call for the same (order, product) pair is a no-op success with
	// applied=false. Fails with ErrInsufficientStock when the result would go
	// negative, leaving stock untouched.
	Decrement(ctx context.Context, orderID, productID string, qty int) (applied bool, err error)

	// Restore undoes a previously applied movement (compensation when a
	// multi-item finalize aborts midway). Restoring a movement that was never
	// applied is a no-op.
	Restore(ctx context.Context, orderID, productID string) error
}
