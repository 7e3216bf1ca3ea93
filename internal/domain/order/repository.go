package order

import "context"

// Repository persists orders together with their line items. Implementations
// must make Insert atomic (an order row without its items, or items without the
// order, must never be observable) and must implement the status transitions as
// conditional updates against the backing store, not read-then-write in
// application code.
type Repository interface {
	Insert(ctx context.Context, o *Order) error
	Get(ctx context.Context, id string) (*Order, error)

	// MarkPaid atomically transitions PENDING_PAYMENT -> PAID and stores the
	// invoice reference. Returns ErrAlreadyPaid when the order is already PAID,
	// ErrInvalidTransition when it is CANCELLED, ErrNotFound when absent.
	MarkPaid(ctx context.Context, id, invoiceURL string) error

	// Cancel atomically transitions PENDING_PAYMENT -> CANCELLED with the same
	// error contract as MarkPaid.
	Cancel(ctx context.Context, id string) error
}
