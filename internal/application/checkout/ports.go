package checkout

import (
	"context"

	"storefront/internal/domain/order"
)

type IDGenerator interface {
	NewID() string
}

// Intent status values as this system observes them. The provider owns the
// transitions; we only ever read them.
const (
	IntentStatusSucceeded       = "succeeded"
	IntentStatusRequiresPayment = "requires_payment"
	IntentStatusFailed          = "failed"
)

// PaymentIntent is the local view of a provider-side intent: the external
// handle plus the correlation metadata we attached at creation time.
type PaymentIntent struct {
	ID           string
	ClientSecret string
	Status       string
	Amount       int64 // minor currency units
	OrderID      string
	UserID       string
	ContactEmail string
}

type CreateIntentInput struct {
	OrderID      string
	UserID       string
	ContactEmail string
	Amount       int64
}

// PaymentGateway bridges to the payment provider. It holds no local state;
// both calls are provider-side effects or reads. CreateIntent rejects a
// non-positive amount with ErrInvalidAmount.
type PaymentGateway interface {
	CreateIntent(ctx context.Context, in CreateIntentInput) (*PaymentIntent, error)
	RetrieveIntent(ctx context.Context, intentID string) (*PaymentIntent, error)
}

// UserDirectory resolves the contact email of an order's owning user. Returns
// an empty string (and no error) when the user exists but has no email.
type UserDirectory interface {
	EmailFor(ctx context.Context, userID string) (string, error)
}

// Receipt is the outcome of a receipt delivery.
type Receipt struct {
	DocumentURL string
}

// ReceiptDeliverer renders the invoice document, persists it, records the
// invoice entry, and dispatches the customer email, as one capability.
type ReceiptDeliverer interface {
	Deliver(ctx context.Context, o *order.Order, contactEmail string) (*Receipt, error)
}
