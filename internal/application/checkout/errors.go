package checkout

import (
	"errors"
	"fmt"
	"strings"

	"storefront/internal/domain/catalog"
	"storefront/internal/domain/ledger"
	"storefront/internal/domain/order"
)

var (
	// ErrOrderNotFound aliases the domain sentinel so callers can match on the
	// application package alone.
	ErrOrderNotFound = order.ErrNotFound

	// ErrInsufficientStock is surfaced when a finalize-time decrement would
	// oversell. The order stays PENDING_PAYMENT for manual reconciliation.
	ErrInsufficientStock = ledger.ErrInsufficientStock

	ErrProductNotFound = catalog.ErrNotFound

	ErrEmptyCart           = errors.New("checkout: cart is empty")
	ErrMissingContactInfo  = errors.New("checkout: no contact email available")
	ErrInvalidAmount       = errors.New("checkout: amount must be greater than zero")
	ErrPaymentNotConfirmed = errors.New("checkout: payment not confirmed by provider")
	ErrRepository          = errors.New("checkout: repository failure")
)

// RejectedEntry names one cart entry whose requested quantity exceeds the
// currently available stock.
type RejectedEntry struct {
	ProductID string
	Requested int
	Available int
}

// CartRejectionError lists every offending entry so the storefront can show
// them all at once rather than one per attempt.
type CartRejectionError struct {
	Rejected []RejectedEntry
}

func (e *CartRejectionError) Error() string {
	parts := make([]string, 0, len(e.Rejected))
	for _, r := range e.Rejected {
		parts = append(parts, fmt.Sprintf("%s requested=%d available=%d", r.ProductID, r.Requested, r.Available))
	}
	return "checkout: insufficient stock for cart entries: " + strings.Join(parts, ", ")
}

// IsTerminal classifies finalize errors for the webhook acknowledgement
// policy: terminal errors are acknowledged to stop redelivery, everything else
// signals failure so the provider retries. Insufficient stock stays
// retryable because a restock between deliveries can heal it.
func IsTerminal(err error) bool {
	var rejection *CartRejectionError
	switch {
	case err == nil:
		return true
	case errors.Is(err, ErrOrderNotFound),
		errors.Is(err, ErrProductNotFound),
		errors.Is(err, ErrMissingContactInfo),
		errors.Is(err, ErrEmptyCart),
		errors.Is(err, ErrInvalidAmount),
		errors.Is(err, order.ErrInvalidTransition),
		errors.As(err, &rejection):
		return true
	default:
		return false
	}
}

func wrapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, order.ErrNotFound) {
		return ErrOrderNotFound
	}
	return fmt.Errorf("%w: %w", ErrRepository, err)
}
