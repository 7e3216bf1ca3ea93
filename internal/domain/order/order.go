package order

import (
	"errors"
	"time"
)

var (
	ErrNotFound          = errors.New("order: not found")
	ErrNoItems           = errors.New("order: at least one line item is required")
	ErrInvalidQuantity   = errors.New("order: quantity must be greater than zero")
	ErrInvalidUnitPrice  = errors.New("order: unit price must be zero or greater")
	ErrAlreadyPaid       = errors.New("order: already paid")
	ErrInvalidTransition = errors.New("order: invalid status transition")
)

// Status is the closed set of persisted order states.
type Status string

const (
	StatusPendingPayment Status = "PENDING_PAYMENT"
	StatusPaid           Status = "PAID"
	StatusCancelled      Status = "CANCELLED"
)

// LineItem captures a product at the moment the order was created. The unit
// price and name are snapshots; live catalog values are never consulted again
// for a placed order.
type LineItem struct {
	ProductID   string
	ProductName string
	Quantity    int
	UnitPrice   int64 // minor currency units, price_at_purchase
}

func (li LineItem) Subtotal() int64 {
	return int64(li.Quantity) * li.UnitPrice
}

type Order struct {
	ID         string
	UserID     string
	Items      []LineItem
	Total      int64 // minor currency units, computed once at creation
	Status     Status
	InvoiceURL string // late-filled at finalization, empty until then
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// New builds a PENDING_PAYMENT order from captured line items. The total is the
// sum of quantity times captured unit price and is immutable afterwards.
func New(id, userID string, items []LineItem) (*Order, error) {
	if len(items) == 0 {
		return nil, ErrNoItems
	}
	var total int64
	for _, li := range items {
		if li.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
		if li.UnitPrice < 0 {
			return nil, ErrInvalidUnitPrice
		}
		total += li.Subtotal()
	}

	now := time.Now().UTC()
	return &Order{
		ID:        id,
		UserID:    userID,
		Items:     append([]LineItem(nil), items...),
		Total:     total,
		Status:    StatusPendingPayment,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// MarkPaid transitions to the terminal PAID state and records the invoice
// reference. Only PENDING_PAYMENT orders may transition.
func (o *Order) MarkPaid(invoiceURL string) error {
	switch o.Status {
	case StatusPendingPayment:
		o.Status = StatusPaid
		o.InvoiceURL = invoiceURL
		o.touch()
		return nil
	case StatusPaid:
		return ErrAlreadyPaid
	default:
		return ErrInvalidTransition
	}
}

// Cancel transitions to the terminal CANCELLED state. Paid orders are frozen.
func (o *Order) Cancel() error {
	if o.Status != StatusPendingPayment {
		return ErrInvalidTransition
	}
	o.Status = StatusCancelled
	o.touch()
	return nil
}

func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	clone.Items = append([]LineItem(nil), o.Items...)
	return &clone
}

func (o *Order) touch() {
	o.UpdatedAt = time.Now().UTC()
}
