package checkout

import (
	"time"

	"storefront/internal/domain/order"
)

// OrderFinalizedEvent is emitted after an order has been committed to PAID.
// Consumers are best-effort by construction (operator notification).
type OrderFinalizedEvent struct {
	OrderID      string
	UserID       string
	ContactEmail string
	Total        int64
	InvoiceURL   string
	OccurredAt   time.Time
}

func (OrderFinalizedEvent) EventName() string { return "order.finalized" }

func NewOrderFinalizedEvent(o *order.Order, contactEmail, invoiceURL string) OrderFinalizedEvent {
	return OrderFinalizedEvent{
		OrderID:      o.ID,
		UserID:       o.UserID,
		ContactEmail: contactEmail,
		Total:        o.Total,
		InvoiceURL:   invoiceURL,
		OccurredAt:   time.Now().UTC(),
	}
}
