package receipt

import (
	"context"
	"fmt"

	"storefront/internal/application/checkout"
	"storefront/internal/domain/event"
	"storefront/internal/observability"
)

// OperatorNotifier returns a handler that mails the store operator when an
// order finalizes. It runs on the notification dispatcher, so a failure here
// is logged by the dispatcher and never reaches the customer path.
func OperatorNotifier(mailer Mailer, operatorEmail string, logger observability.Logger) event.Handler {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return func(ctx context.Context, e event.Event) error {
		evt, ok := e.(checkout.OrderFinalizedEvent)
		if !ok {
			return nil
		}
		msg := Message{
			To:      operatorEmail,
			Subject: fmt.Sprintf("New paid order %s", evt.OrderID),
			Body: fmt.Sprintf(
				"Order %s by user %s was paid.\nTotal: %s\nInvoice: %s\n",
				evt.OrderID, evt.UserID, formatAmount(evt.Total), evt.InvoiceURL,
			),
		}
		if err := mailer.Send(ctx, msg); err != nil {
			return fmt.Errorf("operator notification for %s: %w", evt.OrderID, err)
		}
		logger.Info("operator_notified", observability.F("order_id", evt.OrderID))
		return nil
	}
}
