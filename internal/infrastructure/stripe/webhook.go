package stripe

import (
	"encoding/json"
	"errors"
	"fmt"

	stripe "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
)

// ErrBadSignature marks a webhook payload whose signature does not verify.
// These are never retried; the provider signs every genuine delivery.
var ErrBadSignature = errors.New("stripe: webhook signature verification failed")

// Notification event kinds this system reacts to.
const (
	EventPaymentSucceeded = "payment_succeeded"
	EventPaymentFailed    = "payment_failed"
	EventIgnored          = "ignored"
)

// Notification is the provider-neutral view of one webhook delivery.
type Notification struct {
	Kind         string
	IntentID     string
	OrderID      string
	ContactEmail string
	Amount       int64
}

// WebhookVerifier checks delivery signatures and extracts the correlation
// metadata planted at intent creation.
type WebhookVerifier struct {
	secret string
}

func NewWebhookVerifier(secret string) *WebhookVerifier {
	return &WebhookVerifier{secret: secret}
}

func (v *WebhookVerifier) VerifyAndParse(payload []byte, sigHeader string) (*Notification, error) {
	event, err := webhook.ConstructEvent(payload, sigHeader, v.secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadSignature, err)
	}

	var kind string
	switch event.Type {
	case "payment_intent.succeeded":
		kind = EventPaymentSucceeded
	case "payment_intent.payment_failed":
		kind = EventPaymentFailed
	default:
		return &Notification{Kind: EventIgnored}, nil
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return nil, fmt.Errorf("stripe: decode %s payload: %w", event.Type, err)
	}

	return &Notification{
		Kind:         kind,
		IntentID:     pi.ID,
		OrderID:      pi.Metadata[metaOrderID],
		ContactEmail: pi.Metadata[metaContactEmail],
		Amount:       pi.Amount,
	}, nil
}
