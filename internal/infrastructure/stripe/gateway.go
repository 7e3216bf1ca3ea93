// Package stripe implements the payment provider bridge. Correlation data
// travels as intent metadata, so a webhook or a later retrieve can recover the
// order without any local lookup table.
package stripe

import (
	"context"
	"fmt"

	stripe "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"storefront/internal/application/checkout"
)

const (
	metaOrderID      = "order_id"
	metaUserID       = "user_id"
	metaContactEmail = "contact_email"
)

type Gateway struct {
	api      *client.API
	currency string
}

func NewGateway(apiKey, currency string) *Gateway {
	api := &client.API{}
	api.Init(apiKey, nil)
	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}
	return &Gateway{api: api, currency: currency}
}

func (g *Gateway) CreateIntent(ctx context.Context, in checkout.CreateIntentInput) (*checkout.PaymentIntent, error) {
	if in.Amount <= 0 {
		return nil, checkout.ErrInvalidAmount
	}

	params := &stripe.PaymentIntentParams{
		Params:   stripe.Params{Context: ctx},
		Amount:   stripe.Int64(in.Amount),
		Currency: stripe.String(g.currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.AddMetadata(metaOrderID, in.OrderID)
	params.AddMetadata(metaUserID, in.UserID)
	if in.ContactEmail != "" {
		params.AddMetadata(metaContactEmail, in.ContactEmail)
		params.ReceiptEmail = stripe.String(in.ContactEmail)
	}

	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: create intent for order %s: %w", in.OrderID, err)
	}
	return fromProviderIntent(pi), nil
}

func (g *Gateway) RetrieveIntent(ctx context.Context, intentID string) (*checkout.PaymentIntent, error) {
	pi, err := g.api.PaymentIntents.Get(intentID, &stripe.PaymentIntentParams{
		Params: stripe.Params{Context: ctx},
	})
	if err != nil {
		return nil, fmt.Errorf("stripe: retrieve intent %s: %w", intentID, err)
	}
	return fromProviderIntent(pi), nil
}

func fromProviderIntent(pi *stripe.PaymentIntent) *checkout.PaymentIntent {
	return &checkout.PaymentIntent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       mapIntentStatus(pi.Status),
		Amount:       pi.Amount,
		OrderID:      pi.Metadata[metaOrderID],
		UserID:       pi.Metadata[metaUserID],
		ContactEmail: pi.Metadata[metaContactEmail],
	}
}

func mapIntentStatus(s stripe.PaymentIntentStatus) string {
	switch s {
	case stripe.PaymentIntentStatusSucceeded:
		return checkout.IntentStatusSucceeded
	case stripe.PaymentIntentStatusCanceled:
		return checkout.IntentStatusFailed
	default:
		return checkout.IntentStatusRequiresPayment
	}
}
