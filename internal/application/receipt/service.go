package receipt

import (
	"context"
	"fmt"
	"time"

	"storefront/internal/application/checkout"
	"storefront/internal/domain/invoice"
	"storefront/internal/domain/order"
	"storefront/internal/observability"
)

const (
	peerDocumentStore = "document-store"
	peerMailer        = "mailer"
	endpointPut       = "object.put"
	endpointSend      = "mail.send"
)

// Service is the deliver-receipt capability: render the invoice, persist the
// document, record the invoice entry, and mail the customer. Each step is
// blocking; failures leave the order retryable upstream. The document key is
// derived from the order id so a retry that reaches storage again overwrites
// rather than duplicates.
type Service struct {
	renderer Renderer
	docs     DocumentStore
	invoices invoice.Repository
	mailer   Mailer
	idGen    checkout.IDGenerator

	log          observability.Logger
	extCounter   observability.Counter
	extHistogram observability.Histogram
}

func NewService(
	renderer Renderer,
	docs DocumentStore,
	invoices invoice.Repository,
	mailer Mailer,
	idGen checkout.IDGenerator,
	tel observability.Observability,
) *Service {
	if tel == nil {
		tel = observability.Nop()
	}
	metrics := tel.Metrics()
	return &Service{
		renderer:     renderer,
		docs:         docs,
		invoices:     invoices,
		mailer:       mailer,
		idGen:        idGen,
		log:          tel.Logger().With(observability.F("component", "receipt_service")),
		extCounter:   metrics.Counter(observability.MExternalRequests),
		extHistogram: metrics.Histogram(observability.MExternalRequestDuration),
	}
}

// observeExternal records one call to an external collaborator.
func (s *Service) observeExternal(peer, endpoint string, start time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	s.extCounter.Add(1,
		observability.L("peer", peer),
		observability.L("endpoint", endpoint),
		observability.L("outcome", outcome),
	)
	s.extHistogram.Observe(time.Since(start).Seconds(),
		observability.L("peer", peer),
		observability.L("endpoint", endpoint),
	)
}

// DocumentKey is deterministic per order.
func DocumentKey(orderID string) string {
	return "invoices/" + orderID + ".pdf"
}

func (s *Service) Deliver(ctx context.Context, o *order.Order, contactEmail string) (*checkout.Receipt, error) {
	doc, err := s.renderer.Render(ctx, o)
	if err != nil {
		return nil, fmt.Errorf("receipt: render invoice: %w", err)
	}

	key := DocumentKey(o.ID)
	putStart := time.Now()
	url, err := s.docs.Put(ctx, key, doc, "application/pdf")
	s.observeExternal(peerDocumentStore, endpointPut, putStart, err)
	if err != nil {
		return nil, fmt.Errorf("receipt: store document %s: %w", key, err)
	}

	// Append-only; the finalize gate upstream keeps duplicates to crash-retry
	// windows only.
	inv := invoice.New(s.idGen.NewID(), o.ID, o.UserID, o.Total, url)
	if err := s.invoices.Create(ctx, inv); err != nil {
		return nil, fmt.Errorf("receipt: record invoice: %w", err)
	}

	msg := Message{
		To:      contactEmail,
		Subject: fmt.Sprintf("Your order %s is confirmed", o.ID),
		Body:    receiptBody(o, url),
		Attachment: &Attachment{
			Filename:    o.ID + ".pdf",
			ContentType: "application/pdf",
			Data:        doc,
		},
	}
	sendStart := time.Now()
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.observeExternal(peerMailer, endpointSend, sendStart, err)
		return nil, fmt.Errorf("receipt: send to %s: %w", contactEmail, err)
	}
	s.observeExternal(peerMailer, endpointSend, sendStart, nil)

	s.log.Info("receipt_delivered",
		observability.F("order_id", o.ID),
		observability.F("invoice_id", inv.ID),
		observability.F("document_url", url),
	)
	return &checkout.Receipt{DocumentURL: url}, nil
}

func receiptBody(o *order.Order, url string) string {
	body := fmt.Sprintf("Thank you for your purchase.\n\nOrder %s\n\n", o.ID)
	for _, it := range o.Items {
		body += fmt.Sprintf("  %s x%d  %s\n", it.ProductName, it.Quantity, formatAmount(it.Subtotal()))
	}
	body += fmt.Sprintf("\nTotal: %s\nInvoice: %s\n", formatAmount(o.Total), url)
	return body
}

func formatAmount(minor int64) string {
	return fmt.Sprintf("%d.%02d", minor/100, minor%100)
}
