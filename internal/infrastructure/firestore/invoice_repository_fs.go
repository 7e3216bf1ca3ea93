package firestore

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"storefront/internal/domain/invoice"
)

type InvoiceRepository struct {
	client *firestore.Client
}

func NewInvoiceRepository(client *firestore.Client) *InvoiceRepository {
	return &InvoiceRepository{client: client}
}

type invoiceDoc struct {
	OrderID     string    `firestore:"orderId"`
	UserID      string    `firestore:"userId"`
	Amount      int64     `firestore:"amount"`
	Status      string    `firestore:"status"`
	DocumentURL string    `firestore:"documentUrl"`
	CreatedAt   time.Time `firestore:"createdAt"`
}

func (r *InvoiceRepository) col() *firestore.CollectionRef {
	return r.client.Collection(colInvoices)
}

func (r *InvoiceRepository) Create(ctx context.Context, inv *invoice.Invoice) error {
	if inv == nil || inv.ID == "" {
		return errors.New("invoice repository: id is required")
	}

	_, err := r.col().Doc(inv.ID).Create(ctx, invoiceDoc{
		OrderID:     inv.OrderID,
		UserID:      inv.UserID,
		Amount:      inv.Amount,
		Status:      string(inv.Status),
		DocumentURL: inv.DocumentURL,
		CreatedAt:   inv.CreatedAt,
	})
	return err
}

func (r *InvoiceRepository) ListByOrderID(ctx context.Context, orderID string) ([]invoice.Invoice, error) {
	it := r.col().Where("orderId", "==", orderID).Documents(ctx)
	defer it.Stop()

	var out []invoice.Invoice
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}

		var d invoiceDoc
		if err := snap.DataTo(&d); err != nil {
			return nil, err
		}
		out = append(out, invoice.Invoice{
			ID:          snap.Ref.ID,
			OrderID:     d.OrderID,
			UserID:      d.UserID,
			Amount:      d.Amount,
			Status:      invoice.Status(d.Status),
			DocumentURL: d.DocumentURL,
			CreatedAt:   d.CreatedAt,
		})
	}
	return out, nil
}
