package memory

import (
	"context"
	"fmt"
	"sync"

	domain "storefront/internal/domain/invoice"
)

type InvoiceRepository struct {
	mu       sync.RWMutex
	invoices []domain.Invoice
}

func NewInvoiceRepository() *InvoiceRepository {
	return &InvoiceRepository{}
}

func (r *InvoiceRepository) Create(ctx context.Context, inv *domain.Invoice) error {
	_ = ctx
	if inv == nil || inv.ID == "" {
		return fmt.Errorf("invoice repository: id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.invoices = append(r.invoices, *inv)
	return nil
}

func (r *InvoiceRepository) ListByOrderID(ctx context.Context, orderID string) ([]domain.Invoice, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.Invoice
	for _, inv := range r.invoices {
		if inv.OrderID == orderID {
			out = append(out, inv)
		}
	}
	return out, nil
}
