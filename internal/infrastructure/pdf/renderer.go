// Package pdf renders invoice documents.
package pdf

import (
	"bytes"
	"context"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"storefront/internal/domain/order"
)

// InvoiceRenderer produces a single-page A4 invoice listing the captured line
// items and the order total. Amounts are minor currency units on the order and
// are printed as major units with two decimals.
type InvoiceRenderer struct {
	// SellerName is printed in the document header.
	SellerName string
}

func NewInvoiceRenderer(sellerName string) *InvoiceRenderer {
	return &InvoiceRenderer{SellerName: sellerName}
}

func (r *InvoiceRenderer) Render(ctx context.Context, o *order.Order) ([]byte, error) {
	_ = ctx
	if o == nil {
		return nil, fmt.Errorf("pdf: order is nil")
	}

	doc := gofpdf.New("P", "mm", "A4", "")
	doc.SetTitle(fmt.Sprintf("Invoice %s", o.ID), false)
	doc.AddPage()

	doc.SetFont("Helvetica", "B", 18)
	doc.Cell(0, 10, r.SellerName)
	doc.Ln(12)

	doc.SetFont("Helvetica", "", 11)
	doc.Cell(0, 6, fmt.Sprintf("Invoice for order %s", o.ID))
	doc.Ln(6)
	doc.Cell(0, 6, fmt.Sprintf("Date: %s", o.CreatedAt.Format("2006-01-02")))
	doc.Ln(10)

	doc.SetFont("Helvetica", "B", 10)
	doc.CellFormat(90, 8, "Item", "1", 0, "L", false, 0, "")
	doc.CellFormat(20, 8, "Qty", "1", 0, "R", false, 0, "")
	doc.CellFormat(35, 8, "Unit price", "1", 0, "R", false, 0, "")
	doc.CellFormat(35, 8, "Subtotal", "1", 1, "R", false, 0, "")

	doc.SetFont("Helvetica", "", 10)
	for _, li := range o.Items {
		doc.CellFormat(90, 8, li.ProductName, "1", 0, "L", false, 0, "")
		doc.CellFormat(20, 8, fmt.Sprintf("%d", li.Quantity), "1", 0, "R", false, 0, "")
		doc.CellFormat(35, 8, money(li.UnitPrice), "1", 0, "R", false, 0, "")
		doc.CellFormat(35, 8, money(li.Subtotal()), "1", 1, "R", false, 0, "")
	}

	doc.SetFont("Helvetica", "B", 11)
	doc.CellFormat(145, 9, "Total", "1", 0, "R", false, 0, "")
	doc.CellFormat(35, 9, money(o.Total), "1", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf: render invoice for order %s: %w", o.ID, err)
	}
	return buf.Bytes(), nil
}

func money(minor int64) string {
	return fmt.Sprintf("%d.%02d", minor/100, minor%100)
}
