package receipt

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain/invoice"
	"storefront/internal/domain/order"
	"storefront/internal/infrastructure/memory"
	"storefront/internal/observability"
)

type staticIDGen struct{ id string }

func (g staticIDGen) NewID() string { return g.id }

type fakeRenderer struct {
	doc []byte
	err error
}

func (r *fakeRenderer) Render(_ context.Context, _ *order.Order) ([]byte, error) {
	return r.doc, r.err
}

type fakeMailer struct {
	sent []Message
	err  error
}

func (m *fakeMailer) Send(_ context.Context, msg Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

// stubCounter records labeled increments; the deliver tests assert on the
// external-call counter only.
type stubCounter struct {
	adds []map[string]string
}

func (c *stubCounter) Add(_ float64, labels ...observability.Label) {
	set := make(map[string]string, len(labels))
	for _, l := range labels {
		set[l.Key] = l.Value
	}
	c.adds = append(c.adds, set)
}

func (c *stubCounter) count(want map[string]string) int {
	n := 0
	for _, set := range c.adds {
		matched := true
		for k, v := range want {
			if set[k] != v {
				matched = false
				break
			}
		}
		if matched {
			n++
		}
	}
	return n
}

type stubMetrics struct{ ext *stubCounter }

func (m *stubMetrics) Counter(name observability.MetricKey) observability.Counter {
	if name == observability.MExternalRequests {
		return m.ext
	}
	return observability.NopCounter()
}

func (m *stubMetrics) Histogram(_ observability.MetricKey) observability.Histogram {
	return observability.NopHistogram()
}

type stubTel struct{ metrics *stubMetrics }

func (t stubTel) Tracer() observability.Tracer   { return observability.NopTracer() }
func (t stubTel) Logger() observability.Logger   { return observability.NopLogger() }
func (t stubTel) Metrics() observability.Metrics { return t.metrics }

func testOrder(t *testing.T) *order.Order {
	t.Helper()
	o, err := order.New("ord-9", "user-9", []order.LineItem{
		{ProductID: "p1", ProductName: "Widget", Quantity: 2, UnitPrice: 450},
	})
	require.NoError(t, err)
	return o
}

func TestDeliver_StoresRecordsAndMails(t *testing.T) {
	docs := memory.NewDocumentStore()
	invoices := memory.NewInvoiceRepository()
	mailer := &fakeMailer{}
	svc := NewService(&fakeRenderer{doc: []byte("%PDF-fake")}, docs, invoices, mailer, staticIDGen{id: "inv-1"}, nil)

	o := testOrder(t)
	receipt, err := svc.Deliver(context.Background(), o, "buyer@example.com")

	require.NoError(t, err)
	assert.Equal(t, "memory://invoices/ord-9.pdf", receipt.DocumentURL)

	stored, ok := docs.Document(DocumentKey("ord-9"))
	require.True(t, ok)
	assert.Equal(t, []byte("%PDF-fake"), stored)

	recorded, err := invoices.ListByOrderID(context.Background(), "ord-9")
	require.NoError(t, err)
	require.Len(t, recorded, 1)
	assert.Equal(t, "inv-1", recorded[0].ID)
	assert.Equal(t, o.Total, recorded[0].Amount)
	assert.Equal(t, invoice.StatusIssued, recorded[0].Status)
	assert.Equal(t, receipt.DocumentURL, recorded[0].DocumentURL)

	require.Len(t, mailer.sent, 1)
	msg := mailer.sent[0]
	assert.Equal(t, "buyer@example.com", msg.To)
	assert.Contains(t, msg.Subject, "ord-9")
	assert.Contains(t, msg.Body, "Widget x2")
	assert.Contains(t, msg.Body, "Total: 9.00")
	require.NotNil(t, msg.Attachment)
	assert.Equal(t, "ord-9.pdf", msg.Attachment.Filename)
	assert.Equal(t, "application/pdf", msg.Attachment.ContentType)
}

func TestDeliver_RenderFailureStopsEverything(t *testing.T) {
	docs := memory.NewDocumentStore()
	invoices := memory.NewInvoiceRepository()
	mailer := &fakeMailer{}
	svc := NewService(&fakeRenderer{err: errors.New("font missing")}, docs, invoices, mailer, staticIDGen{id: "inv-1"}, nil)

	_, err := svc.Deliver(context.Background(), testOrder(t), "buyer@example.com")

	require.Error(t, err)
	_, ok := docs.Document(DocumentKey("ord-9"))
	assert.False(t, ok)
	assert.Empty(t, mailer.sent)
}

func TestDeliver_MailFailurePropagates(t *testing.T) {
	docs := memory.NewDocumentStore()
	invoices := memory.NewInvoiceRepository()
	mailer := &fakeMailer{err: errors.New("provider down")}
	svc := NewService(&fakeRenderer{doc: []byte("%PDF-fake")}, docs, invoices, mailer, staticIDGen{id: "inv-1"}, nil)

	_, err := svc.Deliver(context.Background(), testOrder(t), "buyer@example.com")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "buyer@example.com")
}

func TestDeliver_RecordsExternalCalls(t *testing.T) {
	ext := &stubCounter{}
	tel := stubTel{metrics: &stubMetrics{ext: ext}}
	docs := memory.NewDocumentStore()
	invoices := memory.NewInvoiceRepository()
	mailer := &fakeMailer{}
	svc := NewService(&fakeRenderer{doc: []byte("%PDF-fake")}, docs, invoices, mailer, staticIDGen{id: "inv-1"}, tel)

	_, err := svc.Deliver(context.Background(), testOrder(t), "buyer@example.com")
	require.NoError(t, err)

	assert.Equal(t, 1, ext.count(map[string]string{
		"peer":     peerDocumentStore,
		"endpoint": endpointPut,
		"outcome":  "success",
	}))
	assert.Equal(t, 1, ext.count(map[string]string{
		"peer":     peerMailer,
		"endpoint": endpointSend,
		"outcome":  "success",
	}))
}

func TestDeliver_RecordsMailerFailure(t *testing.T) {
	ext := &stubCounter{}
	tel := stubTel{metrics: &stubMetrics{ext: ext}}
	docs := memory.NewDocumentStore()
	invoices := memory.NewInvoiceRepository()
	mailer := &fakeMailer{err: errors.New("provider down")}
	svc := NewService(&fakeRenderer{doc: []byte("%PDF-fake")}, docs, invoices, mailer, staticIDGen{id: "inv-1"}, tel)

	_, err := svc.Deliver(context.Background(), testOrder(t), "buyer@example.com")
	require.Error(t, err)

	assert.Equal(t, 1, ext.count(map[string]string{
		"peer":     peerMailer,
		"endpoint": endpointSend,
		"outcome":  "error",
	}))
}
