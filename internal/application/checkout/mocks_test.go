package checkout

import (
	"context"
	"sync"

	"storefront/internal/domain/event"
	"storefront/internal/domain/order"
	"storefront/internal/observability"
)

// fakeGateway implements PaymentGateway for testing.
type fakeGateway struct {
	mu           sync.Mutex
	createdInput CreateIntentInput
	createErr    error

	intent      *PaymentIntent
	retrieveErr error
}

func (g *fakeGateway) CreateIntent(_ context.Context, in CreateIntentInput) (*PaymentIntent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.createdInput = in
	return &PaymentIntent{
		ID:           "pi_test_1",
		ClientSecret: "pi_test_1_secret",
		Status:       IntentStatusRequiresPayment,
		Amount:       in.Amount,
		OrderID:      in.OrderID,
		UserID:       in.UserID,
		ContactEmail: in.ContactEmail,
	}, nil
}

func (g *fakeGateway) RetrieveIntent(_ context.Context, _ string) (*PaymentIntent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.retrieveErr != nil {
		return nil, g.retrieveErr
	}
	return g.intent, nil
}

// fakeDeliverer implements ReceiptDeliverer, counting deliveries.
type fakeDeliverer struct {
	mu       sync.Mutex
	calls    int
	lastTo   string
	err      error
	errOnce  bool // when set, err fires on the first call only
	document string
}

func (d *fakeDeliverer) Deliver(_ context.Context, o *order.Order, contactEmail string) (*Receipt, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	d.lastTo = contactEmail
	if d.err != nil {
		err := d.err
		if d.errOnce {
			d.err = nil
		}
		return nil, err
	}
	url := d.document
	if url == "" {
		url = "https://docs.test/invoices/" + o.ID + ".pdf"
	}
	return &Receipt{DocumentURL: url}, nil
}

func (d *fakeDeliverer) deliveries() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

// fakePublisher records published events.
type fakePublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *fakePublisher) Publish(_ context.Context, e event.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e.EventName())
	return nil
}

// recordingCounter captures labeled increments for metric assertions.
type recordingCounter struct {
	mu   sync.Mutex
	adds []map[string]string
}

func (c *recordingCounter) Add(_ float64, labels ...observability.Label) {
	c.mu.Lock()
	defer c.mu.Unlock()
	set := make(map[string]string, len(labels))
	for _, l := range labels {
		set[l.Key] = l.Value
	}
	c.adds = append(c.adds, set)
}

// count returns how many increments carried all the given labels.
func (c *recordingCounter) count(want map[string]string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
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

type recordingHistogram struct {
	mu           sync.Mutex
	observations int
}

func (h *recordingHistogram) Observe(_ float64, _ ...observability.Label) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.observations++
}

func (h *recordingHistogram) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.observations
}

// fakeTel hands recording instruments to the code under test; tracer and
// logger stay nops.
type fakeTel struct {
	mu         sync.Mutex
	counters   map[observability.MetricKey]*recordingCounter
	histograms map[observability.MetricKey]*recordingHistogram
}

func newFakeTel() *fakeTel {
	return &fakeTel{
		counters:   make(map[observability.MetricKey]*recordingCounter),
		histograms: make(map[observability.MetricKey]*recordingHistogram),
	}
}

func (t *fakeTel) Tracer() observability.Tracer   { return observability.NopTracer() }
func (t *fakeTel) Logger() observability.Logger   { return observability.NopLogger() }
func (t *fakeTel) Metrics() observability.Metrics { return t }

func (t *fakeTel) Counter(name observability.MetricKey) observability.Counter {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.counters[name]
	if !ok {
		c = &recordingCounter{}
		t.counters[name] = c
	}
	return c
}

func (t *fakeTel) Histogram(name observability.MetricKey) observability.Histogram {
	t.mu.Lock()
	defer t.mu.Unlock()
	h, ok := t.histograms[name]
	if !ok {
		h = &recordingHistogram{}
		t.histograms[name] = h
	}
	return h
}
