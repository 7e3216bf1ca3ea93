package checkout

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain/cart"
	"storefront/internal/domain/catalog"
	"storefront/internal/domain/order"
	"storefront/internal/infrastructure/memory"
	"storefront/internal/observability"
)

type seqIDGen struct{ n int }

func (g *seqIDGen) NewID() string {
	g.n++
	return "id-" + strconv.Itoa(g.n)
}

type serviceFixture struct {
	orders    *memory.OrderRepository
	carts     *memory.CartRepository
	store     *memory.CatalogStore
	users     *memory.UserDirectory
	gateway   *fakeGateway
	deliverer *fakeDeliverer
	tel       *fakeTel
	svc       *Service
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	f := &serviceFixture{
		orders:    memory.NewOrderRepository(),
		carts:     memory.NewCartRepository(),
		store:     memory.NewCatalogStore(),
		users:     memory.NewUserDirectory(),
		gateway:   &fakeGateway{},
		deliverer: &fakeDeliverer{},
		tel:       newFakeTel(),
	}
	finalizer := NewFinalizer(f.orders, f.users, f.store, f.deliverer, f.carts, nil, nil)
	f.svc = NewService(NewValidator(f.carts, f.store), f.orders, f.gateway, finalizer, &seqIDGen{}, f.tel)
	return f
}

func (f *serviceFixture) fillCart(t *testing.T, userID string, entries ...cart.Entry) {
	t.Helper()
	for _, e := range entries {
		require.NoError(t, f.carts.Put(context.Background(), userID, e))
	}
}

func TestCheckout_CardOpensIntent(t *testing.T) {
	f := newServiceFixture(t)
	f.store.Seed(catalog.Product{ID: "p1", Name: "Widget", Price: 500, Stock: 10})
	f.fillCart(t, "user-1", cart.Entry{ProductID: "p1", Quantity: 2})

	res, err := f.svc.Checkout(context.Background(), CheckoutInput{
		UserID:       "user-1",
		ContactEmail: "buyer@example.com",
	})

	require.NoError(t, err)
	assert.Equal(t, int64(1000), res.Total)
	assert.Equal(t, order.StatusPendingPayment, res.Status)
	assert.Equal(t, "pi_test_1", res.PaymentIntentID)
	assert.NotEmpty(t, res.ClientSecret)
	assert.Equal(t, res.OrderID, f.gateway.createdInput.OrderID)
	assert.Equal(t, int64(1000), f.gateway.createdInput.Amount)

	assert.Equal(t, 10, f.store.Stock("p1"), "stock is untouched until finalization")
	assert.Equal(t, 0, f.deliverer.deliveries())
}

func TestCheckout_PriceIsSnapshotted(t *testing.T) {
	f := newServiceFixture(t)
	f.store.Seed(catalog.Product{ID: "p1", Name: "Widget", Price: 500, Stock: 10})
	f.fillCart(t, "user-1", cart.Entry{ProductID: "p1", Quantity: 2})

	res, err := f.svc.Checkout(context.Background(), CheckoutInput{UserID: "user-1", ContactEmail: "b@example.com"})
	require.NoError(t, err)

	// A later price change must not move the placed order.
	f.store.Seed(catalog.Product{ID: "p1", Name: "Widget", Price: 9999, Stock: 10})

	o, err := f.svc.Get(context.Background(), res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), o.Total)
	assert.Equal(t, int64(500), o.Items[0].UnitPrice)
}

func TestCheckout_CODFinalizesImmediately(t *testing.T) {
	f := newServiceFixture(t)
	f.store.Seed(catalog.Product{ID: "p1", Name: "Widget", Price: 500, Stock: 10})
	f.fillCart(t, "user-1", cart.Entry{ProductID: "p1", Quantity: 2})

	res, err := f.svc.Checkout(context.Background(), CheckoutInput{
		UserID:        "user-1",
		ContactEmail:  "buyer@example.com",
		PaymentMethod: PaymentMethodCOD,
	})

	require.NoError(t, err)
	assert.Equal(t, order.StatusPaid, res.Status)
	assert.NotEmpty(t, res.InvoiceURL)
	assert.Empty(t, res.PaymentIntentID)
	assert.Equal(t, 8, f.store.Stock("p1"))
	assert.Equal(t, 1, f.deliverer.deliveries())

	entries, err := f.carts.List(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Empty(t, entries, "cart is cleared after finalization")
}

func TestCheckout_UnknownPaymentMethod(t *testing.T) {
	f := newServiceFixture(t)
	f.store.Seed(catalog.Product{ID: "p1", Name: "Widget", Price: 500, Stock: 10})
	f.fillCart(t, "user-1", cart.Entry{ProductID: "p1", Quantity: 1})

	_, err := f.svc.Checkout(context.Background(), CheckoutInput{UserID: "user-1", PaymentMethod: "barter"})

	assert.Error(t, err)
}

func TestVerifyPayment_RefusesUnconfirmedIntent(t *testing.T) {
	f := newServiceFixture(t)
	f.gateway.intent = &PaymentIntent{
		ID:      "pi_test_1",
		Status:  IntentStatusRequiresPayment,
		OrderID: "ord-1",
	}

	_, err := f.svc.VerifyPayment(context.Background(), "pi_test_1")

	assert.ErrorIs(t, err, ErrPaymentNotConfirmed)
}

func TestVerifyPayment_RefusesUncorrelatedIntent(t *testing.T) {
	f := newServiceFixture(t)
	f.gateway.intent = &PaymentIntent{ID: "pi_test_1", Status: IntentStatusSucceeded}

	_, err := f.svc.VerifyPayment(context.Background(), "pi_test_1")

	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestVerifyPayment_FinalizesConfirmedIntent(t *testing.T) {
	f := newServiceFixture(t)
	f.store.Seed(catalog.Product{ID: "p1", Name: "Widget", Price: 500, Stock: 10})
	f.fillCart(t, "user-1", cart.Entry{ProductID: "p1", Quantity: 2})

	placed, err := f.svc.Checkout(context.Background(), CheckoutInput{UserID: "user-1", ContactEmail: "buyer@example.com"})
	require.NoError(t, err)

	f.gateway.intent = &PaymentIntent{
		ID:           "pi_test_1",
		Status:       IntentStatusSucceeded,
		OrderID:      placed.OrderID,
		ContactEmail: "buyer@example.com",
	}

	res, err := f.svc.VerifyPayment(context.Background(), "pi_test_1")

	require.NoError(t, err)
	assert.False(t, res.AlreadyFinalized)
	assert.Equal(t, 8, f.store.Stock("p1"))

	o, err := f.svc.Get(context.Background(), placed.OrderID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusPaid, o.Status)
}

func TestCheckout_RecordsPaymentProviderCall(t *testing.T) {
	f := newServiceFixture(t)
	f.store.Seed(catalog.Product{ID: "p1", Name: "Widget", Price: 500, Stock: 10})
	f.fillCart(t, "user-1", cart.Entry{ProductID: "p1", Quantity: 2})

	_, err := f.svc.Checkout(context.Background(), CheckoutInput{UserID: "user-1", ContactEmail: "b@example.com"})
	require.NoError(t, err)

	counter := f.tel.Counter(observability.MExternalRequests).(*recordingCounter)
	assert.Equal(t, 1, counter.count(map[string]string{
		"peer":     peerPaymentProvider,
		"endpoint": endpointCreateIntent,
		"outcome":  "success",
	}))
	hist := f.tel.Histogram(observability.MExternalRequestDuration).(*recordingHistogram)
	assert.GreaterOrEqual(t, hist.count(), 1)
}

func TestVerifyPayment_RecordsProviderFailure(t *testing.T) {
	f := newServiceFixture(t)
	f.gateway.retrieveErr = errors.New("provider down")

	_, err := f.svc.VerifyPayment(context.Background(), "pi_test_1")
	require.Error(t, err)

	counter := f.tel.Counter(observability.MExternalRequests).(*recordingCounter)
	assert.Equal(t, 1, counter.count(map[string]string{
		"peer":     peerPaymentProvider,
		"endpoint": endpointRetrieveIntent,
		"outcome":  "error",
	}))
}

func TestCancel_PendingOrder(t *testing.T) {
	f := newServiceFixture(t)
	f.store.Seed(catalog.Product{ID: "p1", Name: "Widget", Price: 500, Stock: 10})
	f.fillCart(t, "user-1", cart.Entry{ProductID: "p1", Quantity: 1})

	placed, err := f.svc.Checkout(context.Background(), CheckoutInput{UserID: "user-1", ContactEmail: "b@example.com"})
	require.NoError(t, err)

	require.NoError(t, f.svc.Cancel(context.Background(), placed.OrderID))

	o, err := f.svc.Get(context.Background(), placed.OrderID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusCancelled, o.Status)

	// A late webhook for the cancelled order must be rejected as terminal.
	_, err = f.svc.Finalize(context.Background(), placed.OrderID, "b@example.com")
	assert.ErrorIs(t, err, order.ErrInvalidTransition)
	assert.True(t, IsTerminal(err))
}

func TestCancel_PaidOrderIsFrozen(t *testing.T) {
	f := newServiceFixture(t)
	f.store.Seed(catalog.Product{ID: "p1", Name: "Widget", Price: 500, Stock: 10})
	f.fillCart(t, "user-1", cart.Entry{ProductID: "p1", Quantity: 1})

	placed, err := f.svc.Checkout(context.Background(), CheckoutInput{
		UserID:        "user-1",
		ContactEmail:  "b@example.com",
		PaymentMethod: PaymentMethodCOD,
	})
	require.NoError(t, err)

	err = f.svc.Cancel(context.Background(), placed.OrderID)
	assert.ErrorIs(t, err, order.ErrInvalidTransition)
}
