package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ComputesTotalFromSnapshots(t *testing.T) {
	o, err := New("ord-1", "user-1", []LineItem{
		{ProductID: "p1", ProductName: "Widget", Quantity: 2, UnitPrice: 450},
		{ProductID: "p2", ProductName: "Gadget", Quantity: 1, UnitPrice: 1200},
	})

	require.NoError(t, err)
	assert.Equal(t, int64(2100), o.Total)
	assert.Equal(t, StatusPendingPayment, o.Status)
	assert.Empty(t, o.InvoiceURL)
}

func TestNew_Validation(t *testing.T) {
	_, err := New("ord-1", "user-1", nil)
	assert.ErrorIs(t, err, ErrNoItems)

	_, err = New("ord-1", "user-1", []LineItem{{ProductID: "p1", Quantity: 0, UnitPrice: 100}})
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = New("ord-1", "user-1", []LineItem{{ProductID: "p1", Quantity: 1, UnitPrice: -1}})
	assert.ErrorIs(t, err, ErrInvalidUnitPrice)
}

func TestMarkPaid_Transitions(t *testing.T) {
	o, err := New("ord-1", "user-1", []LineItem{{ProductID: "p1", Quantity: 1, UnitPrice: 100}})
	require.NoError(t, err)

	require.NoError(t, o.MarkPaid("https://docs.test/inv.pdf"))
	assert.Equal(t, StatusPaid, o.Status)
	assert.Equal(t, "https://docs.test/inv.pdf", o.InvoiceURL)

	assert.ErrorIs(t, o.MarkPaid("other"), ErrAlreadyPaid)
	assert.ErrorIs(t, o.Cancel(), ErrInvalidTransition)
}

func TestCancel_OnlyFromPending(t *testing.T) {
	o, err := New("ord-1", "user-1", []LineItem{{ProductID: "p1", Quantity: 1, UnitPrice: 100}})
	require.NoError(t, err)

	require.NoError(t, o.Cancel())
	assert.Equal(t, StatusCancelled, o.Status)

	assert.ErrorIs(t, o.MarkPaid("url"), ErrInvalidTransition)
}

func TestClone_IsIndependent(t *testing.T) {
	o, err := New("ord-1", "user-1", []LineItem{{ProductID: "p1", Quantity: 1, UnitPrice: 100}})
	require.NoError(t, err)

	clone := o.Clone()
	clone.Items[0].Quantity = 99

	assert.Equal(t, 1, o.Items[0].Quantity)
}
