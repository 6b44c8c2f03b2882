package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrder(t *testing.T) *Order {
	t.Helper()
	o, err := New(
		"o-1", "ORD-00000001", "buyer-1",
		[]Item{
			{ProductID: "p-1", ProductName: "Mug", Price: 100, Quantity: 2},
			{ProductID: "p-2", ProductName: "Plate", Price: 50, Quantity: 1},
		},
		700, 0, 0,
		"standard",
		Address{City: "Lisbon"}, Address{City: "Lisbon"},
		"card",
	)
	require.NoError(t, err)
	return o
}

func TestNewOrder(t *testing.T) {
	o := newTestOrder(t)

	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, int64(250), o.Subtotal)
	assert.Equal(t, int64(950), o.TotalAmount)
	assert.Equal(t, int64(250), o.Items[0].Subtotal+o.Items[1].Subtotal)
	require.Len(t, o.StatusHistory, 1)
	assert.Equal(t, StatusPending, o.StatusHistory[0].Status)
	assert.Equal(t, "pending", o.Payment.Status)
	assert.Equal(t, o.TotalAmount, o.Payment.Amount)

	_, err := New("o-2", "ORD-2", "buyer-1", nil, 0, 0, 0, "standard", Address{}, Address{}, "card")
	assert.ErrorIs(t, err, ErrNoItems)
}

func TestItemsAreFrozenCopies(t *testing.T) {
	items := []Item{{ProductID: "p-1", Price: 100, Quantity: 1}}
	o, err := New("o-1", "ORD-1", "buyer-1", items, 0, 0, 0, "standard", Address{}, Address{}, "card")
	require.NoError(t, err)

	items[0].Quantity = 42
	assert.Equal(t, 1, o.Items[0].Quantity)
}

func TestStatusMachine(t *testing.T) {
	cases := []struct {
		from    Status
		to      Status
		allowed bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusShipped, false},
		{StatusConfirmed, StatusPreparing, true},
		{StatusConfirmed, StatusCancelled, true},
		{StatusPreparing, StatusShipped, true},
		{StatusPreparing, StatusCancelled, true},
		{StatusShipped, StatusDelivered, true},
		{StatusShipped, StatusCancelled, false},
		{StatusDelivered, StatusCancelled, false},
		{StatusCancelled, StatusPending, false},
		{StatusDelivered, StatusPending, false},
	}
	for _, tc := range cases {
		assert.Equalf(t, tc.allowed, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestTransitionAppendsHistoryAndStampsTimestamps(t *testing.T) {
	o := newTestOrder(t)

	require.NoError(t, o.TransitionTo(StatusConfirmed, "payment ok", "system"))
	require.NoError(t, o.TransitionTo(StatusPreparing, "", "provider-1"))
	require.NoError(t, o.TransitionTo(StatusShipped, "handed to carrier", "provider-1"))
	require.NotNil(t, o.ShippedAt)
	assert.Nil(t, o.DeliveredAt)

	require.NoError(t, o.TransitionTo(StatusDelivered, "", "carrier"))
	require.NotNil(t, o.DeliveredAt)

	assert.Len(t, o.StatusHistory, 5)
	assert.Equal(t, StatusDelivered, o.Status)

	err := o.TransitionTo(StatusPending, "", "system")
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)
	assert.Len(t, o.StatusHistory, 5)
}

func TestCancel(t *testing.T) {
	t.Run("from pending", func(t *testing.T) {
		o := newTestOrder(t)
		require.NoError(t, o.Cancel("changed my mind", "buyer-1"))

		assert.Equal(t, StatusCancelled, o.Status)
		assert.Equal(t, "changed my mind", o.CancellationReason)
		assert.Equal(t, "buyer-1", o.CancelledBy)
		require.NotNil(t, o.CancelledAt)
		assert.Len(t, o.StatusHistory, 2)
	})

	t.Run("delivered is terminal", func(t *testing.T) {
		o := newTestOrder(t)
		require.NoError(t, o.TransitionTo(StatusConfirmed, "", ""))
		require.NoError(t, o.TransitionTo(StatusPreparing, "", ""))
		require.NoError(t, o.TransitionTo(StatusShipped, "", ""))
		require.NoError(t, o.TransitionTo(StatusDelivered, "", ""))

		before := len(o.StatusHistory)
		err := o.Cancel("too late", "buyer-1")
		assert.ErrorIs(t, err, ErrInvalidStatusTransition)
		assert.Equal(t, StatusDelivered, o.Status)
		assert.Len(t, o.StatusHistory, before)
		assert.Nil(t, o.CancelledAt)
	})
}

func TestCloneIsDeep(t *testing.T) {
	o := newTestOrder(t)
	clone := o.Clone()

	clone.Items[0].Quantity = 99
	require.NoError(t, clone.Cancel("x", "buyer-1"))

	assert.Equal(t, 2, o.Items[0].Quantity)
	assert.Equal(t, StatusPending, o.Status)
	assert.Len(t, o.StatusHistory, 1)
}
