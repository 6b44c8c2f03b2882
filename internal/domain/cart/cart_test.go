package cart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(productID string, price int64, qty int) Item {
	return Item{
		ProductID:   productID,
		ProductName: "product " + productID,
		Price:       price,
		Quantity:    qty,
	}
}

func TestUpsertRecomputesSubtotalsAndTotals(t *testing.T) {
	c := New("buyer-1")

	require.NoError(t, c.Upsert(item("p-1", 100, 2)))
	require.NoError(t, c.Upsert(item("p-2", 50, 1)))

	assert.Equal(t, int64(200), c.Items[0].Subtotal)
	assert.Equal(t, int64(50), c.Items[1].Subtotal)
	assert.Equal(t, 3, c.TotalItems)
	assert.Equal(t, int64(250), c.TotalAmount)

	// Same product accumulates onto the existing line.
	require.NoError(t, c.Upsert(item("p-1", 100, 1)))
	assert.Len(t, c.Items, 2)
	assert.Equal(t, 3, c.Items[0].Quantity)
	assert.Equal(t, int64(300), c.Items[0].Subtotal)
}

func TestSetQuantity(t *testing.T) {
	c := New("buyer-1")
	require.NoError(t, c.Upsert(item("p-1", 100, 2)))

	require.NoError(t, c.SetQuantity("p-1", 5))
	assert.Equal(t, 5, c.Items[0].Quantity)
	assert.Equal(t, int64(500), c.Items[0].Subtotal)

	t.Run("zero or negative removes the line", func(t *testing.T) {
		require.NoError(t, c.SetQuantity("p-1", 0))
		assert.Empty(t, c.Items)
		assert.Equal(t, int64(0), c.TotalAmount)
	})

	t.Run("unknown product", func(t *testing.T) {
		assert.ErrorIs(t, c.SetQuantity("nope", 1), ErrItemNotFound)
	})
}

func TestClearKeepsDocument(t *testing.T) {
	c := New("buyer-1")
	require.NoError(t, c.Upsert(item("p-1", 100, 2)))

	c.Clear()
	assert.NotNil(t, c.Items)
	assert.Empty(t, c.Items)
	assert.Equal(t, 0, c.TotalItems)
	assert.Equal(t, int64(0), c.TotalAmount)
	assert.Equal(t, "buyer-1", c.BuyerID)
}

func TestMergeMaxQuantityWins(t *testing.T) {
	c := New("buyer-1")
	require.NoError(t, c.Upsert(item("p-1", 100, 3)))
	require.NoError(t, c.Upsert(item("p-2", 50, 1)))

	c.Merge([]Item{
		item("p-1", 100, 1), // server quantity is larger, keep 3
		item("p-2", 50, 4),  // external is larger, take 4
		item("p-3", 20, 2),  // external only, append
	})

	require.Len(t, c.Items, 3)
	assert.Equal(t, 3, c.Items[0].Quantity)
	assert.Equal(t, 4, c.Items[1].Quantity)
	assert.Equal(t, 2, c.Items[2].Quantity)
	assert.Equal(t, int64(100*3+50*4+20*2), c.TotalAmount)
}

func TestCloneIsDeep(t *testing.T) {
	c := New("buyer-1")
	require.NoError(t, c.Upsert(item("p-1", 100, 2)))

	clone := c.Clone()
	clone.Items[0].Quantity = 99

	assert.Equal(t, 2, c.Items[0].Quantity)
}
