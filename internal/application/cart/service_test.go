package cart_test

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appcart "github.com/mercato-dev/marketcore/internal/application/cart"
	appstock "github.com/mercato-dev/marketcore/internal/application/stock"
	domcart "github.com/mercato-dev/marketcore/internal/domain/cart"
	domstock "github.com/mercato-dev/marketcore/internal/domain/stock"
	"github.com/mercato-dev/marketcore/internal/infrastructure/memory"
)

type seqIDGen struct{ n int64 }

func (g *seqIDGen) NewID() string {
	return fmt.Sprintf("id-%d", atomic.AddInt64(&g.n, 1))
}

type fixture struct {
	svc      *appcart.Service
	carts    *memory.CartRepository
	products *memory.StockRepository
}

func setup(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	products := memory.NewStockRepository(store)
	carts := memory.NewCartRepository(store)
	ledger := appstock.NewService(products, memory.NewUnitOfWork(store), &seqIDGen{})
	return &fixture{
		svc:      appcart.NewService(carts, products, ledger),
		carts:    carts,
		products: products,
	}
}

func (f *fixture) seed(t *testing.T, id string, price int64, stock int, available bool) {
	t.Helper()
	p, err := domstock.NewProduct(id, "product "+id, id+".jpg", price, "prov-1", stock)
	require.NoError(t, err)
	p.Available = available
	require.NoError(t, f.products.Save(context.Background(), p))
}

func TestGetIsIdempotent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	first, err := f.svc.Get(ctx, "buyer-1")
	require.NoError(t, err)
	assert.Empty(t, first.Items)

	second, err := f.svc.Get(ctx, "buyer-1")
	require.NoError(t, err)
	assert.Equal(t, first.BuyerID, second.BuyerID)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.Equal(t, first.Items, second.Items)
}

func TestAddItemSnapshotsCatalog(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.seed(t, "p-1", 1500, 10, true)

	c, err := f.svc.AddItem(ctx, "buyer-1", "p-1", 2)
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, "product p-1", c.Items[0].ProductName)
	assert.Equal(t, int64(1500), c.Items[0].Price)
	assert.Equal(t, int64(3000), c.Items[0].Subtotal)
	assert.Equal(t, "prov-1", c.Items[0].ProviderID)

	// A later catalog price change must not touch the snapshot.
	p, err := f.products.Get(ctx, "p-1")
	require.NoError(t, err)
	p.Price = 9999
	require.NoError(t, f.products.Save(ctx, p))

	c, err = f.svc.Get(ctx, "buyer-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1500), c.Items[0].Price)
}

func TestAddItemGuards(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.seed(t, "p-hidden", 100, 5, false)

	_, err := f.svc.AddItem(ctx, "buyer-1", "p-hidden", 1)
	assert.ErrorIs(t, err, domstock.ErrProductUnavailable)

	_, err = f.svc.AddItem(ctx, "buyer-1", "missing", 1)
	assert.ErrorIs(t, err, domstock.ErrProductNotFound)

	_, err = f.svc.AddItem(ctx, "buyer-1", "p-hidden", 0)
	assert.ErrorIs(t, err, domcart.ErrInvalidQuantity)
}

func TestUpdateQuantity(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.seed(t, "p-1", 100, 10, true)
	_, err := f.svc.AddItem(ctx, "buyer-1", "p-1", 2)
	require.NoError(t, err)

	c, err := f.svc.UpdateQuantity(ctx, "buyer-1", "p-1", 5)
	require.NoError(t, err)
	assert.Equal(t, 5, c.Items[0].Quantity)
	assert.Equal(t, int64(500), c.TotalAmount)

	t.Run("non-positive quantity removes the item", func(t *testing.T) {
		c, err := f.svc.UpdateQuantity(ctx, "buyer-1", "p-1", 0)
		require.NoError(t, err)
		assert.Empty(t, c.Items)
	})

	t.Run("missing cart", func(t *testing.T) {
		_, err := f.svc.UpdateQuantity(ctx, "buyer-2", "p-1", 1)
		assert.ErrorIs(t, err, domcart.ErrNotFound)
	})
}

func TestRemoveAndClear(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.seed(t, "p-1", 100, 10, true)
	f.seed(t, "p-2", 200, 10, true)
	_, err := f.svc.AddItem(ctx, "buyer-1", "p-1", 1)
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, "buyer-1", "p-2", 1)
	require.NoError(t, err)

	c, err := f.svc.RemoveItem(ctx, "buyer-1", "p-1")
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, "p-2", c.Items[0].ProductID)

	_, err = f.svc.RemoveItem(ctx, "buyer-1", "p-1")
	assert.ErrorIs(t, err, domcart.ErrItemNotFound)

	c, err = f.svc.Clear(ctx, "buyer-1")
	require.NoError(t, err)
	assert.Empty(t, c.Items)

	// Cleared, not deleted: Get returns the same document.
	c, err = f.svc.Get(ctx, "buyer-1")
	require.NoError(t, err)
	assert.Empty(t, c.Items)
}

func TestMerge(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.seed(t, "p-1", 100, 10, true)
	f.seed(t, "p-2", 200, 10, true)
	_, err := f.svc.AddItem(ctx, "buyer-1", "p-1", 3)
	require.NoError(t, err)

	c, err := f.svc.Merge(ctx, "buyer-1", []appcart.MergeInput{
		{ProductID: "p-1", Quantity: 1},       // server wins, keeps 3
		{ProductID: "p-2", Quantity: 2},       // appended with a catalog snapshot
		{ProductID: "missing", Quantity: 4},   // unknown products are skipped
		{ProductID: "p-2", Quantity: 0},       // non-positive quantities are ignored
	})
	require.NoError(t, err)
	require.Len(t, c.Items, 2)
	assert.Equal(t, 3, c.Items[0].Quantity)
	assert.Equal(t, 2, c.Items[1].Quantity)
	assert.Equal(t, int64(200), c.Items[1].Price)
}

func TestValidateStockAggregatesBlockers(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.seed(t, "p-1", 100, 1, true)
	f.seed(t, "p-2", 200, 10, true)
	_, err := f.svc.AddItem(ctx, "buyer-1", "p-1", 3)
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, "buyer-1", "p-2", 2)
	require.NoError(t, err)

	// Hide p-2 after it entered the cart.
	p, err := f.products.Get(ctx, "p-2")
	require.NoError(t, err)
	p.Available = false
	require.NoError(t, f.products.Save(ctx, p))

	v, err := f.svc.ValidateStock(ctx, "buyer-1")
	require.NoError(t, err)
	assert.False(t, v.Valid)
	require.Len(t, v.Errors, 2)
	assert.Equal(t, domstock.Shortfall{ProductID: "p-1", Available: 1, Requested: 3}, v.Errors[0])
	assert.Equal(t, domstock.Shortfall{ProductID: "p-2", Available: 0, Requested: 2}, v.Errors[1])
}
