package stock_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appstock "github.com/mercato-dev/marketcore/internal/application/stock"
	domain "github.com/mercato-dev/marketcore/internal/domain/stock"
	"github.com/mercato-dev/marketcore/internal/infrastructure/memory"
)

type seqIDGen struct{ n int64 }

func (g *seqIDGen) NewID() string {
	return fmt.Sprintf("id-%d", atomic.AddInt64(&g.n, 1))
}

func setup(t *testing.T) (*appstock.Service, *memory.StockRepository) {
	t.Helper()
	store := memory.NewStore()
	repo := memory.NewStockRepository(store)
	svc := appstock.NewService(repo, memory.NewUnitOfWork(store), &seqIDGen{})
	return svc, repo
}

func seedProduct(t *testing.T, repo *memory.StockRepository, id string, stock int, available bool) {
	t.Helper()
	p, err := domain.NewProduct(id, "product "+id, "", 1000, "prov-1", stock)
	require.NoError(t, err)
	p.Available = available
	require.NoError(t, repo.Save(context.Background(), p))
}

func TestValidate(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()
	seedProduct(t, repo, "p-1", 5, true)
	seedProduct(t, repo, "p-2", 1, true)
	seedProduct(t, repo, "p-3", 10, false)

	t.Run("all available", func(t *testing.T) {
		v, err := svc.Validate(ctx, []domain.Line{{ProductID: "p-1", Quantity: 5}})
		require.NoError(t, err)
		assert.True(t, v.Valid)
		assert.Empty(t, v.Errors)
	})

	t.Run("aggregates every shortfall", func(t *testing.T) {
		v, err := svc.Validate(ctx, []domain.Line{
			{ProductID: "p-1", Quantity: 6},
			{ProductID: "p-2", Quantity: 2},
			{ProductID: "p-3", Quantity: 1},  // unavailable counts as 0
			{ProductID: "missing", Quantity: 1},
		})
		require.NoError(t, err)
		assert.False(t, v.Valid)
		require.Len(t, v.Errors, 4)
		assert.Equal(t, domain.Shortfall{ProductID: "p-1", Available: 5, Requested: 6}, v.Errors[0])
		assert.Equal(t, domain.Shortfall{ProductID: "p-3", Available: 0, Requested: 1}, v.Errors[2])
	})

	t.Run("never mutates", func(t *testing.T) {
		_, err := svc.Validate(ctx, []domain.Line{{ProductID: "p-1", Quantity: 100}})
		require.NoError(t, err)
		p, err := repo.Get(ctx, "p-1")
		require.NoError(t, err)
		assert.Equal(t, 5, p.Stock)
		movements, err := repo.Movements(ctx, "p-1", 10)
		require.NoError(t, err)
		assert.Empty(t, movements)
	})
}

func TestApply(t *testing.T) {
	ctx := context.Background()

	t.Run("writes exactly one movement per success", func(t *testing.T) {
		svc, repo := setup(t)
		seedProduct(t, repo, "p-1", 5, true)

		result, err := svc.Apply(ctx, appstock.ApplyInput{
			ProductID: "p-1",
			Quantity:  2,
			Operation: domain.OpSale,
			Reason:    "order ORD-00000001",
			Actor:     domain.Actor{ID: "buyer-1", Role: "buyer"},
		})
		require.NoError(t, err)
		assert.Equal(t, 3, result.Product.Stock)
		assert.Equal(t, 5, result.Movement.PreviousStock)
		assert.Equal(t, 3, result.Movement.NewStock)
		assert.Equal(t, 2, result.Movement.Quantity)

		movements, err := repo.Movements(ctx, "p-1", 10)
		require.NoError(t, err)
		require.Len(t, movements, 1)
	})

	t.Run("failure leaves product untouched and writes no movement", func(t *testing.T) {
		svc, repo := setup(t)
		seedProduct(t, repo, "p-1", 1, true)

		_, err := svc.Apply(ctx, appstock.ApplyInput{
			ProductID: "p-1",
			Quantity:  2,
			Operation: domain.OpSale,
		})
		require.ErrorIs(t, err, domain.ErrInsufficientStock)

		var shortfall *domain.ShortfallError
		require.ErrorAs(t, err, &shortfall)
		assert.Equal(t, domain.Shortfall{ProductID: "p-1", Available: 1, Requested: 2}, shortfall.Shortfalls[0])

		p, err := repo.Get(ctx, "p-1")
		require.NoError(t, err)
		assert.Equal(t, 1, p.Stock)
		movements, err := repo.Movements(ctx, "p-1", 10)
		require.NoError(t, err)
		assert.Empty(t, movements)
	})

	t.Run("unknown operation", func(t *testing.T) {
		svc, repo := setup(t)
		seedProduct(t, repo, "p-1", 1, true)
		_, err := svc.Apply(ctx, appstock.ApplyInput{ProductID: "p-1", Quantity: 1, Operation: "refund"})
		assert.ErrorIs(t, err, domain.ErrInvalidOperation)
	})

	t.Run("set is absolute", func(t *testing.T) {
		svc, _ := setup(t)
		_, err := svc.Apply(ctx, appstock.ApplyInput{ProductID: "missing", Quantity: 1, Operation: domain.OpSet})
		assert.ErrorIs(t, err, domain.ErrProductNotFound)
	})
}

// A concurrent burst of sales collectively requesting more than available
// stock must end at exactly zero: enough applies succeed to exhaust stock,
// the rest fail, and stock never goes negative.
func TestConcurrentSalesNeverDriveStockNegative(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()

	const initial = 10
	const workers = 25
	seedProduct(t, repo, "p-1", initial, true)

	var wg sync.WaitGroup
	var successes int64
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Apply(ctx, appstock.ApplyInput{
				ProductID: "p-1",
				Quantity:  1,
				Operation: domain.OpSale,
				Reason:    "burst",
			})
			if err == nil {
				atomic.AddInt64(&successes, 1)
			} else {
				assert.ErrorIs(t, err, domain.ErrInsufficientStock)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, initial, successes)

	p, err := repo.Get(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, 0, p.Stock)

	movements, err := repo.Movements(ctx, "p-1", workers)
	require.NoError(t, err)
	assert.Len(t, movements, initial)
}

// Replaying the movement sequence oldest-first from the initial stock must
// reproduce the current stock exactly.
func TestLedgerReplayReproducesStock(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()
	seedProduct(t, repo, "p-1", 20, true)

	steps := []appstock.ApplyInput{
		{ProductID: "p-1", Quantity: 5, Operation: domain.OpSale},
		{ProductID: "p-1", Quantity: 3, Operation: domain.OpAdd},
		{ProductID: "p-1", Quantity: 7, Operation: domain.OpSubtract},
		{ProductID: "p-1", Quantity: 30, Operation: domain.OpSet},
		{ProductID: "p-1", Quantity: 4, Operation: domain.OpPurchase},
	}
	for _, step := range steps {
		_, err := svc.Apply(ctx, step)
		require.NoError(t, err)
	}

	movements, err := svc.History(ctx, "p-1", 50)
	require.NoError(t, err)
	require.Len(t, movements, len(steps))

	// History is newest-first; replay oldest-first.
	replayed := 20
	for i := len(movements) - 1; i >= 0; i-- {
		m := movements[i]
		assert.Equal(t, replayed, m.PreviousStock)
		replayed = m.NewStock
	}

	p, err := repo.Get(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, p.Stock, replayed)
	assert.Equal(t, 34, p.Stock)
}

func TestHistoryOrderingAndLimit(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()
	seedProduct(t, repo, "p-1", 100, true)

	for i := 0; i < 5; i++ {
		_, err := svc.Apply(ctx, appstock.ApplyInput{ProductID: "p-1", Quantity: 1, Operation: domain.OpSale})
		require.NoError(t, err)
	}

	movements, err := svc.History(ctx, "p-1", 3)
	require.NoError(t, err)
	require.Len(t, movements, 3)
	// Newest first: the last sale took stock from 96 to 95.
	assert.Equal(t, 95, movements[0].NewStock)
	assert.Equal(t, 96, movements[1].NewStock)
	assert.Equal(t, 97, movements[2].NewStock)
}

func TestLowStock(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()
	seedProduct(t, repo, "p-1", 2, true)
	seedProduct(t, repo, "p-2", 10, true)
	seedProduct(t, repo, "p-3", 1, false) // hidden products are excluded

	products, err := svc.LowStock(ctx, 5)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "p-1", products[0].ID)
}
