package order

import (
	"context"

	domcart "github.com/mercato-dev/marketcore/internal/domain/cart"
	domstock "github.com/mercato-dev/marketcore/internal/domain/stock"
)

type IDGenerator interface {
	NewID() string
}

// StockLedger is the advisory pre-check contract. The authoritative guard is
// the atomic decrement inside the unit of work; this only short-circuits
// doomed placements before any lock is taken.
type StockLedger interface {
	Validate(ctx context.Context, lines []domstock.Line) (*domstock.Validation, error)
}

// CartAggregator is the slice of the cart service the orchestrator needs.
type CartAggregator interface {
	Get(ctx context.Context, buyerID string) (*domcart.Cart, error)
}
