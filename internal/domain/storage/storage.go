// Package storage defines the transactional boundary shared by the order,
// stock and cart contexts. The placement path requires order creation, stock
// decrements and cart clearing to commit or abort together; UnitOfWork is that
// contract.
package storage

import (
	"context"

	"github.com/mercato-dev/marketcore/internal/domain/cart"
	"github.com/mercato-dev/marketcore/internal/domain/order"
	"github.com/mercato-dev/marketcore/internal/domain/stock"
)

// Tx exposes repositories bound to one atomic unit of work. Writes through
// them become visible only when the unit commits.
type Tx interface {
	Orders() order.Repository
	Stock() stock.Repository
	Carts() cart.Repository
}

// UnitOfWork runs fn inside one all-or-nothing boundary. Any error returned
// by fn aborts every write made through the Tx; a timed-out context counts as
// an abort. Implementations must make concurrent read-check-write sequences on
// the same product mutually exclusive.
type UnitOfWork interface {
	Within(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
