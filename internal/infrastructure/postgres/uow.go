package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	domcart "github.com/mercato-dev/marketcore/internal/domain/cart"
	domorder "github.com/mercato-dev/marketcore/internal/domain/order"
	domstock "github.com/mercato-dev/marketcore/internal/domain/stock"
	"github.com/mercato-dev/marketcore/internal/domain/storage"
)

// UnitOfWork runs bodies inside one database transaction. Tx-bound stock
// reads take a row lock (SELECT ... FOR UPDATE) so the read-check-write on a
// product is atomic relative to concurrent units of work.
type UnitOfWork struct {
	db      *sqlx.DB
	timeout time.Duration
}

func NewUnitOfWork(db *sqlx.DB, timeout time.Duration) *UnitOfWork {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &UnitOfWork{db: db, timeout: timeout}
}

func (u *UnitOfWork) Within(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	tx, err := u.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return errors.Wrap(err, "postgres: begin")
	}

	if err := fn(ctx, &txBundle{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Wrapf(err, "postgres: rollback failed (%v) after", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "postgres: commit")
	}
	return nil
}

type txBundle struct {
	tx *sqlx.Tx
}

func (t *txBundle) Orders() domorder.Repository { return &OrderRepository{db: t.tx} }
func (t *txBundle) Stock() domstock.Repository  { return &StockRepository{db: t.tx, forUpdate: true} }
func (t *txBundle) Carts() domcart.Repository   { return &CartRepository{db: t.tx} }
