package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	domain "github.com/mercato-dev/marketcore/internal/domain/cart"
)

type cartRow struct {
	BuyerID     string    `db:"buyer_id"`
	Items       []byte    `db:"items"`
	TotalItems  int       `db:"total_items"`
	TotalAmount int64     `db:"total_amount"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// CartRepository persists carts as one document per buyer: the item list is a
// jsonb column, matching the all-or-nothing whole-cart write contract.
type CartRepository struct {
	db sqlx.ExtContext
}

func NewCartRepository(db *sqlx.DB) *CartRepository {
	return &CartRepository{db: db}
}

func (r *CartRepository) Get(ctx context.Context, buyerID string) (*domain.Cart, error) {
	const query = `
		SELECT buyer_id, items, total_items, total_amount, created_at, updated_at
		FROM carts
		WHERE buyer_id = $1`

	var row cartRow
	err := sqlx.GetContext(ctx, r.db, &row, query, buyerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "postgres: get cart")
	}

	var items []domain.Item
	if err := json.Unmarshal(row.Items, &items); err != nil {
		return nil, errors.Wrap(err, "postgres: decode cart items")
	}
	return &domain.Cart{
		BuyerID:     row.BuyerID,
		Items:       items,
		TotalItems:  row.TotalItems,
		TotalAmount: row.TotalAmount,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}, nil
}

func (r *CartRepository) Save(ctx context.Context, c *domain.Cart) error {
	items, err := json.Marshal(c.Items)
	if err != nil {
		return errors.Wrap(err, "postgres: encode cart items")
	}

	const query = `
		INSERT INTO carts (buyer_id, items, total_items, total_amount, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (buyer_id) DO UPDATE SET
			items = EXCLUDED.items,
			total_items = EXCLUDED.total_items,
			total_amount = EXCLUDED.total_amount,
			updated_at = EXCLUDED.updated_at`

	_, err = r.db.ExecContext(ctx, query,
		c.BuyerID, items, c.TotalItems, c.TotalAmount, c.CreatedAt, c.UpdatedAt,
	)
	return errors.Wrap(err, "postgres: save cart")
}
