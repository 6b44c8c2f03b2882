package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	domain "github.com/mercato-dev/marketcore/internal/domain/stock"
)

type productRow struct {
	ID         string    `db:"id"`
	Name       string    `db:"name"`
	Image      string    `db:"image"`
	Price      int64     `db:"price"`
	ProviderID string    `db:"provider_id"`
	Stock      int       `db:"stock"`
	Available  bool      `db:"available"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

func (r productRow) toDomain() *domain.Product {
	return &domain.Product{
		ID:         r.ID,
		Name:       r.Name,
		Image:      r.Image,
		Price:      r.Price,
		ProviderID: r.ProviderID,
		Stock:      r.Stock,
		Available:  r.Available,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

type movementRow struct {
	ID            string    `db:"id"`
	ProductID     string    `db:"product_id"`
	Type          string    `db:"type"`
	Quantity      int       `db:"quantity"`
	PreviousStock int       `db:"previous_stock"`
	NewStock      int       `db:"new_stock"`
	Reason        string    `db:"reason"`
	ActorID       string    `db:"actor_id"`
	ActorRole     string    `db:"actor_role"`
	CreatedAt     time.Time `db:"created_at"`
}

func (r movementRow) toDomain() *domain.Movement {
	return &domain.Movement{
		ID:            r.ID,
		ProductID:     r.ProductID,
		Type:          domain.Operation(r.Type),
		Quantity:      r.Quantity,
		PreviousStock: r.PreviousStock,
		NewStock:      r.NewStock,
		Reason:        r.Reason,
		ActorID:       r.ActorID,
		ActorRole:     r.ActorRole,
		CreatedAt:     r.CreatedAt,
	}
}

// StockRepository reads and writes products and their movement ledger. When
// forUpdate is set (tx-bound repos), Get takes a row lock so the
// read-check-write of a stock change is atomic.
type StockRepository struct {
	db        sqlx.ExtContext
	forUpdate bool
}

func NewStockRepository(db *sqlx.DB) *StockRepository {
	return &StockRepository{db: db}
}

const getProductQuery = `
	SELECT id, name, image, price, provider_id, stock, available, created_at, updated_at
	FROM products
	WHERE id = $1`

func (r *StockRepository) Get(ctx context.Context, productID string) (*domain.Product, error) {
	query := getProductQuery
	if r.forUpdate {
		query += " FOR UPDATE"
	}

	var row productRow
	err := sqlx.GetContext(ctx, r.db, &row, query, productID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrProductNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "postgres: get product")
	}
	return row.toDomain(), nil
}

func (r *StockRepository) Save(ctx context.Context, p *domain.Product) error {
	const query = `
		INSERT INTO products (id, name, image, price, provider_id, stock, available, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			image = EXCLUDED.image,
			price = EXCLUDED.price,
			provider_id = EXCLUDED.provider_id,
			stock = EXCLUDED.stock,
			available = EXCLUDED.available,
			updated_at = EXCLUDED.updated_at`

	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.Name, p.Image, p.Price, p.ProviderID, p.Stock, p.Available, p.CreatedAt, p.UpdatedAt,
	)
	return errors.Wrap(err, "postgres: save product")
}

func (r *StockRepository) AppendMovement(ctx context.Context, m *domain.Movement) error {
	const query = `
		INSERT INTO stock_movements
			(id, product_id, type, quantity, previous_stock, new_stock, reason, actor_id, actor_role, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.ExecContext(ctx, query,
		m.ID, m.ProductID, string(m.Type), m.Quantity, m.PreviousStock, m.NewStock,
		m.Reason, m.ActorID, m.ActorRole, m.CreatedAt,
	)
	return errors.Wrap(err, "postgres: append movement")
}

func (r *StockRepository) Movements(ctx context.Context, productID string, limit int) ([]*domain.Movement, error) {
	const query = `
		SELECT id, product_id, type, quantity, previous_stock, new_stock, reason, actor_id, actor_role, created_at
		FROM stock_movements
		WHERE product_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`

	var rows []movementRow
	if err := sqlx.SelectContext(ctx, r.db, &rows, query, productID, limit); err != nil {
		return nil, errors.Wrap(err, "postgres: list movements")
	}

	out := make([]*domain.Movement, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *StockRepository) LowStock(ctx context.Context, threshold int) ([]*domain.Product, error) {
	const query = `
		SELECT id, name, image, price, provider_id, stock, available, created_at, updated_at
		FROM products
		WHERE available = TRUE AND stock < $1
		ORDER BY stock ASC, id ASC`

	var rows []productRow
	if err := sqlx.SelectContext(ctx, r.db, &rows, query, threshold); err != nil {
		return nil, errors.Wrap(err, "postgres: low stock")
	}

	out := make([]*domain.Product, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}
