package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	domain "github.com/mercato-dev/marketcore/internal/domain/order"
)

type orderRow struct {
	ID                 string         `db:"id"`
	OrderNumber        string         `db:"order_number"`
	BuyerID            string         `db:"buyer_id"`
	Items              []byte         `db:"items"`
	Subtotal           int64          `db:"subtotal"`
	ShippingCost       int64          `db:"shipping_cost"`
	Tax                int64          `db:"tax"`
	Discount           int64          `db:"discount"`
	TotalAmount        int64          `db:"total_amount"`
	Status             string         `db:"status"`
	StatusHistory      []byte         `db:"status_history"`
	ShippingMethod     string         `db:"shipping_method"`
	ShippingAddress    []byte         `db:"shipping_address"`
	BillingAddress     []byte         `db:"billing_address"`
	Payment            []byte         `db:"payment"`
	Tracking           []byte         `db:"tracking"`
	Notes              string         `db:"notes"`
	CancellationReason string         `db:"cancellation_reason"`
	CancelledAt        sql.NullTime   `db:"cancelled_at"`
	CancelledBy        string         `db:"cancelled_by"`
	ShippedAt          sql.NullTime   `db:"shipped_at"`
	DeliveredAt        sql.NullTime   `db:"delivered_at"`
	CreatedAt          time.Time      `db:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at"`
}

const orderColumns = `
	id, order_number, buyer_id, items, subtotal, shipping_cost, tax, discount,
	total_amount, status, status_history, shipping_method, shipping_address,
	billing_address, payment, tracking, notes, cancellation_reason,
	cancelled_at, cancelled_by, shipped_at, delivered_at, created_at, updated_at`

func (r orderRow) toDomain() (*domain.Order, error) {
	o := &domain.Order{
		ID:                 r.ID,
		OrderNumber:        r.OrderNumber,
		BuyerID:            r.BuyerID,
		Subtotal:           r.Subtotal,
		ShippingCost:       r.ShippingCost,
		Tax:                r.Tax,
		Discount:           r.Discount,
		TotalAmount:        r.TotalAmount,
		Status:             domain.Status(r.Status),
		ShippingMethod:     r.ShippingMethod,
		Notes:              r.Notes,
		CancellationReason: r.CancellationReason,
		CancelledBy:        r.CancelledBy,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
	if err := json.Unmarshal(r.Items, &o.Items); err != nil {
		return nil, errors.Wrap(err, "decode items")
	}
	if err := json.Unmarshal(r.StatusHistory, &o.StatusHistory); err != nil {
		return nil, errors.Wrap(err, "decode status history")
	}
	if err := json.Unmarshal(r.ShippingAddress, &o.ShippingAddress); err != nil {
		return nil, errors.Wrap(err, "decode shipping address")
	}
	if err := json.Unmarshal(r.BillingAddress, &o.BillingAddress); err != nil {
		return nil, errors.Wrap(err, "decode billing address")
	}
	if err := json.Unmarshal(r.Payment, &o.Payment); err != nil {
		return nil, errors.Wrap(err, "decode payment")
	}
	if err := json.Unmarshal(r.Tracking, &o.Tracking); err != nil {
		return nil, errors.Wrap(err, "decode tracking")
	}
	if r.CancelledAt.Valid {
		t := r.CancelledAt.Time
		o.CancelledAt = &t
	}
	if r.ShippedAt.Valid {
		t := r.ShippedAt.Time
		o.ShippedAt = &t
	}
	if r.DeliveredAt.Valid {
		t := r.DeliveredAt.Time
		o.DeliveredAt = &t
	}
	return o, nil
}

func toRow(o *domain.Order) (*orderRow, error) {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return nil, errors.Wrap(err, "encode items")
	}
	history, err := json.Marshal(o.StatusHistory)
	if err != nil {
		return nil, errors.Wrap(err, "encode status history")
	}
	shipping, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return nil, errors.Wrap(err, "encode shipping address")
	}
	billing, err := json.Marshal(o.BillingAddress)
	if err != nil {
		return nil, errors.Wrap(err, "encode billing address")
	}
	payment, err := json.Marshal(o.Payment)
	if err != nil {
		return nil, errors.Wrap(err, "encode payment")
	}
	tracking, err := json.Marshal(o.Tracking)
	if err != nil {
		return nil, errors.Wrap(err, "encode tracking")
	}

	row := &orderRow{
		ID:                 o.ID,
		OrderNumber:        o.OrderNumber,
		BuyerID:            o.BuyerID,
		Items:              items,
		Subtotal:           o.Subtotal,
		ShippingCost:       o.ShippingCost,
		Tax:                o.Tax,
		Discount:           o.Discount,
		TotalAmount:        o.TotalAmount,
		Status:             string(o.Status),
		StatusHistory:      history,
		ShippingMethod:     o.ShippingMethod,
		ShippingAddress:    shipping,
		BillingAddress:     billing,
		Payment:            payment,
		Tracking:           tracking,
		Notes:              o.Notes,
		CancellationReason: o.CancellationReason,
		CancelledBy:        o.CancelledBy,
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
	}
	if o.CancelledAt != nil {
		row.CancelledAt = sql.NullTime{Time: *o.CancelledAt, Valid: true}
	}
	if o.ShippedAt != nil {
		row.ShippedAt = sql.NullTime{Time: *o.ShippedAt, Valid: true}
	}
	if o.DeliveredAt != nil {
		row.DeliveredAt = sql.NullTime{Time: *o.DeliveredAt, Valid: true}
	}
	return row, nil
}

type OrderRepository struct {
	db sqlx.ExtContext
}

func NewOrderRepository(db *sqlx.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Insert(ctx context.Context, o *domain.Order) error {
	row, err := toRow(o)
	if err != nil {
		return err
	}

	const query = `
		INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23, $24)`

	_, err = r.db.ExecContext(ctx, query,
		row.ID, row.OrderNumber, row.BuyerID, row.Items, row.Subtotal,
		row.ShippingCost, row.Tax, row.Discount, row.TotalAmount, row.Status,
		row.StatusHistory, row.ShippingMethod, row.ShippingAddress,
		row.BillingAddress, row.Payment, row.Tracking, row.Notes,
		row.CancellationReason, row.CancelledAt, row.CancelledBy,
		row.ShippedAt, row.DeliveredAt, row.CreatedAt, row.UpdatedAt,
	)
	return errors.Wrap(err, "postgres: insert order")
}

func (r *OrderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	const query = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	var row orderRow
	err := sqlx.GetContext(ctx, r.db, &row, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "postgres: get order")
	}
	return row.toDomain()
}

func (r *OrderRepository) Update(ctx context.Context, o *domain.Order) error {
	row, err := toRow(o)
	if err != nil {
		return err
	}

	const query = `
		UPDATE orders SET
			status = $2, status_history = $3, tracking = $4,
			cancellation_reason = $5, cancelled_at = $6, cancelled_by = $7,
			shipped_at = $8, delivered_at = $9, updated_at = $10
		WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query,
		row.ID, row.Status, row.StatusHistory, row.Tracking,
		row.CancellationReason, row.CancelledAt, row.CancelledBy,
		row.ShippedAt, row.DeliveredAt, row.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "postgres: update order")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *OrderRepository) List(ctx context.Context, filter domain.ListFilter) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE 1=1`
	args := []any{}

	if filter.BuyerID != "" {
		args = append(args, filter.BuyerID)
		query += ` AND buyer_id = $` + itoa(len(args))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += ` AND status = $` + itoa(len(args))
	}
	query += ` ORDER BY created_at DESC, order_number DESC`
	args = append(args, filter.Limit)
	query += ` LIMIT $` + itoa(len(args))
	args = append(args, filter.Offset)
	query += ` OFFSET $` + itoa(len(args))

	var rows []orderRow
	if err := sqlx.SelectContext(ctx, r.db, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "postgres: list orders")
	}

	out := make([]*domain.Order, 0, len(rows))
	for _, row := range rows {
		o, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

func (r *OrderRepository) NextOrderNumber(ctx context.Context) (int64, error) {
	var seq int64
	if err := sqlx.GetContext(ctx, r.db, &seq, `SELECT nextval('order_number_seq')`); err != nil {
		return 0, errors.Wrap(err, "postgres: next order number")
	}
	return seq, nil
}

func itoa(n int) string { return strconv.Itoa(n) }
