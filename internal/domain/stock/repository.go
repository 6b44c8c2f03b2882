package stock

import "context"

type Repository interface {
	Get(ctx context.Context, productID string) (*Product, error)
	Save(ctx context.Context, product *Product) error
	AppendMovement(ctx context.Context, movement *Movement) error
	Movements(ctx context.Context, productID string, limit int) ([]*Movement, error)
	LowStock(ctx context.Context, threshold int) ([]*Product, error)
}
