package cart

import "context"

// Repository persists whole cart documents; there is no partial-item write.
type Repository interface {
	Get(ctx context.Context, buyerID string) (*Cart, error)
	Save(ctx context.Context, cart *Cart) error
}
