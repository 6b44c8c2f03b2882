package order

import "context"

type Repository interface {
	Insert(ctx context.Context, order *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	Update(ctx context.Context, order *Order) error
	List(ctx context.Context, filter ListFilter) ([]*Order, error)
	// NextOrderNumber allocates the next value of the monotonic order-number
	// sequence. Inside a unit of work the allocation commits or aborts with it.
	NextOrderNumber(ctx context.Context) (int64, error)
}

type ListFilter struct {
	BuyerID string
	Status  Status
	Limit   int
	Offset  int
}
