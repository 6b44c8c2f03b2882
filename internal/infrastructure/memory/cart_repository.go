package memory

import (
	"context"

	domain "github.com/mercato-dev/marketcore/internal/domain/cart"
)

type cartState struct {
	st *state
}

func (r *cartState) Get(ctx context.Context, buyerID string) (*domain.Cart, error) {
	_ = ctx
	c, ok := r.st.carts[buyerID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return c.Clone(), nil
}

func (r *cartState) Save(ctx context.Context, c *domain.Cart) error {
	_ = ctx
	if c == nil || c.BuyerID == "" {
		return domain.ErrNotFound
	}
	r.st.carts[c.BuyerID] = c.Clone()
	return nil
}

// CartRepository is the lock-taking view of the store for use outside a unit
// of work.
type CartRepository struct {
	store *Store
}

func NewCartRepository(store *Store) *CartRepository {
	return &CartRepository{store: store}
}

func (r *CartRepository) Get(ctx context.Context, buyerID string) (*domain.Cart, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return (&cartState{st: r.store.st}).Get(ctx, buyerID)
}

func (r *CartRepository) Save(ctx context.Context, c *domain.Cart) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return (&cartState{st: r.store.st}).Save(ctx, c)
}
