package memory

import (
	"context"
	"sort"

	domain "github.com/mercato-dev/marketcore/internal/domain/stock"
)

// stockState operates on raw state. It holds no lock itself: either the
// caller is a unit of work that already owns the store mutex, or it is the
// locked StockRepository wrapper below.
type stockState struct {
	st *state
}

func (r *stockState) Get(ctx context.Context, productID string) (*domain.Product, error) {
	_ = ctx
	p, ok := r.st.products[productID]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return cloneProduct(p), nil
}

func (r *stockState) Save(ctx context.Context, product *domain.Product) error {
	_ = ctx
	if product == nil || product.ID == "" {
		return domain.ErrProductNotFound
	}
	r.st.products[product.ID] = cloneProduct(product)
	return nil
}

func (r *stockState) AppendMovement(ctx context.Context, movement *domain.Movement) error {
	_ = ctx
	m := *movement
	r.st.movements[m.ProductID] = append(r.st.movements[m.ProductID], &m)
	return nil
}

func (r *stockState) Movements(ctx context.Context, productID string, limit int) ([]*domain.Movement, error) {
	_ = ctx
	all := r.st.movements[productID]

	// Newest first.
	out := make([]*domain.Movement, 0, limit)
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		m := *all[i]
		out = append(out, &m)
	}
	return out, nil
}

func (r *stockState) LowStock(ctx context.Context, threshold int) ([]*domain.Product, error) {
	_ = ctx
	var out []*domain.Product
	for _, p := range r.st.products {
		if p.Available && p.Stock < threshold {
			out = append(out, cloneProduct(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Stock != out[j].Stock {
			return out[i].Stock < out[j].Stock
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// StockRepository is the lock-taking view of the store for use outside a unit
// of work.
type StockRepository struct {
	store *Store
}

func NewStockRepository(store *Store) *StockRepository {
	return &StockRepository{store: store}
}

func (r *StockRepository) Get(ctx context.Context, productID string) (*domain.Product, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return (&stockState{st: r.store.st}).Get(ctx, productID)
}

func (r *StockRepository) Save(ctx context.Context, product *domain.Product) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return (&stockState{st: r.store.st}).Save(ctx, product)
}

func (r *StockRepository) AppendMovement(ctx context.Context, movement *domain.Movement) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return (&stockState{st: r.store.st}).AppendMovement(ctx, movement)
}

func (r *StockRepository) Movements(ctx context.Context, productID string, limit int) ([]*domain.Movement, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return (&stockState{st: r.store.st}).Movements(ctx, productID, limit)
}

func (r *StockRepository) LowStock(ctx context.Context, threshold int) ([]*domain.Product, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return (&stockState{st: r.store.st}).LowStock(ctx, threshold)
}
