package memory

import (
	"context"
	"fmt"
	"sort"

	domain "github.com/mercato-dev/marketcore/internal/domain/order"
)

type orderState struct {
	st *state
}

func (r *orderState) Insert(ctx context.Context, o *domain.Order) error {
	_ = ctx
	if o == nil || o.ID == "" {
		return fmt.Errorf("order repository: id is required")
	}
	if _, exists := r.st.orders[o.ID]; exists {
		return fmt.Errorf("order repository: duplicate id %s", o.ID)
	}
	r.st.orders[o.ID] = o.Clone()
	return nil
}

func (r *orderState) Get(ctx context.Context, id string) (*domain.Order, error) {
	_ = ctx
	o, ok := r.st.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return o.Clone(), nil
}

func (r *orderState) Update(ctx context.Context, o *domain.Order) error {
	_ = ctx
	if o == nil || o.ID == "" {
		return fmt.Errorf("order repository: id is required")
	}
	if _, exists := r.st.orders[o.ID]; !exists {
		return domain.ErrNotFound
	}
	r.st.orders[o.ID] = o.Clone()
	return nil
}

func (r *orderState) List(ctx context.Context, filter domain.ListFilter) ([]*domain.Order, error) {
	_ = ctx
	var matched []*domain.Order
	for _, o := range r.st.orders {
		if filter.BuyerID != "" && o.BuyerID != filter.BuyerID {
			continue
		}
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		matched = append(matched, o)
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].OrderNumber > matched[j].OrderNumber
	})

	if filter.Offset >= len(matched) {
		return []*domain.Order{}, nil
	}
	matched = matched[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}

	out := make([]*domain.Order, 0, len(matched))
	for _, o := range matched {
		out = append(out, o.Clone())
	}
	return out, nil
}

func (r *orderState) NextOrderNumber(ctx context.Context) (int64, error) {
	_ = ctx
	r.st.orderSeq++
	return r.st.orderSeq, nil
}

// OrderRepository is the lock-taking view of the store for use outside a unit
// of work.
type OrderRepository struct {
	store *Store
}

func NewOrderRepository(store *Store) *OrderRepository {
	return &OrderRepository{store: store}
}

func (r *OrderRepository) Insert(ctx context.Context, o *domain.Order) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return (&orderState{st: r.store.st}).Insert(ctx, o)
}

func (r *OrderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return (&orderState{st: r.store.st}).Get(ctx, id)
}

func (r *OrderRepository) Update(ctx context.Context, o *domain.Order) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return (&orderState{st: r.store.st}).Update(ctx, o)
}

func (r *OrderRepository) List(ctx context.Context, filter domain.ListFilter) ([]*domain.Order, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return (&orderState{st: r.store.st}).List(ctx, filter)
}

func (r *OrderRepository) NextOrderNumber(ctx context.Context) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return (&orderState{st: r.store.st}).NextOrderNumber(ctx)
}
