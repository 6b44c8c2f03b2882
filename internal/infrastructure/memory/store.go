package memory

import (
	"context"
	"sync"

	domcart "github.com/mercato-dev/marketcore/internal/domain/cart"
	domorder "github.com/mercato-dev/marketcore/internal/domain/order"
	domstock "github.com/mercato-dev/marketcore/internal/domain/stock"
	"github.com/mercato-dev/marketcore/internal/domain/storage"
)

// state holds every document owned by the core. It is always accessed under
// the owning Store's mutex; the tx repos operate on it directly while a unit
// of work holds the lock.
type state struct {
	products  map[string]*domstock.Product
	movements map[string][]*domstock.Movement
	carts     map[string]*domcart.Cart
	orders    map[string]*domorder.Order
	orderSeq  int64
}

func newState() *state {
	return &state{
		products:  make(map[string]*domstock.Product),
		movements: make(map[string][]*domstock.Movement),
		carts:     make(map[string]*domcart.Cart),
		orders:    make(map[string]*domorder.Order),
	}
}

func (s *state) clone() *state {
	c := newState()
	c.orderSeq = s.orderSeq
	for id, p := range s.products {
		c.products[id] = cloneProduct(p)
	}
	for id, ms := range s.movements {
		c.movements[id] = append([]*domstock.Movement(nil), ms...)
	}
	for id, ct := range s.carts {
		c.carts[id] = ct.Clone()
	}
	for id, o := range s.orders {
		c.orders[id] = o.Clone()
	}
	return c
}

func cloneProduct(p *domstock.Product) *domstock.Product {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}

// Store is an in-memory document store with real transactional semantics: a
// unit of work takes the store lock, snapshots the state and restores it when
// the body fails.
type Store struct {
	mu sync.Mutex
	st *state
}

func NewStore() *Store {
	return &Store{st: newState()}
}

// UnitOfWork is the store's all-or-nothing boundary. The store-wide lock makes
// concurrent read-check-write sequences on the same product mutually
// exclusive, and the snapshot guarantees no partial effect survives an abort.
type UnitOfWork struct {
	store *Store
}

func NewUnitOfWork(store *Store) *UnitOfWork {
	return &UnitOfWork{store: store}
}

func (u *UnitOfWork) Within(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	u.store.mu.Lock()
	defer u.store.mu.Unlock()

	snapshot := u.store.st.clone()
	if err := fn(ctx, &txBundle{st: u.store.st}); err != nil {
		u.store.st = snapshot
		return err
	}
	return nil
}

// SequentialUnitOfWork runs the body with no rollback. It exists for fast
// tests that do not touch the atomicity contract; the atomicity properties
// themselves are asserted against UnitOfWork, never against this.
type SequentialUnitOfWork struct {
	store *Store
}

func NewSequentialUnitOfWork(store *Store) *SequentialUnitOfWork {
	return &SequentialUnitOfWork{store: store}
}

func (u *SequentialUnitOfWork) Within(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	u.store.mu.Lock()
	defer u.store.mu.Unlock()

	return fn(ctx, &txBundle{st: u.store.st})
}

type txBundle struct {
	st *state
}

func (t *txBundle) Orders() domorder.Repository { return &orderState{st: t.st} }
func (t *txBundle) Stock() domstock.Repository  { return &stockState{st: t.st} }
func (t *txBundle) Carts() domcart.Repository   { return &cartState{st: t.st} }
