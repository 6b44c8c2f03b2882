package stock

import (
	"errors"
	"time"
)

var (
	ErrProductNotFound    = errors.New("stock: product not found")
	ErrProductUnavailable = errors.New("stock: product not available")
	ErrInvalidQuantity    = errors.New("stock: quantity must be greater than zero")
	ErrInvalidOperation   = errors.New("stock: unknown operation")
	ErrNegativeStock      = errors.New("stock: resulting stock would be negative")
	ErrInsufficientStock  = errors.New("stock: insufficient stock")
)

// Product carries the authoritative quantity on hand. Stock is mutated only
// through ApplyOperation so every change is paired with a Movement.
type Product struct {
	ID         string
	Name       string
	Image      string
	Price      int64
	ProviderID string
	Stock      int
	Available  bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func NewProduct(id, name, image string, price int64, providerID string, initialStock int) (*Product, error) {
	if initialStock < 0 {
		return nil, ErrNegativeStock
	}
	now := time.Now().UTC()
	return &Product{
		ID:         id,
		Name:       name,
		Image:      image,
		Price:      price,
		ProviderID: providerID,
		Stock:      initialStock,
		Available:  true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// ApplyOperation mutates Stock according to op and returns the stock level
// before and after. On error the product is left untouched. Callers must hold
// the product exclusively for the duration of read-apply-write; this method
// only owns the arithmetic and its guards.
func (p *Product) ApplyOperation(op Operation, quantity int) (previous, next int, err error) {
	previous = p.Stock

	switch op {
	case OpAdd, OpPurchase:
		if quantity <= 0 {
			return previous, previous, ErrInvalidQuantity
		}
		next = previous + quantity
	case OpSubtract, OpSale:
		if quantity <= 0 {
			return previous, previous, ErrInvalidQuantity
		}
		next = previous - quantity
		if next < 0 {
			return previous, previous, ErrInsufficientStock
		}
	case OpSet, OpAdjustment:
		if quantity < 0 {
			return previous, previous, ErrNegativeStock
		}
		next = quantity
	default:
		return previous, previous, ErrInvalidOperation
	}

	p.Stock = next
	p.touch()
	return previous, next, nil
}

func (p *Product) touch() {
	p.UpdatedAt = time.Now().UTC()
}
