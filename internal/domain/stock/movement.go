package stock

import (
	"fmt"
	"strings"
	"time"
)

// Operation is the typed reason for a stock change.
type Operation string

const (
	OpAdd        Operation = "add"
	OpSubtract   Operation = "subtract"
	OpSet        Operation = "set"
	OpSale       Operation = "sale"
	OpPurchase   Operation = "purchase"
	OpAdjustment Operation = "adjustment"
)

// ParseOperation maps external input onto a known Operation.
func ParseOperation(s string) (Operation, error) {
	op := Operation(strings.ToLower(strings.TrimSpace(s)))
	switch op {
	case OpAdd, OpSubtract, OpSet, OpSale, OpPurchase, OpAdjustment:
		return op, nil
	default:
		return "", ErrInvalidOperation
	}
}

// Actor identifies who requested a stock change.
type Actor struct {
	ID   string
	Role string
}

// Movement is one immutable ledger entry. Quantity is always the non-negative
// magnitude of the change; PreviousStock/NewStock snapshot the product around
// it, so replaying the sequence reproduces the stock history.
type Movement struct {
	ID            string
	ProductID     string
	Type          Operation
	Quantity      int
	PreviousStock int
	NewStock      int
	Reason        string
	ActorID       string
	ActorRole     string
	CreatedAt     time.Time
}

func NewMovement(id, productID string, op Operation, previous, next int, reason string, actor Actor) *Movement {
	delta := next - previous
	if delta < 0 {
		delta = -delta
	}
	return &Movement{
		ID:            id,
		ProductID:     productID,
		Type:          op,
		Quantity:      delta,
		PreviousStock: previous,
		NewStock:      next,
		Reason:        reason,
		ActorID:       actor.ID,
		ActorRole:     actor.Role,
		CreatedAt:     time.Now().UTC(),
	}
}

// Line is a requested (product, quantity) pair, e.g. one cart row at checkout.
type Line struct {
	ProductID string
	Quantity  int
}

// Shortfall reports one product that cannot satisfy a requested quantity.
type Shortfall struct {
	ProductID string `json:"product_id"`
	Available int    `json:"available"`
	Requested int    `json:"requested"`
}

// Validation is the result of a read-only availability check.
type Validation struct {
	Valid  bool
	Errors []Shortfall
}

// ShortfallError carries the full per-item shortfall list so callers can show
// every blocker at once. It matches ErrInsufficientStock under errors.Is.
type ShortfallError struct {
	Shortfalls []Shortfall
}

func (e *ShortfallError) Error() string {
	return fmt.Sprintf("stock: insufficient stock for %d item(s)", len(e.Shortfalls))
}

func (e *ShortfallError) Unwrap() error { return ErrInsufficientStock }
