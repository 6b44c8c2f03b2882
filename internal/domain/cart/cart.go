package cart

import (
	"errors"
	"time"
)

var (
	ErrNotFound        = errors.New("cart: not found")
	ErrItemNotFound    = errors.New("cart: item not found")
	ErrInvalidQuantity = errors.New("cart: quantity must be greater than zero")
)

// Item is a denormalized snapshot of a product at add-time. Name, price and
// image are copied so the cart total stays stable until checkout even if the
// catalog changes underneath it.
type Item struct {
	ProductID    string
	ProductName  string
	ProductImage string
	Price        int64
	Quantity     int
	Subtotal     int64
	ProviderID   string
}

// Cart is the pre-purchase line-item list for one buyer. There is exactly one
// cart per buyer; it is emptied, never deleted, after a successful placement.
type Cart struct {
	BuyerID     string
	Items       []Item
	TotalItems  int
	TotalAmount int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func New(buyerID string) *Cart {
	now := time.Now().UTC()
	return &Cart{
		BuyerID:   buyerID,
		Items:     []Item{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Upsert adds quantity of the given snapshot to the cart, accumulating onto an
// existing line for the same product.
func (c *Cart) Upsert(item Item) error {
	if item.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	for i := range c.Items {
		if c.Items[i].ProductID == item.ProductID {
			c.Items[i].Quantity += item.Quantity
			c.recompute()
			return nil
		}
	}
	c.Items = append(c.Items, item)
	c.recompute()
	return nil
}

// SetQuantity updates one line. Quantity <= 0 removes the line; this is the
// documented policy, not a silent drop.
func (c *Cart) SetQuantity(productID string, quantity int) error {
	if quantity <= 0 {
		return c.Remove(productID)
	}
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Quantity = quantity
			c.recompute()
			return nil
		}
	}
	return ErrItemNotFound
}

func (c *Cart) Remove(productID string) error {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			c.recompute()
			return nil
		}
	}
	return ErrItemNotFound
}

// Clear empties the item list but keeps the cart document.
func (c *Cart) Clear() {
	c.Items = []Item{}
	c.recompute()
}

// Merge reconciles a client-held item list with this cart: for products in
// both, the larger quantity wins so buyer intent from offline editing is never
// silently lost; external-only items are appended. Stock is not consulted
// here, only at checkout.
func (c *Cart) Merge(external []Item) {
	for _, ext := range external {
		if ext.Quantity <= 0 {
			continue
		}
		found := false
		for i := range c.Items {
			if c.Items[i].ProductID == ext.ProductID {
				if ext.Quantity > c.Items[i].Quantity {
					c.Items[i].Quantity = ext.Quantity
				}
				found = true
				break
			}
		}
		if !found {
			c.Items = append(c.Items, ext)
		}
	}
	c.recompute()
}

// Lines projects the cart into (product, quantity) pairs for stock checks.
func (c *Cart) Lines() []Line {
	lines := make([]Line, 0, len(c.Items))
	for _, it := range c.Items {
		lines = append(lines, Line{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return lines
}

type Line struct {
	ProductID string
	Quantity  int
}

// recompute restores the per-item subtotal invariant and the cached totals
// after any mutation.
func (c *Cart) recompute() {
	c.TotalItems = 0
	c.TotalAmount = 0
	for i := range c.Items {
		c.Items[i].Subtotal = c.Items[i].Price * int64(c.Items[i].Quantity)
		c.TotalItems += c.Items[i].Quantity
		c.TotalAmount += c.Items[i].Subtotal
	}
	c.UpdatedAt = time.Now().UTC()
}

// Clone returns a deep copy so repositories never hand out live references.
func (c *Cart) Clone() *Cart {
	if c == nil {
		return nil
	}
	clone := *c
	// Keep Items non-nil so an empty cart still serializes as a list.
	clone.Items = make([]Item, len(c.Items))
	copy(clone.Items, c.Items)
	return &clone
}
