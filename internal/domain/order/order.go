package order

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound                = errors.New("order: not found")
	ErrEmptyCart               = errors.New("order: cart is empty")
	ErrInvalidStatusTransition = errors.New("order: invalid status transition")
	ErrNoItems                 = errors.New("order: at least one item is required")
)

// Item is a frozen value copy of a cart line at placement time. It is never a
// live reference to the cart or the catalog, so the order's historical record
// survives later changes to either.
type Item struct {
	ProductID    string
	ProductName  string
	ProductImage string
	Price        int64
	Quantity     int
	Subtotal     int64
	ProviderID   string
}

type Address struct {
	FullName   string
	Line1      string
	Line2      string
	City       string
	State      string
	PostalCode string
	Country    string
	Phone      string
}

type PaymentInfo struct {
	Method string
	Status string
	Amount int64
}

type Tracking struct {
	Carrier        string
	TrackingNumber string
}

// StatusChange is one append-only history entry; the sequence mirrors the
// stock ledger's audit pattern.
type StatusChange struct {
	Status    Status
	Note      string
	ChangedBy string
	ChangedAt time.Time
}

type Order struct {
	ID                 string
	OrderNumber        string
	BuyerID            string
	Items              []Item
	Subtotal           int64
	ShippingCost       int64
	Tax                int64
	Discount           int64
	TotalAmount        int64
	Status             Status
	StatusHistory      []StatusChange
	ShippingMethod     string
	ShippingAddress    Address
	BillingAddress     Address
	Payment            PaymentInfo
	Tracking           Tracking
	Notes              string
	CancellationReason string
	CancelledAt        *time.Time
	CancelledBy        string
	ShippedAt          *time.Time
	DeliveredAt        *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// New creates a pending order from frozen item copies. The items slice is
// copied defensively; totals are derived from it plus the given charges.
func New(id, orderNumber, buyerID string, items []Item, shippingCost, tax, discount int64, method string, shipping, billing Address, paymentMethod string) (*Order, error) {
	if len(items) == 0 {
		return nil, ErrNoItems
	}

	frozen := make([]Item, len(items))
	copy(frozen, items)

	var subtotal int64
	for i := range frozen {
		frozen[i].Subtotal = frozen[i].Price * int64(frozen[i].Quantity)
		subtotal += frozen[i].Subtotal
	}
	total := subtotal + shippingCost + tax - discount

	now := time.Now().UTC()
	return &Order{
		ID:              id,
		OrderNumber:     orderNumber,
		BuyerID:         buyerID,
		Items:           frozen,
		Subtotal:        subtotal,
		ShippingCost:    shippingCost,
		Tax:             tax,
		Discount:        discount,
		TotalAmount:     total,
		Status:          StatusPending,
		StatusHistory:   []StatusChange{{Status: StatusPending, Note: "order placed", ChangedBy: buyerID, ChangedAt: now}},
		ShippingMethod:  method,
		ShippingAddress: shipping,
		BillingAddress:  billing,
		Payment: PaymentInfo{
			Method: paymentMethod,
			Status: "pending",
			Amount: total,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// TransitionTo moves the order to next if the status machine allows it and
// appends the change to history. Shipped and delivered stamp their tracking
// timestamps.
func (o *Order) TransitionTo(next Status, note, changedBy string) error {
	if !o.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, o.Status, next)
	}

	now := time.Now().UTC()
	o.Status = next
	o.StatusHistory = append(o.StatusHistory, StatusChange{
		Status:    next,
		Note:      note,
		ChangedBy: changedBy,
		ChangedAt: now,
	})

	switch next {
	case StatusShipped:
		o.ShippedAt = &now
	case StatusDelivered:
		o.DeliveredAt = &now
	}
	o.UpdatedAt = now
	return nil
}

// Cancel transitions to cancelled and stamps the cancellation fields. Callers
// own the compensating restock; the two must commit as one unit.
func (o *Order) Cancel(reason, cancelledBy string) error {
	if !o.Status.Cancellable() {
		return fmt.Errorf("%w: cannot cancel order in status %s", ErrInvalidStatusTransition, o.Status)
	}
	if err := o.TransitionTo(StatusCancelled, reason, cancelledBy); err != nil {
		return err
	}
	now := time.Now().UTC()
	o.CancellationReason = reason
	o.CancelledAt = &now
	o.CancelledBy = cancelledBy
	return nil
}

func (o *Order) SetTracking(carrier, number string) {
	o.Tracking = Tracking{Carrier: carrier, TrackingNumber: number}
	o.UpdatedAt = time.Now().UTC()
}

// Clone returns a deep copy so repositories never hand out live references.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	clone.Items = append([]Item(nil), o.Items...)
	clone.StatusHistory = append([]StatusChange(nil), o.StatusHistory...)
	clone.CancelledAt = cloneTime(o.CancelledAt)
	clone.ShippedAt = cloneTime(o.ShippedAt)
	clone.DeliveredAt = cloneTime(o.DeliveredAt)
	return &clone
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
