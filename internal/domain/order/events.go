package order

import "time"

// OrderPlacedEvent is emitted after a placement commits. Delivery is
// fire-and-forget; it never affects the placement result.
type OrderPlacedEvent struct {
	OrderID     string    `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	BuyerID     string    `json:"buyer_id"`
	TotalAmount int64     `json:"total_amount"`
	ItemCount   int       `json:"item_count"`
	OccurredAt  time.Time `json:"occurred_at"`
}

func (OrderPlacedEvent) EventName() string { return "order.placed" }

func NewOrderPlacedEvent(o *Order) OrderPlacedEvent {
	count := 0
	for _, it := range o.Items {
		count += it.Quantity
	}
	return OrderPlacedEvent{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		BuyerID:     o.BuyerID,
		TotalAmount: o.TotalAmount,
		ItemCount:   count,
		OccurredAt:  time.Now().UTC(),
	}
}

// OrderCancelledEvent is emitted after a cancellation (with its compensating
// restock) commits.
type OrderCancelledEvent struct {
	OrderID     string    `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	BuyerID     string    `json:"buyer_id"`
	Reason      string    `json:"reason"`
	CancelledBy string    `json:"cancelled_by"`
	OccurredAt  time.Time `json:"occurred_at"`
}

func (OrderCancelledEvent) EventName() string { return "order.cancelled" }

func NewOrderCancelledEvent(o *Order) OrderCancelledEvent {
	return OrderCancelledEvent{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		BuyerID:     o.BuyerID,
		Reason:      o.CancellationReason,
		CancelledBy: o.CancelledBy,
		OccurredAt:  time.Now().UTC(),
	}
}

// OrderStatusChangedEvent is emitted after a fulfilment transition commits.
type OrderStatusChangedEvent struct {
	OrderID     string    `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	BuyerID     string    `json:"buyer_id"`
	Status      Status    `json:"status"`
	Note        string    `json:"note"`
	OccurredAt  time.Time `json:"occurred_at"`
}

func (OrderStatusChangedEvent) EventName() string { return "order.status_changed" }

func NewOrderStatusChangedEvent(o *Order, note string) OrderStatusChangedEvent {
	return OrderStatusChangedEvent{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		BuyerID:     o.BuyerID,
		Status:      o.Status,
		Note:        note,
		OccurredAt:  time.Now().UTC(),
	}
}
