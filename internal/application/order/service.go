package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	appstock "github.com/mercato-dev/marketcore/internal/application/stock"
	"github.com/mercato-dev/marketcore/internal/domain/event"
	domain "github.com/mercato-dev/marketcore/internal/domain/order"
	domstock "github.com/mercato-dev/marketcore/internal/domain/stock"
	"github.com/mercato-dev/marketcore/internal/domain/storage"
	"github.com/mercato-dev/marketcore/internal/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	tracerName     = "marketcore/order"
	publishTimeout = 300 * time.Millisecond
	actorRoleBuyer = "buyer"
	actorRoleAdmin = "admin"
	defaultLimit   = 20
	maxLimit       = 100
)

// Service is the order orchestrator: the transaction boundary that turns a
// cart into a durable order and drives the order's lifecycle afterwards.
type Service struct {
	uow         storage.UnitOfWork
	orders      domain.Repository
	ledger      StockLedger
	carts       CartAggregator
	idGenerator IDGenerator
	publisher   event.Publisher
	metrics     *Metrics
	tracer      trace.Tracer
}

func NewService(
	uow storage.UnitOfWork,
	orders domain.Repository,
	ledger StockLedger,
	carts CartAggregator,
	idGen IDGenerator,
	publisher event.Publisher,
	metrics *Metrics,
) *Service {
	if metrics == nil {
		metrics = NopMetrics()
	}
	return &Service{
		uow:         uow,
		orders:      orders,
		ledger:      ledger,
		carts:       carts,
		idGenerator: idGen,
		publisher:   publisher,
		metrics:     metrics,
		tracer:      otel.Tracer(tracerName),
	}
}

type PlaceOrderInput struct {
	BuyerID         string
	ShippingAddress domain.Address
	BillingAddress  *domain.Address
	ShippingMethod  string
	PaymentMethod   string
	Notes           string
}

// PlaceOrder runs the checkout path: load cart, advisory stock pre-check,
// price computation, then one unit of work that allocates the order number,
// persists the order with a frozen item copy, decrements stock per item and
// empties the cart. Any failure inside the unit aborts all of it. The
// confirmation notification fires after commit and never affects the result.
func (s *Service) PlaceOrder(ctx context.Context, in PlaceOrderInput) (result *domain.Order, err error) {
	logger := logging.FromContext(ctx).With(
		zap.String("component", "order_orchestrator"),
		zap.String("buyer_id", in.BuyerID),
	)

	ctx, span := s.tracer.Start(ctx, "Order.Place",
		trace.WithAttributes(attribute.String("order.buyer_id", in.BuyerID)),
	)
	start := time.Now()
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
		s.metrics.Placements.WithLabelValues(outcome).Inc()
		s.metrics.PlacementDuration.Observe(time.Since(start).Seconds())
	}()

	if in.BuyerID == "" {
		return nil, errors.New("order: buyer id is required")
	}
	if in.ShippingMethod == "" {
		in.ShippingMethod = ShippingMethodStandard
	}

	buyerCart, err := s.carts.Get(ctx, in.BuyerID)
	if err != nil {
		return nil, err
	}
	if len(buyerCart.Items) == 0 {
		return nil, domain.ErrEmptyCart
	}

	// Advisory short-circuit before taking any lock. The decrement inside the
	// unit of work below is the authoritative guard against the two-buyers
	// last-unit race; this check only spares doomed requests the contention.
	lines := make([]domstock.Line, 0, len(buyerCart.Items))
	units := 0
	for _, it := range buyerCart.Items {
		lines = append(lines, domstock.Line{ProductID: it.ProductID, Quantity: it.Quantity})
		units += it.Quantity
	}
	validation, err := s.ledger.Validate(ctx, lines)
	if err != nil {
		return nil, err
	}
	if !validation.Valid {
		return nil, &domstock.ShortfallError{Shortfalls: validation.Errors}
	}

	items := make([]domain.Item, 0, len(buyerCart.Items))
	for _, it := range buyerCart.Items {
		items = append(items, domain.Item{
			ProductID:    it.ProductID,
			ProductName:  it.ProductName,
			ProductImage: it.ProductImage,
			Price:        it.Price,
			Quantity:     it.Quantity,
			ProviderID:   it.ProviderID,
		})
	}

	shipping := shippingCost(in.ShippingMethod, units, buyerCart.TotalAmount)
	tax := taxFor(buyerCart.TotalAmount)

	billing := in.ShippingAddress
	if in.BillingAddress != nil {
		billing = *in.BillingAddress
	}

	var placed *domain.Order
	err = s.uow.Within(ctx, func(ctx context.Context, tx storage.Tx) error {
		seq, err := tx.Orders().NextOrderNumber(ctx)
		if err != nil {
			return fmt.Errorf("order: allocate number: %w", err)
		}

		entity, err := domain.New(
			s.idGenerator.NewID(),
			formatOrderNumber(seq),
			in.BuyerID,
			items,
			shipping, tax, 0,
			in.ShippingMethod,
			in.ShippingAddress, billing,
			in.PaymentMethod,
		)
		if err != nil {
			return err
		}
		entity.Notes = in.Notes

		if err := tx.Orders().Insert(ctx, entity); err != nil {
			return fmt.Errorf("order: insert: %w", err)
		}

		for _, item := range items {
			_, err := appstock.Apply(ctx, tx.Stock(), s.idGenerator, appstock.ApplyInput{
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				Operation: domstock.OpSale,
				Reason:    fmt.Sprintf("order %s", entity.OrderNumber),
				Actor:     domstock.Actor{ID: in.BuyerID, Role: actorRoleBuyer},
			})
			if err != nil {
				return err
			}
		}

		txCart, err := tx.Carts().Get(ctx, in.BuyerID)
		if err != nil {
			return fmt.Errorf("order: load cart: %w", err)
		}
		txCart.Clear()
		if err := tx.Carts().Save(ctx, txCart); err != nil {
			return fmt.Errorf("order: clear cart: %w", err)
		}

		placed = entity
		return nil
	})
	if err != nil {
		logger.Warn("place_order_aborted", zap.Error(err))
		return nil, err
	}

	span.SetAttributes(
		attribute.String("order.id", placed.ID),
		attribute.String("order.number", placed.OrderNumber),
	)
	logger.Info("place_order_done",
		zap.String("order_id", placed.ID),
		zap.String("order_number", placed.OrderNumber),
		zap.Int64("total_amount", placed.TotalAmount),
	)

	s.notify(ctx, domain.NewOrderPlacedEvent(placed))
	return placed, nil
}

// CancelOrder compensates a placement: restock for every item and the status
// change commit as one unit, so a partially failed restock never leaves a
// cancelled order behind.
func (s *Service) CancelOrder(ctx context.Context, orderID, buyerID, reason string) (result *domain.Order, err error) {
	logger := logging.FromContext(ctx).With(
		zap.String("component", "order_orchestrator"),
		zap.String("order_id", orderID),
	)

	ctx, span := s.tracer.Start(ctx, "Order.Cancel",
		trace.WithAttributes(attribute.String("order.id", orderID)),
	)
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
		s.metrics.Cancellations.WithLabelValues(outcome).Inc()
	}()

	actor := domstock.Actor{ID: buyerID, Role: actorRoleBuyer}
	if buyerID == "" {
		actor = domstock.Actor{ID: "system", Role: actorRoleAdmin}
	}

	var cancelled *domain.Order
	err = s.uow.Within(ctx, func(ctx context.Context, tx storage.Tx) error {
		entity, err := tx.Orders().Get(ctx, orderID)
		if err != nil {
			return err
		}
		if buyerID != "" && entity.BuyerID != buyerID {
			return domain.ErrNotFound
		}

		if err := entity.Cancel(reason, actor.ID); err != nil {
			return err
		}

		for _, item := range entity.Items {
			_, err := appstock.Apply(ctx, tx.Stock(), s.idGenerator, appstock.ApplyInput{
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				Operation: domstock.OpAdd,
				Reason:    fmt.Sprintf("order %s cancelled", entity.OrderNumber),
				Actor:     actor,
			})
			if err != nil {
				return fmt.Errorf("order: restock: %w", err)
			}
		}

		if err := tx.Orders().Update(ctx, entity); err != nil {
			return fmt.Errorf("order: update: %w", err)
		}
		cancelled = entity
		return nil
	})
	if err != nil {
		logger.Warn("cancel_order_aborted", zap.Error(err))
		return nil, err
	}

	logger.Info("cancel_order_done", zap.String("order_number", cancelled.OrderNumber))
	s.notify(ctx, domain.NewOrderCancelledEvent(cancelled))
	return cancelled, nil
}

// UpdateStatus applies a fulfilment transition. No stock side effects.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, next domain.Status, note, actor string) (*domain.Order, error) {
	entity, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := entity.TransitionTo(next, note, actor); err != nil {
		return nil, err
	}
	if err := s.orders.Update(ctx, entity); err != nil {
		return nil, fmt.Errorf("order: update: %w", err)
	}

	s.notify(ctx, domain.NewOrderStatusChangedEvent(entity, note))
	return entity, nil
}

// UpdateTracking stores carrier/tracking-number details for fulfilment.
func (s *Service) UpdateTracking(ctx context.Context, orderID, carrier, trackingNumber string) (*domain.Order, error) {
	entity, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	entity.SetTracking(carrier, trackingNumber)
	if err := s.orders.Update(ctx, entity); err != nil {
		return nil, fmt.Errorf("order: update: %w", err)
	}
	return entity, nil
}

// Get returns one order, scoped to the owning buyer when buyerID is set.
func (s *Service) Get(ctx context.Context, orderID, buyerID string) (*domain.Order, error) {
	entity, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if buyerID != "" && entity.BuyerID != buyerID {
		return nil, domain.ErrNotFound
	}
	return entity, nil
}

// List returns a buyer's orders, optionally filtered by status.
func (s *Service) List(ctx context.Context, buyerID string, status domain.Status, limit, offset int) ([]*domain.Order, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.orders.List(ctx, domain.ListFilter{
		BuyerID: buyerID,
		Status:  status,
		Limit:   limit,
		Offset:  offset,
	})
}

// notify publishes a post-commit event with its own timeout. Failures are
// logged and swallowed; they never surface as the operation's result.
func (s *Service) notify(ctx context.Context, e event.Event) {
	if s.publisher == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := s.publisher.Publish(pubCtx, e); err != nil {
		s.metrics.NotificationFailures.Inc()
		logging.FromContext(ctx).Warn("order_notification_failed",
			zap.String("event", e.EventName()),
			zap.Error(err),
		)
	}
}

func formatOrderNumber(seq int64) string {
	return fmt.Sprintf("ORD-%08d", seq)
}
