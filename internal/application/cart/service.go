package cart

import (
	"context"
	"errors"
	"fmt"

	domain "github.com/mercato-dev/marketcore/internal/domain/cart"
	domstock "github.com/mercato-dev/marketcore/internal/domain/stock"
	"github.com/mercato-dev/marketcore/internal/pkg/logging"
	"go.uber.org/zap"
)

// StockValidator is the one stock-availability contract; checkout and the
// cart-level check both go through it so the two can never diverge.
type StockValidator interface {
	Validate(ctx context.Context, lines []domstock.Line) (*domstock.Validation, error)
}

// Service is the cart aggregator: it owns the mutable pre-purchase line-item
// list and the denormalized product snapshots inside it.
type Service struct {
	carts     domain.Repository
	products  domstock.Repository
	validator StockValidator
}

func NewService(carts domain.Repository, products domstock.Repository, validator StockValidator) *Service {
	return &Service{
		carts:     carts,
		products:  products,
		validator: validator,
	}
}

// Get returns the buyer's cart, creating an empty one on first access. The
// creation persists exactly once; repeated calls return the same document.
func (s *Service) Get(ctx context.Context, buyerID string) (*domain.Cart, error) {
	if buyerID == "" {
		return nil, errors.New("cart: buyer id is required")
	}

	c, err := s.carts.Get(ctx, buyerID)
	if errors.Is(err, domain.ErrNotFound) {
		c = domain.New(buyerID)
		if err := s.carts.Save(ctx, c); err != nil {
			return nil, fmt.Errorf("cart: create: %w", err)
		}
		return c, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// AddItem snapshots the product's name, price and image into the cart. The
// snapshot deliberately does not track later catalog changes.
func (s *Service) AddItem(ctx context.Context, buyerID, productID string, quantity int) (*domain.Cart, error) {
	if quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}

	product, err := s.products.Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.Available {
		return nil, domstock.ErrProductUnavailable
	}

	c, err := s.Get(ctx, buyerID)
	if err != nil {
		return nil, err
	}

	item := domain.Item{
		ProductID:    product.ID,
		ProductName:  product.Name,
		ProductImage: product.Image,
		Price:        product.Price,
		Quantity:     quantity,
		ProviderID:   product.ProviderID,
	}
	if err := c.Upsert(item); err != nil {
		return nil, err
	}

	if err := s.carts.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("cart: save: %w", err)
	}

	logging.FromContext(ctx).Info("cart_item_added",
		zap.String("buyer_id", buyerID),
		zap.String("product_id", productID),
		zap.Int("quantity", quantity),
	)
	return c, nil
}

// UpdateQuantity sets one line's quantity; quantity <= 0 removes the line.
func (s *Service) UpdateQuantity(ctx context.Context, buyerID, productID string, quantity int) (*domain.Cart, error) {
	c, err := s.carts.Get(ctx, buyerID)
	if err != nil {
		return nil, err
	}
	if err := c.SetQuantity(productID, quantity); err != nil {
		return nil, err
	}
	if err := s.carts.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("cart: save: %w", err)
	}
	return c, nil
}

func (s *Service) RemoveItem(ctx context.Context, buyerID, productID string) (*domain.Cart, error) {
	c, err := s.carts.Get(ctx, buyerID)
	if err != nil {
		return nil, err
	}
	if err := c.Remove(productID); err != nil {
		return nil, err
	}
	if err := s.carts.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("cart: save: %w", err)
	}
	return c, nil
}

// Clear empties the cart document without deleting it.
func (s *Service) Clear(ctx context.Context, buyerID string) (*domain.Cart, error) {
	c, err := s.carts.Get(ctx, buyerID)
	if err != nil {
		return nil, err
	}
	c.Clear()
	if err := s.carts.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("cart: save: %w", err)
	}
	return c, nil
}

// MergeInput is one client-held line, e.g. from a device that edited offline.
type MergeInput struct {
	ProductID string
	Quantity  int
}

// Merge reconciles client-held lines with the server cart: max quantity wins
// for common products, unknown products are appended with a fresh catalog
// snapshot. Stock is not checked here, only at checkout.
func (s *Service) Merge(ctx context.Context, buyerID string, external []MergeInput) (*domain.Cart, error) {
	c, err := s.Get(ctx, buyerID)
	if err != nil {
		return nil, err
	}

	items := make([]domain.Item, 0, len(external))
	for _, in := range external {
		if in.Quantity <= 0 {
			continue
		}
		product, err := s.products.Get(ctx, in.ProductID)
		if errors.Is(err, domstock.ErrProductNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		items = append(items, domain.Item{
			ProductID:    product.ID,
			ProductName:  product.Name,
			ProductImage: product.Image,
			Price:        product.Price,
			Quantity:     in.Quantity,
			ProviderID:   product.ProviderID,
		})
	}

	c.Merge(items)
	if err := s.carts.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("cart: save: %w", err)
	}
	return c, nil
}

// ValidateStock cross-checks every cart line against live stock, aggregating
// all violations so the buyer sees the full list of blockers at once.
func (s *Service) ValidateStock(ctx context.Context, buyerID string) (*domstock.Validation, error) {
	c, err := s.carts.Get(ctx, buyerID)
	if err != nil {
		return nil, err
	}

	lines := make([]domstock.Line, 0, len(c.Items))
	for _, line := range c.Lines() {
		lines = append(lines, domstock.Line{ProductID: line.ProductID, Quantity: line.Quantity})
	}
	return s.validator.Validate(ctx, lines)
}
