package stock

import (
	"context"
	"errors"
	"fmt"

	domain "github.com/mercato-dev/marketcore/internal/domain/stock"
	"github.com/mercato-dev/marketcore/internal/domain/storage"
	"github.com/mercato-dev/marketcore/internal/pkg/logging"
	"go.uber.org/zap"
)

const defaultHistoryLimit = 50

// IDGenerator allocates movement identifiers.
type IDGenerator interface {
	NewID() string
}

// Service is the stock ledger: the sole mutator of product stock and the owner
// of the append-only movement trail.
type Service struct {
	repo        domain.Repository
	uow         storage.UnitOfWork
	idGenerator IDGenerator
}

func NewService(repo domain.Repository, uow storage.UnitOfWork, idGen IDGenerator) *Service {
	return &Service{
		repo:        repo,
		uow:         uow,
		idGenerator: idGen,
	}
}

// Validate reports per-item whether available quantity covers the request. It
// never mutates; it is the advisory pre-check before the transactional
// decrement, not a substitute for it.
func (s *Service) Validate(ctx context.Context, lines []domain.Line) (*domain.Validation, error) {
	result := &domain.Validation{Valid: true}

	for _, line := range lines {
		product, err := s.repo.Get(ctx, line.ProductID)
		switch {
		case errors.Is(err, domain.ErrProductNotFound):
			result.Errors = append(result.Errors, domain.Shortfall{
				ProductID: line.ProductID,
				Available: 0,
				Requested: line.Quantity,
			})
			continue
		case err != nil:
			return nil, fmt.Errorf("stock: validate: %w", err)
		}

		if !product.Available || product.Stock < line.Quantity {
			available := product.Stock
			if !product.Available {
				available = 0
			}
			result.Errors = append(result.Errors, domain.Shortfall{
				ProductID: line.ProductID,
				Available: available,
				Requested: line.Quantity,
			})
		}
	}

	result.Valid = len(result.Errors) == 0
	return result, nil
}

type ApplyInput struct {
	ProductID string
	Quantity  int
	Operation domain.Operation
	Reason    string
	Actor     domain.Actor
}

type ApplyResult struct {
	Product  *domain.Product
	Movement *domain.Movement
}

// Apply performs one atomic stock change and records its movement. The
// read-check-write runs inside a unit of work so concurrent applies on the
// same product cannot interleave.
func (s *Service) Apply(ctx context.Context, in ApplyInput) (*ApplyResult, error) {
	logger := logging.FromContext(ctx).With(zap.String("component", "stock_ledger"))

	var result *ApplyResult
	err := s.uow.Within(ctx, func(ctx context.Context, tx storage.Tx) error {
		var txErr error
		result, txErr = Apply(ctx, tx.Stock(), s.idGenerator, in)
		return txErr
	})
	if err != nil {
		logger.Warn("stock_apply_failed",
			zap.String("product_id", in.ProductID),
			zap.String("operation", string(in.Operation)),
			zap.Int("quantity", in.Quantity),
			zap.Error(err),
		)
		return nil, err
	}

	logger.Info("stock_apply_done",
		zap.String("product_id", in.ProductID),
		zap.String("operation", string(in.Operation)),
		zap.Int("previous_stock", result.Movement.PreviousStock),
		zap.Int("new_stock", result.Movement.NewStock),
	)
	return result, nil
}

// Apply is the single code path for a stock change against a (possibly
// tx-bound) repository. The order orchestrator calls it with its own tx-bound
// repository so the checkout decrement and the standalone ledger endpoint can
// never diverge.
func Apply(ctx context.Context, repo domain.Repository, idGen IDGenerator, in ApplyInput) (*ApplyResult, error) {
	product, err := repo.Get(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}

	previous, next, err := product.ApplyOperation(in.Operation, in.Quantity)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientStock) {
			return nil, &domain.ShortfallError{Shortfalls: []domain.Shortfall{{
				ProductID: in.ProductID,
				Available: previous,
				Requested: in.Quantity,
			}}}
		}
		return nil, err
	}

	if err := repo.Save(ctx, product); err != nil {
		return nil, fmt.Errorf("stock: save product: %w", err)
	}

	movement := domain.NewMovement(idGen.NewID(), in.ProductID, in.Operation, previous, next, in.Reason, in.Actor)
	if err := repo.AppendMovement(ctx, movement); err != nil {
		return nil, fmt.Errorf("stock: append movement: %w", err)
	}

	return &ApplyResult{Product: product, Movement: movement}, nil
}

// History returns movements newest-first, capped at limit (default 50).
func (s *Service) History(ctx context.Context, productID string, limit int) ([]*domain.Movement, error) {
	if productID == "" {
		return nil, domain.ErrProductNotFound
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return s.repo.Movements(ctx, productID, limit)
}

// LowStock lists catalog-visible products with stock below threshold. A
// reporting query, not part of the consistency contract.
func (s *Service) LowStock(ctx context.Context, threshold int) ([]*domain.Product, error) {
	return s.repo.LowStock(ctx, threshold)
}
