package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	domcart "github.com/mercato-dev/marketcore/internal/domain/cart"
	domorder "github.com/mercato-dev/marketcore/internal/domain/order"
	domstock "github.com/mercato-dev/marketcore/internal/domain/stock"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func ok(c *fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(fiber.Map{
		"success": true,
		"data":    data,
	})
}

func fail(c *fiber.Ctx, status int, code, message string, details any) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   errorBody{Code: code, Message: message, Details: details},
	})
}

// writeDomainError maps the core error taxonomy onto HTTP statuses. A
// mid-transaction stock exhaustion surfaces here exactly like the pre-check
// one: same code, same shortfall details.
func writeDomainError(c *fiber.Ctx, err error) error {
	var shortfall *domstock.ShortfallError
	if errors.As(err, &shortfall) {
		return fail(c, fiber.StatusConflict, "INSUFFICIENT_STOCK", err.Error(), shortfall.Shortfalls)
	}

	switch {
	case errors.Is(err, domorder.ErrEmptyCart):
		return fail(c, fiber.StatusUnprocessableEntity, "EMPTY_CART", err.Error(), nil)
	case errors.Is(err, domstock.ErrInsufficientStock):
		return fail(c, fiber.StatusConflict, "INSUFFICIENT_STOCK", err.Error(), nil)
	case errors.Is(err, domorder.ErrInvalidStatusTransition):
		return fail(c, fiber.StatusConflict, "INVALID_STATUS_TRANSITION", err.Error(), nil)
	case errors.Is(err, domorder.ErrNotFound):
		return fail(c, fiber.StatusNotFound, "ORDER_NOT_FOUND", err.Error(), nil)
	case errors.Is(err, domcart.ErrNotFound):
		return fail(c, fiber.StatusNotFound, "CART_NOT_FOUND", err.Error(), nil)
	case errors.Is(err, domcart.ErrItemNotFound):
		return fail(c, fiber.StatusNotFound, "CART_ITEM_NOT_FOUND", err.Error(), nil)
	case errors.Is(err, domstock.ErrProductNotFound):
		return fail(c, fiber.StatusNotFound, "PRODUCT_NOT_FOUND", err.Error(), nil)
	case errors.Is(err, domstock.ErrProductUnavailable):
		return fail(c, fiber.StatusConflict, "PRODUCT_UNAVAILABLE", err.Error(), nil)
	case errors.Is(err, domstock.ErrInvalidOperation):
		return fail(c, fiber.StatusBadRequest, "INVALID_OPERATION", err.Error(), nil)
	case errors.Is(err, domstock.ErrNegativeStock):
		return fail(c, fiber.StatusBadRequest, "NEGATIVE_STOCK", err.Error(), nil)
	case errors.Is(err, domstock.ErrInvalidQuantity),
		errors.Is(err, domcart.ErrInvalidQuantity):
		return fail(c, fiber.StatusBadRequest, "INVALID_QUANTITY", err.Error(), nil)
	default:
		return fail(c, fiber.StatusInternalServerError, "INTERNAL", err.Error(), nil)
	}
}
