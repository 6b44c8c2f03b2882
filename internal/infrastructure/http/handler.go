package http

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	appcart "github.com/mercato-dev/marketcore/internal/application/cart"
	apporder "github.com/mercato-dev/marketcore/internal/application/order"
	appstock "github.com/mercato-dev/marketcore/internal/application/stock"
	domorder "github.com/mercato-dev/marketcore/internal/domain/order"
	domstock "github.com/mercato-dev/marketcore/internal/domain/stock"
	"github.com/mercato-dev/marketcore/internal/pkg/logging"
)

const buyerHeader = "X-Buyer-ID"

// Handler wires the core services onto the HTTP surface. Authentication is an
// external collaborator: the buyer identity arrives pre-resolved in a header.
type Handler struct {
	carts  *appcart.Service
	orders *apporder.Service
	stock  *appstock.Service
	log    *zap.Logger
}

func NewHandler(carts *appcart.Service, orders *apporder.Service, stock *appstock.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.L()
	}
	return &Handler{carts: carts, orders: orders, stock: stock, log: logger}
}

func (h *Handler) Register(app *fiber.App) {
	app.Use(h.withLogger)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	app.Get("/cart", h.getCart)
	app.Post("/cart/items", h.addCartItem)
	app.Patch("/cart/items/:id", h.updateCartItem)
	app.Delete("/cart/items/:id", h.removeCartItem)
	app.Delete("/cart", h.clearCart)
	app.Post("/cart/merge", h.mergeCart)
	app.Get("/cart/validate", h.validateCart)

	app.Post("/orders", h.placeOrder)
	app.Get("/orders", h.listOrders)
	app.Get("/orders/:id", h.getOrder)
	app.Patch("/orders/:id/cancel", h.cancelOrder)
	app.Patch("/orders/:id/status", h.updateOrderStatus)
	app.Patch("/orders/:id/tracking", h.updateOrderTracking)

	app.Patch("/products/:id/stock", h.applyStock)
	app.Get("/products/:id/stock/history", h.stockHistory)
	app.Get("/products/low-stock", h.lowStock)
}

// withLogger attaches a request-scoped logger to the context the services
// read from.
func (h *Handler) withLogger(c *fiber.Ctx) error {
	reqLogger := logging.WithSpan(c.UserContext(), h.log).With(
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
	)
	c.SetUserContext(logging.ContextWithLogger(c.UserContext(), reqLogger))
	return c.Next()
}

func buyerID(c *fiber.Ctx) string {
	return c.Get(buyerHeader)
}

func requireBuyer(c *fiber.Ctx) (string, error) {
	id := buyerID(c)
	if id == "" {
		return "", fail(c, fiber.StatusUnauthorized, "BUYER_REQUIRED", "missing "+buyerHeader+" header", nil)
	}
	return id, nil
}

// --- cart ---

func (h *Handler) getCart(c *fiber.Ctx) error {
	buyer, err := requireBuyer(c)
	if buyer == "" {
		return err
	}
	cart, err := h.carts.Get(c.UserContext(), buyer)
	if err != nil {
		return writeDomainError(c, err)
	}
	return ok(c, fiber.StatusOK, cart)
}

type addItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

func (h *Handler) addCartItem(c *fiber.Ctx) error {
	buyer, err := requireBuyer(c)
	if buyer == "" {
		return err
	}
	var req addItemRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	}
	cart, err := h.carts.AddItem(c.UserContext(), buyer, req.ProductID, req.Quantity)
	if err != nil {
		return writeDomainError(c, err)
	}
	return ok(c, fiber.StatusCreated, cart)
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) updateCartItem(c *fiber.Ctx) error {
	buyer, err := requireBuyer(c)
	if buyer == "" {
		return err
	}
	var req updateItemRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	}
	cart, err := h.carts.UpdateQuantity(c.UserContext(), buyer, c.Params("id"), req.Quantity)
	if err != nil {
		return writeDomainError(c, err)
	}
	return ok(c, fiber.StatusOK, cart)
}

func (h *Handler) removeCartItem(c *fiber.Ctx) error {
	buyer, err := requireBuyer(c)
	if buyer == "" {
		return err
	}
	cart, err := h.carts.RemoveItem(c.UserContext(), buyer, c.Params("id"))
	if err != nil {
		return writeDomainError(c, err)
	}
	return ok(c, fiber.StatusOK, cart)
}

func (h *Handler) clearCart(c *fiber.Ctx) error {
	buyer, err := requireBuyer(c)
	if buyer == "" {
		return err
	}
	cart, err := h.carts.Clear(c.UserContext(), buyer)
	if err != nil {
		return writeDomainError(c, err)
	}
	return ok(c, fiber.StatusOK, cart)
}

type mergeRequest struct {
	Items []struct {
		ProductID string `json:"product_id"`
		Quantity  int    `json:"quantity"`
	} `json:"items"`
}

func (h *Handler) mergeCart(c *fiber.Ctx) error {
	buyer, err := requireBuyer(c)
	if buyer == "" {
		return err
	}
	var req mergeRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	}
	external := make([]appcart.MergeInput, 0, len(req.Items))
	for _, it := range req.Items {
		external = append(external, appcart.MergeInput{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	cart, err := h.carts.Merge(c.UserContext(), buyer, external)
	if err != nil {
		return writeDomainError(c, err)
	}
	return ok(c, fiber.StatusOK, cart)
}

func (h *Handler) validateCart(c *fiber.Ctx) error {
	buyer, err := requireBuyer(c)
	if buyer == "" {
		return err
	}
	validation, err := h.carts.ValidateStock(c.UserContext(), buyer)
	if err != nil {
		return writeDomainError(c, err)
	}
	return ok(c, fiber.StatusOK, fiber.Map{
		"valid":  validation.Valid,
		"errors": validation.Errors,
	})
}

// --- orders ---

type addressPayload struct {
	FullName   string `json:"full_name"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	Phone      string `json:"phone"`
}

func (a addressPayload) toDomain() domorder.Address {
	return domorder.Address{
		FullName:   a.FullName,
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
		Phone:      a.Phone,
	}
}

type placeOrderRequest struct {
	ShippingAddress addressPayload  `json:"shipping_address"`
	BillingAddress  *addressPayload `json:"billing_address"`
	ShippingMethod  string          `json:"shipping_method"`
	PaymentMethod   string          `json:"payment_method"`
	Notes           string          `json:"notes"`
}

func (h *Handler) placeOrder(c *fiber.Ctx) error {
	buyer, err := requireBuyer(c)
	if buyer == "" {
		return err
	}
	var req placeOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	}

	input := apporder.PlaceOrderInput{
		BuyerID:         buyer,
		ShippingAddress: req.ShippingAddress.toDomain(),
		ShippingMethod:  req.ShippingMethod,
		PaymentMethod:   req.PaymentMethod,
		Notes:           req.Notes,
	}
	if req.BillingAddress != nil {
		billing := req.BillingAddress.toDomain()
		input.BillingAddress = &billing
	}

	placed, err := h.orders.PlaceOrder(c.UserContext(), input)
	if err != nil {
		return writeDomainError(c, err)
	}
	return ok(c, fiber.StatusCreated, placed)
}

func (h *Handler) getOrder(c *fiber.Ctx) error {
	buyer, err := requireBuyer(c)
	if buyer == "" {
		return err
	}
	o, err := h.orders.Get(c.UserContext(), c.Params("id"), buyer)
	if err != nil {
		return writeDomainError(c, err)
	}
	return ok(c, fiber.StatusOK, o)
}

func (h *Handler) listOrders(c *fiber.Ctx) error {
	buyer, err := requireBuyer(c)
	if buyer == "" {
		return err
	}

	var status domorder.Status
	if raw := c.Query("status"); raw != "" {
		parsed, valid := domorder.ParseStatus(raw)
		if !valid {
			return fail(c, fiber.StatusBadRequest, "BAD_REQUEST", "unknown status "+raw, nil)
		}
		status = parsed
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))

	orders, err := h.orders.List(c.UserContext(), buyer, status, limit, offset)
	if err != nil {
		return writeDomainError(c, err)
	}
	return ok(c, fiber.StatusOK, orders)
}

type cancelOrderRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) cancelOrder(c *fiber.Ctx) error {
	buyer, err := requireBuyer(c)
	if buyer == "" {
		return err
	}
	var req cancelOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	}
	o, err := h.orders.CancelOrder(c.UserContext(), c.Params("id"), buyer, req.Reason)
	if err != nil {
		return writeDomainError(c, err)
	}
	return ok(c, fiber.StatusOK, o)
}

type updateStatusRequest struct {
	Status string `json:"status"`
	Note   string `json:"note"`
	Actor  string `json:"actor"`
}

// updateOrderStatus is the admin/fulfilment transition endpoint; it is not
// buyer-scoped.
func (h *Handler) updateOrderStatus(c *fiber.Ctx) error {
	var req updateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	}
	status, valid := domorder.ParseStatus(req.Status)
	if !valid {
		return fail(c, fiber.StatusBadRequest, "BAD_REQUEST", "unknown status "+req.Status, nil)
	}
	o, err := h.orders.UpdateStatus(c.UserContext(), c.Params("id"), status, req.Note, req.Actor)
	if err != nil {
		return writeDomainError(c, err)
	}
	return ok(c, fiber.StatusOK, o)
}

type updateTrackingRequest struct {
	Carrier        string `json:"carrier"`
	TrackingNumber string `json:"tracking_number"`
}

func (h *Handler) updateOrderTracking(c *fiber.Ctx) error {
	var req updateTrackingRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	}
	o, err := h.orders.UpdateTracking(c.UserContext(), c.Params("id"), req.Carrier, req.TrackingNumber)
	if err != nil {
		return writeDomainError(c, err)
	}
	return ok(c, fiber.StatusOK, o)
}

// --- stock ---

type applyStockRequest struct {
	Quantity  int    `json:"quantity"`
	Operation string `json:"operation"`
	Reason    string `json:"reason"`
	ActorID   string `json:"actor_id"`
	ActorRole string `json:"actor_role"`
}

func (h *Handler) applyStock(c *fiber.Ctx) error {
	var req applyStockRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	}
	op, err := domstock.ParseOperation(req.Operation)
	if err != nil {
		return writeDomainError(c, err)
	}

	result, err := h.stock.Apply(c.UserContext(), appstock.ApplyInput{
		ProductID: c.Params("id"),
		Quantity:  req.Quantity,
		Operation: op,
		Reason:    req.Reason,
		Actor:     domstock.Actor{ID: req.ActorID, Role: req.ActorRole},
	})
	if err != nil {
		return writeDomainError(c, err)
	}
	return ok(c, fiber.StatusOK, fiber.Map{
		"product":  result.Product,
		"movement": result.Movement,
	})
}

func (h *Handler) stockHistory(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit"))
	movements, err := h.stock.History(c.UserContext(), c.Params("id"), limit)
	if err != nil {
		return writeDomainError(c, err)
	}
	return ok(c, fiber.StatusOK, movements)
}

func (h *Handler) lowStock(c *fiber.Ctx) error {
	threshold, err := strconv.Atoi(c.Query("threshold", "5"))
	if err != nil || threshold < 0 {
		return fail(c, fiber.StatusBadRequest, "BAD_REQUEST", "threshold must be a non-negative integer", nil)
	}
	products, err := h.stock.LowStock(c.UserContext(), threshold)
	if err != nil {
		return writeDomainError(c, err)
	}
	return ok(c, fiber.StatusOK, products)
}
