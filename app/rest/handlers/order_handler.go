package handlers

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"session-hub/app/port"
	"session-hub/app/rest/middleware"
	"session-hub/app/utils/validator"
)

// OrderHandler handles cylinder order HTTP requests. Guests and registered
// users share the same routes; the usecase keeps guest orders local.
type OrderHandler struct {
	orders   port.OrderUsecase
	validate *validator.Validator
	logger   *slog.Logger
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orders port.OrderUsecase, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{
		orders:   orders,
		validate: validator.New(),
		logger:   logger,
	}
}

// Create places a cylinder order
// @Summary Place order
// @Description Place a cylinder order for the active identity
// @Tags orders
// @Accept json
// @Produce json
// @Param body body CreateOrderRequest true "Order details"
// @Success 201 {object} domain.Order
// @Failure 400 {object} ValidationErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /v1/orders [post]
func (h *OrderHandler) Create(c echo.Context) error {
	ctx := c.Request().Context()
	identity := middleware.IdentityFromContext(c)

	var req CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "invalid request body",
			Code:  "INVALID_REQUEST",
		})
	}
	if err := h.validate.Validate(&req); err != nil {
		return writeDomainError(c, err)
	}

	order, err := h.orders.Create(ctx, identity.ID, req.CylinderSize, req.Quantity, req.Amount, req.Address)
	if err != nil {
		h.logger.Error("order creation failed",
			"user_id", identity.ID,
			"is_guest", identity.IsGuest,
			"error", err)
		return writeDomainError(c, err)
	}

	h.logger.Info("order placed",
		"order_id", order.ID,
		"user_id", identity.ID,
		"is_guest", identity.IsGuest)
	return c.JSON(http.StatusCreated, order)
}

// List returns the active user's orders
// @Summary List orders
// @Description List the active identity's orders, newest first
// @Tags orders
// @Accept json
// @Produce json
// @Success 200 {array} domain.Order
// @Failure 401 {object} ErrorResponse
// @Router /v1/orders [get]
func (h *OrderHandler) List(c echo.Context) error {
	ctx := c.Request().Context()
	identity := middleware.IdentityFromContext(c)

	orders, err := h.orders.List(ctx, identity.ID)
	if err != nil {
		h.logger.Error("order list failed", "user_id", identity.ID, "error", err)
		return writeDomainError(c, err)
	}

	return c.JSON(http.StatusOK, orders)
}

// Stats returns the active user's order summary
// @Summary Order stats
// @Description Summarize the active identity's order history
// @Tags orders
// @Accept json
// @Produce json
// @Success 200 {object} domain.OrderStats
// @Failure 401 {object} ErrorResponse
// @Router /v1/orders/stats [get]
func (h *OrderHandler) Stats(c echo.Context) error {
	ctx := c.Request().Context()
	identity := middleware.IdentityFromContext(c)

	stats, err := h.orders.Stats(ctx, identity.ID)
	if err != nil {
		h.logger.Error("order stats failed", "user_id", identity.ID, "error", err)
		return writeDomainError(c, err)
	}

	return c.JSON(http.StatusOK, stats)
}

type CreateOrderRequest struct {
	CylinderSize string  `json:"cylinder_size" validate:"required,oneof=3kg 6kg 12kg 45kg"`
	Quantity     int     `json:"quantity" validate:"required,min=1,max=20"`
	Amount       float64 `json:"amount" validate:"required,gt=0"`
	Address      string  `json:"address" validate:"required,max=500"`
}
