package handlers

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"session-hub/app/port"
	"session-hub/app/rest/middleware"
)

// MessageHandler handles support-message HTTP requests
type MessageHandler struct {
	messages port.MessageUsecase
	logger   *slog.Logger
}

// NewMessageHandler creates a new message handler
func NewMessageHandler(messages port.MessageUsecase, logger *slog.Logger) *MessageHandler {
	return &MessageHandler{
		messages: messages,
		logger:   logger,
	}
}

// List returns the active user's messages
// @Summary List messages
// @Description List the active identity's support messages; guests have an empty mailbox
// @Tags messages
// @Accept json
// @Produce json
// @Success 200 {array} domain.Message
// @Failure 401 {object} ErrorResponse
// @Router /v1/messages [get]
func (h *MessageHandler) List(c echo.Context) error {
	ctx := c.Request().Context()
	identity := middleware.IdentityFromContext(c)

	messages, err := h.messages.List(ctx, identity.ID)
	if err != nil {
		h.logger.Error("message list failed", "user_id", identity.ID, "error", err)
		return writeDomainError(c, err)
	}

	return c.JSON(http.StatusOK, messages)
}

// UnreadCount returns the unread message count
// @Summary Unread count
// @Description Count the active identity's unread support messages
// @Tags messages
// @Accept json
// @Produce json
// @Success 200 {object} UnreadCountResponse
// @Failure 401 {object} ErrorResponse
// @Router /v1/messages/unread [get]
func (h *MessageHandler) UnreadCount(c echo.Context) error {
	ctx := c.Request().Context()
	identity := middleware.IdentityFromContext(c)

	count, err := h.messages.UnreadCount(ctx, identity.ID)
	if err != nil {
		h.logger.Error("unread count failed", "user_id", identity.ID, "error", err)
		return writeDomainError(c, err)
	}

	return c.JSON(http.StatusOK, UnreadCountResponse{Unread: count})
}

type UnreadCountResponse struct {
	Unread int `json:"unread"`
}
