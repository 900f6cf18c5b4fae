package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"session-hub/app/domain"
	"session-hub/app/port"
	"session-hub/app/utils/validator"
)

// AuthHandler exposes the session lifecycle over HTTP. The coordinator holds
// exactly one active identity per process; these endpoints drive its
// transitions.
type AuthHandler struct {
	coordinator port.SessionCoordinator
	validate    *validator.Validator
	logger      *slog.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(coordinator port.SessionCoordinator, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		coordinator: coordinator,
		validate:    validator.New(),
		logger:      logger,
	}
}

// Login authenticates with email and password
// @Summary Log in
// @Description Authenticate with email and password and activate the identity
// @Tags authentication
// @Accept json
// @Produce json
// @Param body body LoginRequest true "Login credentials"
// @Success 200 {object} SessionEnvelope
// @Failure 400 {object} ValidationErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Router /v1/auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	ctx := c.Request().Context()

	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		h.logger.Error("failed to bind login request",
			"error", err,
			"content_type", c.Request().Header.Get("Content-Type"))
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "invalid request body",
			Code:  "INVALID_REQUEST",
		})
	}
	if err := h.validate.Validate(&req); err != nil {
		return writeDomainError(c, err)
	}

	h.logger.Info("login attempt",
		"email", req.Email,
		"ip", c.RealIP(),
		"user_agent", c.Request().Header.Get("User-Agent"))

	if err := h.coordinator.Login(ctx, req.Email, req.Password); err != nil {
		h.logger.Warn("login failed", "email", req.Email, "error", err)
		return writeDomainError(c, err)
	}

	h.logger.Info("login completed", "email", req.Email)
	return c.JSON(http.StatusOK, h.sessionEnvelope())
}

// Register creates an account and signs it in
// @Summary Register
// @Description Create an account, write its profile row and activate the identity
// @Tags authentication
// @Accept json
// @Produce json
// @Param body body RegisterRequest true "Registration details"
// @Success 201 {object} SessionEnvelope
// @Failure 400 {object} ValidationErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /v1/auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	ctx := c.Request().Context()

	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		h.logger.Error("failed to bind registration request",
			"error", err,
			"content_type", c.Request().Header.Get("Content-Type"))
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "invalid request body",
			Code:  "INVALID_REQUEST",
		})
	}
	if err := h.validate.Validate(&req); err != nil {
		return writeDomainError(c, err)
	}

	h.logger.Info("registration attempt",
		"email", req.Email,
		"ip", c.RealIP(),
		"user_agent", c.Request().Header.Get("User-Agent"))

	if err := h.coordinator.Register(ctx, req.DisplayName, req.Email, req.Password); err != nil {
		h.logger.Warn("registration failed", "email", req.Email, "error", err)
		return writeDomainError(c, err)
	}

	h.logger.Info("registration completed", "email", req.Email)
	return c.JSON(http.StatusCreated, h.sessionEnvelope())
}

// Logout ends the active session
// @Summary Log out
// @Description Clear the active identity; server-side revocation is best effort
// @Tags authentication
// @Accept json
// @Produce json
// @Success 200 {object} SuccessResponse
// @Router /v1/auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	ctx := c.Request().Context()

	h.logger.Info("logout requested", "ip", c.RealIP())

	// Logout never fails: the local identity is cleared even when the
	// provider is unreachable.
	h.coordinator.Logout(ctx)

	return c.JSON(http.StatusOK, SuccessResponse{
		Message: "logout successful",
	})
}

// Refresh rotates the token pair
// @Summary Refresh session
// @Description Exchange the refresh token for a new token pair
// @Tags authentication
// @Accept json
// @Produce json
// @Success 200 {object} SessionEnvelope
// @Failure 401 {object} ErrorResponse
// @Router /v1/auth/refresh [post]
func (h *AuthHandler) Refresh(c echo.Context) error {
	ctx := c.Request().Context()

	session, err := h.coordinator.RefreshSession(ctx)
	if err != nil {
		h.logger.Warn("session refresh failed", "error", err)
		return writeDomainError(c, err)
	}

	return c.JSON(http.StatusOK, SessionEnvelope{
		State:    h.coordinator.State().String(),
		Identity: h.coordinator.CurrentIdentity(),
		Session:  tokenInfoFrom(session),
	})
}

// Session reports the current lifecycle state
// @Summary Current session
// @Description Report the lifecycle state and the active identity, if any
// @Tags authentication
// @Accept json
// @Produce json
// @Success 200 {object} SessionEnvelope
// @Router /v1/auth/session [get]
func (h *AuthHandler) Session(c echo.Context) error {
	c.Response().Header().Set("Cache-Control", "no-store")
	return c.JSON(http.StatusOK, h.sessionEnvelope())
}

// Guest starts a local guest session
// @Summary Start guest session
// @Description Activate a locally generated guest identity without contacting the provider
// @Tags authentication
// @Accept json
// @Produce json
// @Success 200 {object} SessionEnvelope
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /v1/auth/guest [post]
func (h *AuthHandler) Guest(c echo.Context) error {
	identity, err := h.coordinator.StartGuestSession()
	if err != nil {
		if errors.Is(err, domain.ErrGuestCheckoutOff) {
			return writeDomainError(c, err)
		}
		h.logger.Warn("guest session refused", "state", h.coordinator.State().String(), "error", err)
		return c.JSON(http.StatusConflict, ErrorResponse{
			Error: err.Error(),
			Code:  "GUEST_REFUSED",
		})
	}

	h.logger.Info("guest session started", "guest_id", identity.ID)
	return c.JSON(http.StatusOK, h.sessionEnvelope())
}

// RefreshIdentity re-derives the identity from the profile store
// @Summary Refresh identity
// @Description Invalidate the cached profile and re-derive the active identity
// @Tags authentication
// @Accept json
// @Produce json
// @Success 200 {object} SessionEnvelope
// @Failure 401 {object} ErrorResponse
// @Router /v1/auth/identity/refresh [post]
func (h *AuthHandler) RefreshIdentity(c echo.Context) error {
	ctx := c.Request().Context()

	if err := h.coordinator.RefreshIdentity(ctx); err != nil {
		h.logger.Warn("identity refresh failed", "error", err)
		return writeDomainError(c, err)
	}

	return c.JSON(http.StatusOK, h.sessionEnvelope())
}

func (h *AuthHandler) sessionEnvelope() SessionEnvelope {
	return SessionEnvelope{
		State:    h.coordinator.State().String(),
		Loading:  h.coordinator.IsLoading(),
		Identity: h.coordinator.CurrentIdentity(),
	}
}

func tokenInfoFrom(session *domain.Session) *TokenInfo {
	if session == nil {
		return nil
	}
	return &TokenInfo{
		AccessToken: session.AccessToken,
		ExpiresAt:   session.ExpiresAt,
	}
}

// Request/Response types
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type RegisterRequest struct {
	DisplayName string `json:"display_name" validate:"required,min=2,max=100"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
}

// SessionEnvelope is the uniform session payload: lifecycle state plus the
// active identity. The refresh token never leaves the process.
type SessionEnvelope struct {
	State    string           `json:"state"`
	Loading  bool             `json:"loading"`
	Identity *domain.Identity `json:"identity"`
	Session  *TokenInfo       `json:"session,omitempty"`
}

type TokenInfo struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}
