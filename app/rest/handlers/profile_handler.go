package handlers

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"session-hub/app/domain"
	"session-hub/app/port"
	"session-hub/app/rest/middleware"
	"session-hub/app/utils/validator"
)

// ProfileHandler handles profile HTTP requests
type ProfileHandler struct {
	profiles    port.ProfileUsecase
	coordinator port.SessionCoordinator
	validate    *validator.Validator
	logger      *slog.Logger
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(profiles port.ProfileUsecase, coordinator port.SessionCoordinator, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{
		profiles:    profiles,
		coordinator: coordinator,
		validate:    validator.New(),
		logger:      logger,
	}
}

// Get returns the active user's profile
// @Summary Get profile
// @Description Return the profile row of the active identity
// @Tags profile
// @Accept json
// @Produce json
// @Success 200 {object} domain.Profile
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /v1/profile [get]
func (h *ProfileHandler) Get(c echo.Context) error {
	ctx := c.Request().Context()
	identity := middleware.IdentityFromContext(c)

	profile, err := h.profiles.Get(ctx, identity.ID)
	if err != nil {
		h.logger.Warn("profile fetch failed", "user_id", identity.ID, "error", err)
		return writeDomainError(c, err)
	}

	return c.JSON(http.StatusOK, profile)
}

// Update writes the active user's profile
// @Summary Update profile
// @Description Upsert the profile row and re-derive the active identity
// @Tags profile
// @Accept json
// @Produce json
// @Param body body UpdateProfileRequest true "Profile fields"
// @Success 200 {object} domain.Profile
// @Failure 400 {object} ValidationErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /v1/profile [put]
func (h *ProfileHandler) Update(c echo.Context) error {
	ctx := c.Request().Context()
	identity := middleware.IdentityFromContext(c)

	var req UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "invalid request body",
			Code:  "INVALID_REQUEST",
		})
	}
	if err := h.validate.Validate(&req); err != nil {
		return writeDomainError(c, err)
	}

	profile := &domain.Profile{
		ID:        identity.ID,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Address:   req.Address,
	}
	if err := h.profiles.Update(ctx, profile); err != nil {
		h.logger.Error("profile update failed", "user_id", identity.ID, "error", err)
		return writeDomainError(c, err)
	}

	// The display name may have changed; the identity projection follows
	// the profile row.
	if err := h.coordinator.RefreshIdentity(ctx); err != nil {
		h.logger.Warn("identity re-derivation after profile update failed",
			"user_id", identity.ID, "error", err)
	}

	h.logger.Info("profile updated", "user_id", identity.ID)
	return c.JSON(http.StatusOK, profile)
}

type UpdateProfileRequest struct {
	FirstName string `json:"first_name" validate:"required,min=1,max=100"`
	LastName  string `json:"last_name" validate:"max=100"`
	Phone     string `json:"phone" validate:"omitempty,phone"`
	Address   string `json:"address" validate:"max=500"`
}
