package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"session-hub/app/domain"
	"session-hub/app/utils/validator"
)

// ErrorResponse is the uniform error envelope for the REST surface.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// SuccessResponse is the uniform success envelope for operations that
// return no payload.
type SuccessResponse struct {
	Message string `json:"message"`
}

// ValidationErrorResponse carries per-field validation messages.
type ValidationErrorResponse struct {
	Error  string            `json:"error"`
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields"`
}

// writeDomainError translates domain errors into HTTP responses. Provider
// errors are matched by kind, never by message; sentinels are matched with
// errors.Is.
func writeDomainError(c echo.Context, err error) error {
	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		return c.JSON(http.StatusBadRequest, ValidationErrorResponse{
			Error:  "validation failed",
			Code:   "VALIDATION_ERROR",
			Fields: valErr.Errors,
		})
	}

	var authErr *domain.AuthError
	if errors.As(err, &authErr) {
		return c.JSON(statusForKind(authErr.Kind), ErrorResponse{
			Error: authErr.Message,
			Code:  string(authErr.Kind),
		})
	}

	switch {
	case errors.Is(err, domain.ErrNoSession), errors.Is(err, domain.ErrNotAuthenticated):
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error: "authentication required",
			Code:  "NOT_AUTHENTICATED",
		})
	case errors.Is(err, domain.ErrGuestCheckoutOff):
		return c.JSON(http.StatusForbidden, ErrorResponse{
			Error: "guest checkout is disabled",
			Code:  "GUEST_CHECKOUT_OFF",
		})
	case errors.Is(err, domain.ErrProfileNotFound):
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error: "profile not found",
			Code:  "PROFILE_NOT_FOUND",
		})
	case errors.Is(err, domain.ErrOrderNotFound):
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error: "order not found",
			Code:  "ORDER_NOT_FOUND",
		})
	case errors.Is(err, domain.ErrGuestOrderRefused):
		return c.JSON(http.StatusForbidden, ErrorResponse{
			Error: "guest accounts cannot use this endpoint",
			Code:  "GUEST_REFUSED",
		})
	}

	return c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error: "internal error",
		Code:  "INTERNAL_ERROR",
	})
}

func statusForKind(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindInvalidCredentials, domain.KindSessionExpired, domain.KindSessionMissing:
		return http.StatusUnauthorized
	case domain.KindEmailUnconfirmed:
		return http.StatusForbidden
	case domain.KindUserExists:
		return http.StatusConflict
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindRateLimited:
		return http.StatusTooManyRequests
	case domain.KindTimeout:
		return http.StatusGatewayTimeout
	case domain.KindNetwork:
		return http.StatusBadGateway
	case domain.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
