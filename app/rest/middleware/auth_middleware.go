package middleware

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"session-hub/app/domain"
	"session-hub/app/port"
)

// Context keys populated by the auth middleware.
const (
	IdentityContextKey = "identity"
	UserIDContextKey   = "user_id"
)

// AuthMiddleware gates routes on the coordinator's active identity. The
// coordinator is the single source of truth for who is signed in; requests
// carry no tokens of their own.
type AuthMiddleware struct {
	coordinator port.SessionCoordinator
	logger      *slog.Logger
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(coordinator port.SessionCoordinator, logger *slog.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		coordinator: coordinator,
		logger:      logger,
	}
}

// RequireIdentity admits any active identity, guest or registered.
func (m *AuthMiddleware) RequireIdentity() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if m.coordinator.IsLoading() {
				// Restore has not resolved yet; tell the client to retry
				// instead of answering from an unknown state.
				c.Response().Header().Set("Retry-After", "1")
				return echo.NewHTTPError(http.StatusServiceUnavailable, "session restore in progress")
			}

			identity := m.coordinator.CurrentIdentity()
			if identity == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}

			c.Set(IdentityContextKey, identity)
			c.Set(UserIDContextKey, identity.ID)
			return next(c)
		}
	}
}

// RequireRegistered admits only registered identities; guests get 403.
func (m *AuthMiddleware) RequireRegistered() echo.MiddlewareFunc {
	requireIdentity := m.RequireIdentity()
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return requireIdentity(func(c echo.Context) error {
			identity := IdentityFromContext(c)
			if identity == nil || identity.IsGuest {
				m.logger.Debug("guest refused on registered-only route", "path", c.Request().URL.Path)
				return echo.NewHTTPError(http.StatusForbidden, "registered account required")
			}
			return next(c)
		})
	}
}

// IdentityFromContext returns the identity stored by RequireIdentity, or nil.
func IdentityFromContext(c echo.Context) *domain.Identity {
	identity, _ := c.Get(IdentityContextKey).(*domain.Identity)
	return identity
}
