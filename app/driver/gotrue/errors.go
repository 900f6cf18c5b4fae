package gotrue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"session-hub/app/domain"
)

// errorResponse covers the error body shapes GoTrue emits. Older endpoints
// use error/error_description, newer ones use msg or message plus error_code.
type errorResponse struct {
	Error            string `json:"error"`
	ErrorCode        string `json:"error_code"`
	ErrorDescription string `json:"error_description"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	Code             int    `json:"code"`
}

func (e *errorResponse) text() string {
	for _, candidate := range []string{e.ErrorDescription, e.Msg, e.Message, e.Error} {
		if candidate != "" {
			return candidate
		}
	}
	return ""
}

// classifyTransportError maps request-level failures (no HTTP response at
// all) to domain error kinds.
func classifyTransportError(err error, operation string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.NewAuthError(domain.KindTimeout, fmt.Sprintf("%s timed out", operation), err)
	}
	if errors.Is(err, context.Canceled) {
		return domain.NewAuthError(domain.KindTimeout, fmt.Sprintf("%s cancelled", operation), err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.NewAuthError(domain.KindTimeout, fmt.Sprintf("%s timed out", operation), err)
	}

	return domain.NewAuthError(domain.KindNetwork, fmt.Sprintf("%s: connection failed", operation), err)
}

// classifyResponseError maps a non-2xx response to a domain error kind.
// Classification happens exactly once, here; callers branch on the kind and
// never re-parse message strings.
func classifyResponseError(statusCode int, body []byte, operation string) error {
	var errResp errorResponse
	_ = json.Unmarshal(body, &errResp)

	message := errResp.text()
	messageLower := strings.ToLower(message)

	// Error codes are the most reliable signal when present.
	switch errResp.ErrorCode {
	case "invalid_credentials":
		return domain.NewAuthError(domain.KindInvalidCredentials, "Invalid email or password", nil)
	case "email_not_confirmed":
		return domain.NewAuthError(domain.KindEmailUnconfirmed, "Email address has not been confirmed", nil)
	case "user_already_exists", "email_exists":
		return domain.NewAuthError(domain.KindUserExists, "User with this email already exists", nil)
	case "over_request_rate_limit":
		return domain.NewAuthError(domain.KindRateLimited, "Too many attempts, try again later", nil)
	case "refresh_token_not_found", "refresh_token_already_used", "session_not_found":
		return domain.NewAuthError(domain.KindSessionExpired, "Session has expired", nil)
	}

	switch statusCode {
	case http.StatusBadRequest:
		if containsAny(messageLower, []string{"invalid login credentials", "invalid_grant", "wrong password"}) {
			return domain.NewAuthError(domain.KindInvalidCredentials, "Invalid email or password", nil)
		}
		if containsAny(messageLower, []string{"email not confirmed", "email_not_confirmed"}) {
			return domain.NewAuthError(domain.KindEmailUnconfirmed, "Email address has not been confirmed", nil)
		}
		if containsAny(messageLower, []string{"refresh token", "refresh_token"}) {
			return domain.NewAuthError(domain.KindSessionExpired, "Session has expired", nil)
		}
		return domain.NewAuthError(domain.KindValidation, fallbackMessage(message, "Invalid request data"), nil)

	case http.StatusUnauthorized, http.StatusForbidden:
		return domain.NewAuthError(domain.KindSessionExpired, "Session is no longer valid", nil)

	case http.StatusUnprocessableEntity:
		if containsAny(messageLower, []string{"already registered", "already exists", "already been registered"}) {
			return domain.NewAuthError(domain.KindUserExists, "User with this email already exists", nil)
		}
		return domain.NewAuthError(domain.KindValidation, fallbackMessage(message, "Validation failed"), nil)

	case http.StatusTooManyRequests:
		return domain.NewAuthError(domain.KindRateLimited, "Too many attempts, try again later", nil)

	case http.StatusGatewayTimeout:
		return domain.NewAuthError(domain.KindTimeout, "Authentication service timed out", nil)

	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
		return domain.NewAuthError(domain.KindUnavailable, "Authentication service is temporarily unavailable", nil)
	}

	return domain.NewAuthError(domain.KindUnknown,
		fmt.Sprintf("%s failed with HTTP %d: %s", operation, statusCode, fallbackMessage(message, "unknown error")), nil)
}

func fallbackMessage(message, fallback string) string {
	if message != "" {
		return message
	}
	return fallback
}

// containsAny checks if the text contains any of the given substrings.
func containsAny(text string, substrings []string) bool {
	for _, substring := range substrings {
		if strings.Contains(text, substring) {
			return true
		}
	}
	return false
}
