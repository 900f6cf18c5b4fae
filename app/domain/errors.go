package domain

import (
	"errors"
	"strings"
)

// General errors.
var (
	ErrNoSession         = errors.New("no session")
	ErrNotAuthenticated  = errors.New("not authenticated")
	ErrGuestCheckoutOff  = errors.New("guest checkout is disabled")
	ErrProfileNotFound   = errors.New("profile not found")
	ErrOrderNotFound     = errors.New("order not found")
	ErrGuestOrderRefused = errors.New("guest id refused by order store")
)

// ErrorKind is the closed enumeration of provider-boundary error kinds.
// The adapter classifies once; internal logic never re-parses message
// strings.
type ErrorKind string

const (
	KindInvalidCredentials ErrorKind = "INVALID_CREDENTIALS"
	KindEmailUnconfirmed   ErrorKind = "EMAIL_UNCONFIRMED"
	KindRateLimited        ErrorKind = "RATE_LIMITED"
	KindUserExists         ErrorKind = "USER_EXISTS"
	KindSessionExpired     ErrorKind = "SESSION_EXPIRED"
	KindSessionMissing     ErrorKind = "SESSION_MISSING"
	KindValidation         ErrorKind = "VALIDATION"
	KindNetwork            ErrorKind = "NETWORK"
	KindTimeout            ErrorKind = "TIMEOUT"
	KindUnavailable        ErrorKind = "UNAVAILABLE"
	KindUnknown            ErrorKind = "UNKNOWN"
)

// AuthError is the uniform error shape produced at the identity provider
// boundary.
type AuthError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *AuthError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *AuthError) Unwrap() error {
	return e.Cause
}

// NewAuthError creates a new provider-boundary error.
func NewAuthError(kind ErrorKind, message string, cause error) *AuthError {
	return &AuthError{Kind: kind, Message: message, Cause: cause}
}

// KindOf extracts the error kind, defaulting to KindUnknown.
func KindOf(err error) ErrorKind {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr.Kind
	}
	return KindUnknown
}

// IsCredentialError reports whether the error should be surfaced to the user
// as-is and never retried.
func IsCredentialError(err error) bool {
	switch KindOf(err) {
	case KindInvalidCredentials, KindEmailUnconfirmed, KindRateLimited, KindUserExists, KindValidation:
		return true
	}
	return false
}

// IsRetryable reports whether an idempotent operation may be retried after
// this error.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindNetwork, KindTimeout, KindUnavailable:
		return true
	}
	return false
}

// IsAuthError reports whether the session itself is the problem, as opposed
// to the specific operation that failed. Classified errors are checked by
// kind; the string heuristic only catches errors that escaped the adapter
// boundary unclassified.
func IsAuthError(err error) bool {
	if err == nil {
		return false
	}
	switch KindOf(err) {
	case KindSessionExpired, KindSessionMissing:
		return true
	case KindUnknown:
		// fall through to the message heuristic
	default:
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"401", "unauthorized", "jwt", "invalid token", "token expired", "token is expired", "refresh_token"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
