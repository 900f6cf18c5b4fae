package port

import (
	"context"

	"session-hub/app/domain"
)

// SignOutScope selects whether a sign-out revokes only this client's session
// or every session for the user.
type SignOutScope string

const (
	SignOutLocal  SignOutScope = "local"
	SignOutGlobal SignOutScope = "global"
)

// Unsubscribe removes a previously registered subscription.
type Unsubscribe func()

// IdentityProvider isolates all direct calls to the external auth service
// behind uniform error shapes (domain.AuthError). Implementations perform
// network calls only; cache mutation is the coordinator's job.
type IdentityProvider interface {
	SignIn(ctx context.Context, email, password string) (*domain.Session, error)
	// SignUp creates the account. Profile-record creation is the caller's
	// responsibility as a separate step; on profile failure the caller must
	// compensate by signing out, since the two writes are not transactional.
	SignUp(ctx context.Context, email, password, displayName string) (*domain.Session, error)
	// SignOut never reports an error: local state must always be allowed to
	// clear. Failures are logged inside the implementation.
	SignOut(ctx context.Context, scope SignOutScope)
	// GetSession returns the current session, or (nil, nil) when none exists.
	GetSession(ctx context.Context) (*domain.Session, error)
	RefreshSession(ctx context.Context) (*domain.Session, error)
	// CheckSession verifies the current access token against the provider.
	// A domain.AuthError with a session kind means the token is no longer
	// honored server-side.
	CheckSession(ctx context.Context) error
	// Subscribe registers the single entry point for asynchronous
	// session-change notifications.
	Subscribe(fn func(domain.ProviderEvent)) Unsubscribe
}
