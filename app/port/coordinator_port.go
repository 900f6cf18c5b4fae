package port

import (
	"context"

	"session-hub/app/domain"
)

// SessionCoordinator is the identity API exposed to the UI layer. There is
// exactly one active identity at a time; all reads go through this
// interface, never through shared mutable state.
type SessionCoordinator interface {
	CurrentIdentity() *domain.Identity
	State() domain.State
	IsLoading() bool
	IsAuthenticated() bool
	IsGuest() bool

	Login(ctx context.Context, email, password string) error
	Register(ctx context.Context, displayName, email, password string) error
	// Logout never fails from the caller's perspective; it resolves within
	// the configured timeout even if the provider hangs.
	Logout(ctx context.Context)
	StartGuestSession() (*domain.Identity, error)
	RefreshIdentity(ctx context.Context) error
	RefreshSession(ctx context.Context) (*domain.Session, error)

	OnIdentityChanged(fn func(domain.IdentityEvent)) Unsubscribe
}

// OrderUsecase is the order surface exposed to the UI layer.
type OrderUsecase interface {
	Create(ctx context.Context, userID, cylinderSize string, quantity int, amount float64, address string) (*domain.Order, error)
	List(ctx context.Context, userID string) ([]domain.Order, error)
	Stats(ctx context.Context, userID string) (*domain.OrderStats, error)
}

// ProfileUsecase is the profile surface exposed to the UI layer.
type ProfileUsecase interface {
	Get(ctx context.Context, userID string) (*domain.Profile, error)
	Update(ctx context.Context, profile *domain.Profile) error
}

// MessageUsecase is the message surface exposed to the UI layer.
type MessageUsecase interface {
	List(ctx context.Context, userID string) ([]domain.Message, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
}
