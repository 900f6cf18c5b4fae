package middleware

import (
	"context"

	"session-hub/app/domain"
	"session-hub/app/port"
)

// stubCoordinator is a minimal port.SessionCoordinator double for
// middleware tests.
type stubCoordinator struct {
	state    domain.State
	identity *domain.Identity
	loading  bool
}

func (s *stubCoordinator) CurrentIdentity() *domain.Identity { return s.identity }
func (s *stubCoordinator) State() domain.State               { return s.state }
func (s *stubCoordinator) IsLoading() bool                   { return s.loading }

func (s *stubCoordinator) IsAuthenticated() bool {
	return s.state == domain.StateAuthenticated
}

func (s *stubCoordinator) IsGuest() bool {
	return s.state == domain.StateGuest
}

func (s *stubCoordinator) Login(ctx context.Context, email, password string) error { return nil }

func (s *stubCoordinator) Register(ctx context.Context, displayName, email, password string) error {
	return nil
}

func (s *stubCoordinator) Logout(ctx context.Context) {}

func (s *stubCoordinator) StartGuestSession() (*domain.Identity, error) { return s.identity, nil }

func (s *stubCoordinator) RefreshIdentity(ctx context.Context) error { return nil }

func (s *stubCoordinator) RefreshSession(ctx context.Context) (*domain.Session, error) {
	return nil, domain.ErrNoSession
}

func (s *stubCoordinator) OnIdentityChanged(fn func(domain.IdentityEvent)) port.Unsubscribe {
	return func() {}
}
