package handlers

import (
	"context"
	"time"

	"session-hub/app/domain"
	"session-hub/app/port"
)

// fakeCoordinator is a hand-written port.SessionCoordinator double.
type fakeCoordinator struct {
	state    domain.State
	identity *domain.Identity
	loading  bool

	loginErr    error
	registerErr error
	logoutCalls int

	refreshSessionOut *domain.Session
	refreshSessionErr error
	refreshIdentErr   error

	guestIdentity *domain.Identity
	guestErr      error
}

func (f *fakeCoordinator) CurrentIdentity() *domain.Identity { return f.identity }
func (f *fakeCoordinator) State() domain.State               { return f.state }
func (f *fakeCoordinator) IsLoading() bool                   { return f.loading }

func (f *fakeCoordinator) IsAuthenticated() bool {
	return f.state == domain.StateAuthenticated
}

func (f *fakeCoordinator) IsGuest() bool {
	return f.state == domain.StateGuest
}

func (f *fakeCoordinator) Login(ctx context.Context, email, password string) error {
	if f.loginErr != nil {
		return f.loginErr
	}
	f.state = domain.StateAuthenticated
	f.identity = &domain.Identity{ID: "user-1", DisplayName: "Ada Lovelace", Email: email}
	return nil
}

func (f *fakeCoordinator) Register(ctx context.Context, displayName, email, password string) error {
	if f.registerErr != nil {
		return f.registerErr
	}
	f.state = domain.StateAuthenticated
	f.identity = &domain.Identity{ID: "user-1", DisplayName: displayName, Email: email}
	return nil
}

func (f *fakeCoordinator) Logout(ctx context.Context) {
	f.logoutCalls++
	f.state = domain.StateAnonymous
	f.identity = nil
}

func (f *fakeCoordinator) StartGuestSession() (*domain.Identity, error) {
	if f.guestErr != nil {
		return nil, f.guestErr
	}
	if f.guestIdentity == nil {
		f.guestIdentity = domain.NewGuestIdentity()
	}
	f.state = domain.StateGuest
	f.identity = f.guestIdentity
	return f.guestIdentity, nil
}

func (f *fakeCoordinator) RefreshIdentity(ctx context.Context) error {
	return f.refreshIdentErr
}

func (f *fakeCoordinator) RefreshSession(ctx context.Context) (*domain.Session, error) {
	return f.refreshSessionOut, f.refreshSessionErr
}

func (f *fakeCoordinator) OnIdentityChanged(fn func(domain.IdentityEvent)) port.Unsubscribe {
	return func() {}
}

// fakeProfileUC is a hand-written port.ProfileUsecase double.
type fakeProfileUC struct {
	profile   *domain.Profile
	getErr    error
	updateErr error
	updated   *domain.Profile
}

func (f *fakeProfileUC) Get(ctx context.Context, userID string) (*domain.Profile, error) {
	return f.profile, f.getErr
}

func (f *fakeProfileUC) Update(ctx context.Context, profile *domain.Profile) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updated = profile
	return nil
}

// fakeOrderUC is a hand-written port.OrderUsecase double.
type fakeOrderUC struct {
	orders    []domain.Order
	stats     *domain.OrderStats
	createErr error
	listErr   error
	statsErr  error
	created   *domain.Order
}

func (f *fakeOrderUC) Create(ctx context.Context, userID, cylinderSize string, quantity int, amount float64, address string) (*domain.Order, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	order := &domain.Order{
		ID:           "order-1",
		UserID:       userID,
		Status:       domain.OrderStatusPending,
		CylinderSize: cylinderSize,
		Quantity:     quantity,
		Amount:       amount,
		Address:      address,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	f.created = order
	return order, nil
}

func (f *fakeOrderUC) List(ctx context.Context, userID string) ([]domain.Order, error) {
	return f.orders, f.listErr
}

func (f *fakeOrderUC) Stats(ctx context.Context, userID string) (*domain.OrderStats, error) {
	return f.stats, f.statsErr
}

// fakeMessageUC is a hand-written port.MessageUsecase double.
type fakeMessageUC struct {
	messages []domain.Message
	unread   int
	listErr  error
	countErr error
}

func (f *fakeMessageUC) List(ctx context.Context, userID string) ([]domain.Message, error) {
	return f.messages, f.listErr
}

func (f *fakeMessageUC) UnreadCount(ctx context.Context, userID string) (int, error) {
	return f.unread, f.countErr
}
