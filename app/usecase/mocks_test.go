package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"session-hub/app/cachekeys"
	"session-hub/app/domain"
	"session-hub/app/port"
)

// fakeProvider is a hand-rolled port.IdentityProvider. Tests drive provider
// events explicitly through emit.
type fakeProvider struct {
	mu          sync.Mutex
	subscribers []func(domain.ProviderEvent)

	signInFn     func(ctx context.Context, email, password string) (*domain.Session, error)
	signUpFn     func(ctx context.Context, email, password, displayName string) (*domain.Session, error)
	signOutFn    func(ctx context.Context, scope port.SignOutScope)
	getSessionFn func(ctx context.Context) (*domain.Session, error)
	refreshFn    func(ctx context.Context) (*domain.Session, error)
	checkFn      func(ctx context.Context) error

	signOutCalls int
}

func (p *fakeProvider) SignIn(ctx context.Context, email, password string) (*domain.Session, error) {
	session, err := p.signInFn(ctx, email, password)
	if err == nil {
		p.emit(domain.ProviderEvent{Event: domain.EventSignedIn, Session: session.Clone()})
	}
	return session, err
}

func (p *fakeProvider) SignUp(ctx context.Context, email, password, displayName string) (*domain.Session, error) {
	session, err := p.signUpFn(ctx, email, password, displayName)
	if err == nil {
		p.emit(domain.ProviderEvent{Event: domain.EventSignedIn, Session: session.Clone()})
	}
	return session, err
}

func (p *fakeProvider) SignOut(ctx context.Context, scope port.SignOutScope) {
	p.mu.Lock()
	p.signOutCalls++
	p.mu.Unlock()
	if p.signOutFn != nil {
		p.signOutFn(ctx, scope)
	}
	p.emit(domain.ProviderEvent{Event: domain.EventSignedOut})
}

// GetSession fails unless a test installs getSessionFn, keeping the restore
// probe inert so tests control restore timing through emit.
func (p *fakeProvider) GetSession(ctx context.Context) (*domain.Session, error) {
	if p.getSessionFn != nil {
		return p.getSessionFn(ctx)
	}
	return nil, context.Canceled
}

func (p *fakeProvider) RefreshSession(ctx context.Context) (*domain.Session, error) {
	session, err := p.refreshFn(ctx)
	if err == nil {
		p.emit(domain.ProviderEvent{Event: domain.EventTokenRefreshed, Session: session.Clone()})
	}
	return session, err
}

func (p *fakeProvider) CheckSession(ctx context.Context) error {
	if p.checkFn != nil {
		return p.checkFn(ctx)
	}
	return nil
}

func (p *fakeProvider) Subscribe(fn func(domain.ProviderEvent)) port.Unsubscribe {
	p.mu.Lock()
	p.subscribers = append(p.subscribers, fn)
	p.mu.Unlock()
	return func() {}
}

func (p *fakeProvider) emit(e domain.ProviderEvent) {
	p.mu.Lock()
	subscribers := make([]func(domain.ProviderEvent), 0, len(p.subscribers))
	subscribers = append(subscribers, p.subscribers...)
	p.mu.Unlock()
	for _, fn := range subscribers {
		fn(e)
	}
}

func (p *fakeProvider) signOutCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.signOutCalls
}

// fakeProfileStore is a map-backed port.ProfileStore.
type fakeProfileStore struct {
	mu       sync.Mutex
	profiles map[string]*domain.Profile
	getErr   error
	upsertFn func(ctx context.Context, profile *domain.Profile) error
}

func newFakeProfileStore() *fakeProfileStore {
	return &fakeProfileStore{profiles: make(map[string]*domain.Profile)}
}

func (s *fakeProfileStore) Get(ctx context.Context, userID string) (*domain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	profile, ok := s.profiles[userID]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	clone := *profile
	return &clone, nil
}

func (s *fakeProfileStore) Upsert(ctx context.Context, profile *domain.Profile) error {
	if s.upsertFn != nil {
		return s.upsertFn(ctx, profile)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *profile
	s.profiles[profile.ID] = &clone
	return nil
}

// fakeCache is a map-backed port.Cache that records operations for ordering
// assertions.
type fakeCache struct {
	mu      sync.Mutex
	entries map[cachekeys.Key][]byte
	ops     []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[cachekeys.Key][]byte)}
}

func (c *fakeCache) Get(_ context.Context, key cachekeys.Key) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	value, ok := c.entries[key]
	return value, ok
}

func (c *fakeCache) Set(_ context.Context, key cachekeys.Key, value []byte, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
}

func (c *fakeCache) Invalidate(_ context.Context, key cachekeys.Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	c.ops = append(c.ops, "invalidate:"+string(key))
}

func (c *fakeCache) InvalidateMatching(_ context.Context, match func(cachekeys.Key) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if match(key) {
			delete(c.entries, key)
		}
	}
	c.ops = append(c.ops, "invalidate_matching")
}

func (c *fakeCache) Clear(_ context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[cachekeys.Key][]byte)
	c.ops = append(c.ops, "clear")
}

func (c *fakeCache) has(key cachekeys.Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

func (c *fakeCache) opLog() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.ops...)
}

// fakeOrderStore is a slice-backed port.OrderStore.
type fakeOrderStore struct {
	mu        sync.Mutex
	orders    map[string][]domain.Order
	createErr error
	listCalls int
}

func newFakeOrderStore() *fakeOrderStore {
	return &fakeOrderStore{orders: make(map[string][]domain.Order)}
}

func (s *fakeOrderStore) Create(ctx context.Context, order *domain.Order) error {
	if domain.IsGuestID(order.UserID) {
		return domain.ErrGuestOrderRefused
	}
	if s.createErr != nil {
		return s.createErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[order.UserID] = append(s.orders[order.UserID], *order)
	return nil
}

func (s *fakeOrderStore) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	if domain.IsGuestID(userID) {
		return nil, domain.ErrGuestOrderRefused
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++
	return append([]domain.Order(nil), s.orders[userID]...), nil
}

func (s *fakeOrderStore) StatsByUser(ctx context.Context, userID string) (*domain.OrderStats, error) {
	if domain.IsGuestID(userID) {
		return nil, domain.ErrGuestOrderRefused
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.StatsFromOrders(s.orders[userID]), nil
}

// fakeMessageStore is a slice-backed port.MessageStore.
type fakeMessageStore struct {
	mu       sync.Mutex
	messages map[string][]domain.Message
}

func newFakeMessageStore() *fakeMessageStore {
	return &fakeMessageStore{messages: make(map[string][]domain.Message)}
}

func (s *fakeMessageStore) ListByUser(ctx context.Context, userID string) ([]domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Message(nil), s.messages[userID]...), nil
}

func (s *fakeMessageStore) UnreadCount(ctx context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, m := range s.messages[userID] {
		if !m.Read {
			count++
		}
	}
	return count, nil
}

// identityEvents collects published identity events.
type identityEvents struct {
	mu     sync.Mutex
	events []domain.IdentityEvent
}

func (r *identityEvents) record(e domain.IdentityEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *identityEvents) snapshot() []domain.IdentityEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.IdentityEvent(nil), r.events...)
}

func (r *identityEvents) countReason(reason domain.ChangeReason) int {
	count := 0
	for _, e := range r.snapshot() {
		if e.Reason == reason {
			count++
		}
	}
	return count
}

// waitFor polls until cond holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if cond() {
			return
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting: " + msg)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func testSession(subjectID, accessToken string) *domain.Session {
	return &domain.Session{
		AccessToken:  accessToken,
		RefreshToken: "refresh-" + accessToken,
		ExpiresAt:    time.Now().Add(time.Hour),
		SubjectID:    subjectID,
		Email:        subjectID + "@example.com",
	}
}
