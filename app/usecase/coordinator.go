package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"session-hub/app/cachekeys"
	"session-hub/app/domain"
	"session-hub/app/metrics"
	"session-hub/app/port"
)

const eventBufferSize = 16

// CoordinatorConfig carries the lifecycle tuning knobs.
type CoordinatorConfig struct {
	SignOutTimeout       time.Duration
	ProviderTimeout      time.Duration
	CacheTTL             time.Duration
	GuestCheckoutEnabled bool
}

// Coordinator owns the session lifecycle state machine. All state lives
// behind its mutex and all provider events flow through a single consumer
// goroutine, so observers always see transitions in order.
type Coordinator struct {
	provider port.IdentityProvider
	profiles port.ProfileStore
	orders   port.OrderStore
	messages port.MessageStore
	cache    port.Cache
	cfg      CoordinatorConfig
	metrics  *metrics.Metrics
	logger   *slog.Logger

	mu              sync.RWMutex
	state           domain.State
	session         *domain.Session
	identity        *domain.Identity
	deferred        []domain.ProviderEvent
	signOutExpected bool
	listeners       map[int]func(domain.IdentityEvent)
	nextListenerID  int
	unsubscribe     port.Unsubscribe

	events   chan domain.ProviderEvent
	done     chan struct{}
	stopOnce sync.Once

	refreshGroup singleflight.Group
}

// NewSessionCoordinator creates a coordinator in the uninitialized state.
// Call Start to begin session restoration.
func NewSessionCoordinator(
	provider port.IdentityProvider,
	profiles port.ProfileStore,
	orders port.OrderStore,
	messages port.MessageStore,
	cache port.Cache,
	cfg CoordinatorConfig,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Coordinator {
	return &Coordinator{
		provider:  provider,
		profiles:  profiles,
		orders:    orders,
		messages:  messages,
		cache:     cache,
		cfg:       cfg,
		metrics:   m,
		logger:    logger.With("component", "session_coordinator"),
		state:     domain.StateUninitialized,
		listeners: make(map[int]func(domain.IdentityEvent)),
		events:    make(chan domain.ProviderEvent, eventBufferSize),
		done:      make(chan struct{}),
	}
}

// Start transitions to Restoring, subscribes to provider events and launches
// the event loop. The provider's INITIAL_SESSION event resolves the restore
// exactly once, into Authenticated or Anonymous.
func (c *Coordinator) Start(ctx context.Context) {
	c.mu.Lock()
	if c.state != domain.StateUninitialized {
		c.mu.Unlock()
		return
	}
	c.state = domain.StateRestoring
	c.mu.Unlock()

	go c.loop()

	unsubscribe := c.provider.Subscribe(func(e domain.ProviderEvent) {
		c.enqueue(e)
	})

	c.mu.Lock()
	c.unsubscribe = unsubscribe
	c.mu.Unlock()

	// The subscription's INITIAL_SESSION event and this probe race to resolve
	// the restore; whichever lands first wins, the other is a no-op.
	go func() {
		probeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.ProviderTimeout)
		defer cancel()

		session, err := c.provider.GetSession(probeCtx)
		if err != nil {
			c.logger.Warn("session probe failed during restore", "error", err)
			return
		}
		c.enqueue(domain.ProviderEvent{Event: domain.EventInitialSession, Session: session})
	}()

	c.logger.Info("session coordinator started")
}

// Stop unsubscribes from the provider and terminates the event loop.
func (c *Coordinator) Stop() {
	c.stopOnce.Do(func() {
		c.mu.Lock()
		unsubscribe := c.unsubscribe
		c.unsubscribe = nil
		c.mu.Unlock()

		if unsubscribe != nil {
			unsubscribe()
		}
		close(c.done)
		c.logger.Info("session coordinator stopped")
	})
}

// Accessors

func (c *Coordinator) CurrentIdentity() *domain.Identity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.identity.Clone()
}

func (c *Coordinator) State() domain.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Coordinator) IsLoading() bool {
	switch c.State() {
	case domain.StateRestoring, domain.StateAuthenticating, domain.StateSigningOut:
		return true
	}
	return false
}

func (c *Coordinator) IsAuthenticated() bool {
	return c.State() == domain.StateAuthenticated
}

func (c *Coordinator) IsGuest() bool {
	return c.State() == domain.StateGuest
}

// OnIdentityChanged registers an identity-change observer.
func (c *Coordinator) OnIdentityChanged(fn func(domain.IdentityEvent)) port.Unsubscribe {
	c.mu.Lock()
	id := c.nextListenerID
	c.nextListenerID++
	c.listeners[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// Commands

// Login authenticates with email and password. Provider events raised by the
// sign-in are deferred until the command completes, then replayed; the
// duplicate SIGNED_IN collapses against the session the command installed.
func (c *Coordinator) Login(ctx context.Context, email, password string) error {
	prev, err := c.beginAuth()
	if err != nil {
		return err
	}

	session, err := c.provider.SignIn(ctx, email, password)
	if err != nil {
		c.metrics.AuthFailure(string(domain.KindOf(err)))
		c.abortAuth(prev)
		return err
	}

	identity := c.deriveIdentity(ctx, session)
	c.completeAuth(ctx, session, identity, domain.ReasonSignIn)
	c.metrics.SignIn()
	return nil
}

// Register creates the account and its profile row. The two writes are not
// transactional: if the profile write fails the fresh session is revoked so
// the user is never half-registered.
func (c *Coordinator) Register(ctx context.Context, displayName, email, password string) error {
	prev, err := c.beginAuth()
	if err != nil {
		return err
	}

	session, err := c.provider.SignUp(ctx, email, password, displayName)
	if err != nil {
		c.metrics.AuthFailure(string(domain.KindOf(err)))
		c.abortAuth(prev)
		return err
	}

	first, last := domain.SplitDisplayName(displayName)
	profile := &domain.Profile{
		ID:        session.SubjectID,
		FirstName: first,
		LastName:  last,
	}
	if err := c.profiles.Upsert(ctx, profile); err != nil {
		c.logger.Error("profile creation failed after sign-up, compensating with sign-out", "error", err)
		c.provider.SignOut(ctx, port.SignOutLocal)
		c.abortAuth(prev)
		return fmt.Errorf("profile creation failed: %w", err)
	}

	identity := domain.IdentityFromProfile(session, session.Email, profile)
	c.completeAuth(ctx, session, identity, domain.ReasonSignIn)
	c.metrics.SignUp()
	return nil
}

// Logout resolves within SignOutTimeout no matter what the provider does.
// Local state is cleared and the departed user's cache scope purged on every
// path, including the forced one.
func (c *Coordinator) Logout(ctx context.Context) {
	c.mu.Lock()
	departed := c.identity.Clone()
	hasSession := c.session != nil

	if !hasSession {
		// Guest or anonymous: nothing to revoke server-side.
		c.clearLocked()
		c.mu.Unlock()
		c.finishLogout(ctx, departed)
		return
	}

	c.state = domain.StateSigningOut
	c.signOutExpected = true
	c.mu.Unlock()

	// The revocation keeps running in the background if it outlives the
	// timeout; the user is signed out locally either way.
	revokeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.SignOutTimeout)
	revoked := make(chan struct{})
	go func() {
		defer cancel()
		defer close(revoked)
		c.provider.SignOut(revokeCtx, port.SignOutLocal)
	}()

	select {
	case <-revoked:
	case <-time.After(c.cfg.SignOutTimeout):
		c.logger.Warn("provider sign-out timed out, forcing local sign-out",
			"timeout", c.cfg.SignOutTimeout)
	}

	c.mu.Lock()
	c.clearLocked()
	c.mu.Unlock()
	c.finishLogout(ctx, departed)
}

func (c *Coordinator) finishLogout(ctx context.Context, departed *domain.Identity) {
	if departed != nil {
		c.purgeUser(ctx, departed.ID)
	} else {
		c.cache.Invalidate(ctx, cachekeys.AuthUser())
		c.cache.Invalidate(ctx, cachekeys.AuthSession())
	}
	c.publish(domain.IdentityEvent{Reason: domain.ReasonSignOut})
	c.metrics.SignOut()
	c.logger.Info("signed out")
}

// StartGuestSession creates a local guest identity without any network call.
func (c *Coordinator) StartGuestSession() (*domain.Identity, error) {
	if !c.cfg.GuestCheckoutEnabled {
		return nil, domain.ErrGuestCheckoutOff
	}

	// Guest checkout waits for the restore to resolve; starting a guest
	// mid-restore would discard a valid session arriving moments later.
	c.mu.Lock()
	switch c.state {
	case domain.StateUninitialized, domain.StateRestoring,
		domain.StateAuthenticated, domain.StateAuthenticating, domain.StateSigningOut:
		state := c.state
		c.mu.Unlock()
		return nil, fmt.Errorf("cannot start guest session in state %s", state)
	}

	guest := domain.NewGuestIdentity()
	c.identity = guest
	c.session = nil
	c.state = domain.StateGuest
	c.mu.Unlock()

	c.publish(domain.IdentityEvent{Identity: guest.Clone(), Reason: domain.ReasonGuest})
	c.metrics.GuestSession()
	c.logger.Info("guest session started", "guest_id", guest.ID)
	return guest.Clone(), nil
}

// RefreshSession refreshes the provider session. Concurrent callers share a
// single in-flight refresh and all receive its result. The flight runs on a
// detached context so the first caller cancelling cannot fail everyone
// coalesced behind it.
func (c *Coordinator) RefreshSession(ctx context.Context) (*domain.Session, error) {
	v, err, _ := c.refreshGroup.Do("refresh", func() (any, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.ProviderTimeout)
		defer cancel()
		return c.provider.RefreshSession(flightCtx)
	})
	if err != nil {
		c.metrics.AuthFailure(string(domain.KindOf(err)))
		if domain.IsAuthError(err) {
			c.Recover(ctx, err)
		}
		return nil, err
	}

	c.metrics.Refresh()
	return v.(*domain.Session), nil
}

// RefreshIdentity re-derives the identity projection from the profile store,
// bypassing the cached row.
func (c *Coordinator) RefreshIdentity(ctx context.Context) error {
	c.mu.RLock()
	state := c.state
	session := c.session.Clone()
	c.mu.RUnlock()

	if state == domain.StateGuest {
		return nil
	}
	if session == nil {
		return domain.ErrNotAuthenticated
	}

	c.cache.Invalidate(ctx, cachekeys.Profile(session.SubjectID))
	identity := c.deriveIdentity(ctx, session)

	c.mu.Lock()
	c.identity = identity.Clone()
	c.mu.Unlock()

	c.publish(domain.IdentityEvent{Identity: identity.Clone(), Reason: domain.ReasonRefresh})
	return nil
}

// Event loop

func (c *Coordinator) enqueue(e domain.ProviderEvent) {
	select {
	case c.events <- e:
	default:
		c.logger.Warn("provider event buffer full, dropping event", "event", e.Event)
	}
}

func (c *Coordinator) loop() {
	for {
		select {
		case e := <-c.events:
			c.handleEvent(e)
		case <-c.done:
			return
		}
	}
}

func (c *Coordinator) handleEvent(e domain.ProviderEvent) {
	c.mu.Lock()
	switch c.state {
	case domain.StateAuthenticating:
		// A command is in flight; it will replay these when it settles.
		c.deferred = append(c.deferred, e)
		c.mu.Unlock()
		return
	case domain.StateSigningOut:
		c.mu.Unlock()
		c.logger.Debug("dropping provider event during sign-out", "event", e.Event)
		return
	}
	c.mu.Unlock()

	switch e.Event {
	case domain.EventInitialSession:
		c.handleInitialSession(e.Session)
	case domain.EventSignedIn:
		c.handleSignedIn(e.Session)
	case domain.EventTokenRefreshed:
		c.handleTokenRefreshed(e.Session)
	case domain.EventSignedOut:
		c.handleSignedOut()
	case domain.EventUserUpdated:
		c.handleUserUpdated(e.Session)
	default:
		c.logger.Debug("ignoring unknown provider event", "event", e.Event)
	}
}

func (c *Coordinator) handleInitialSession(session *domain.Session) {
	c.mu.Lock()
	if c.state != domain.StateRestoring {
		// Restore already resolved; a late probe result must not re-run it.
		c.mu.Unlock()
		return
	}
	if session == nil {
		c.state = domain.StateAnonymous
		c.mu.Unlock()
		c.publish(domain.IdentityEvent{Reason: domain.ReasonRestore})
		c.logger.Info("no session to restore, starting anonymous")
		return
	}
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.ProviderTimeout)
	defer cancel()

	// A restored session is validated before it is trusted; a token the
	// provider no longer honors means corrupted persisted state.
	if err := c.provider.CheckSession(ctx); err != nil {
		if domain.IsAuthError(err) {
			c.Recover(ctx, err)
			return
		}
		c.logger.Warn("session validation inconclusive, restoring anyway", "error", err)
	}

	identity := c.deriveIdentity(ctx, session)
	c.install(ctx, session, identity, domain.ReasonRestore)
	c.logger.Info("session restored", "subject_id", session.SubjectID)
}

func (c *Coordinator) handleSignedIn(session *domain.Session) {
	if session == nil {
		return
	}

	c.mu.RLock()
	current := c.session
	duplicate := current != nil && current.AccessToken == session.AccessToken
	c.mu.RUnlock()
	if duplicate {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.ProviderTimeout)
	defer cancel()

	identity := c.deriveIdentity(ctx, session)
	c.install(ctx, session, identity, domain.ReasonSignIn)
}

func (c *Coordinator) handleTokenRefreshed(session *domain.Session) {
	if session == nil {
		return
	}

	c.mu.Lock()
	if c.session != nil && c.session.AccessToken == session.AccessToken {
		// Duplicate refresh notifications coalesce to nothing.
		c.mu.Unlock()
		return
	}
	if c.session == nil {
		// A refresh with no current session behaves like a sign-in.
		c.mu.Unlock()
		c.handleSignedIn(session)
		return
	}
	c.session = session.Clone()
	identity := c.identity.Clone()
	c.mu.Unlock()

	c.publish(domain.IdentityEvent{Identity: identity, Reason: domain.ReasonRefresh})
	c.logger.Debug("session tokens rotated", "subject_id", session.SubjectID)
}

func (c *Coordinator) handleSignedOut() {
	c.mu.Lock()
	if c.session != nil && !c.signOutExpected {
		// A stale sign-out must never clobber a newer session.
		c.mu.Unlock()
		c.logger.Warn("ignoring stale sign-out event")
		return
	}
	if c.session == nil && c.identity == nil && c.state == domain.StateAnonymous {
		c.mu.Unlock()
		return
	}
	departed := c.identity.Clone()
	c.clearLocked()
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.ProviderTimeout)
	defer cancel()
	if departed != nil {
		c.purgeUser(ctx, departed.ID)
	}
	c.publish(domain.IdentityEvent{Reason: domain.ReasonSignOut})
}

func (c *Coordinator) handleUserUpdated(session *domain.Session) {
	c.mu.RLock()
	current := c.session.Clone()
	c.mu.RUnlock()
	if current == nil {
		return
	}
	if session != nil {
		current = session.Clone()
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.ProviderTimeout)
	defer cancel()

	c.cache.Invalidate(ctx, cachekeys.Profile(current.SubjectID))
	identity := c.deriveIdentity(ctx, current)

	c.mu.Lock()
	c.session = current.Clone()
	c.identity = identity.Clone()
	c.mu.Unlock()

	c.publish(domain.IdentityEvent{Identity: identity.Clone(), Reason: domain.ReasonRefresh})
}

// Command plumbing

func (c *Coordinator) beginAuth() (domain.State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case domain.StateAuthenticating:
		return c.state, fmt.Errorf("authentication already in progress")
	case domain.StateSigningOut:
		return c.state, fmt.Errorf("sign-out in progress")
	}
	prev := c.state
	c.state = domain.StateAuthenticating
	return prev, nil
}

func (c *Coordinator) abortAuth(prev domain.State) {
	c.mu.Lock()
	c.state = prev
	deferred := c.deferred
	c.deferred = nil
	c.mu.Unlock()

	for _, e := range deferred {
		c.enqueue(e)
	}
}

func (c *Coordinator) completeAuth(ctx context.Context, session *domain.Session, identity *domain.Identity, reason domain.ChangeReason) {
	c.mu.Lock()
	previous := c.identity
	c.session = session.Clone()
	c.identity = identity.Clone()
	c.state = domain.StateAuthenticated
	deferred := c.deferred
	c.deferred = nil
	c.mu.Unlock()

	// Sign-in over a different principal (or a guest) purges that
	// principal's cache scope; guest data is not migrated.
	if previous != nil && previous.ID != identity.ID {
		c.purgeUser(ctx, previous.ID)
	}

	c.publish(domain.IdentityEvent{Identity: identity.Clone(), Reason: reason})
	c.prefetch(ctx, identity)

	for _, e := range deferred {
		c.enqueue(e)
	}
}

// install applies a session arriving via provider event rather than command.
func (c *Coordinator) install(ctx context.Context, session *domain.Session, identity *domain.Identity, reason domain.ChangeReason) {
	c.mu.Lock()
	previous := c.identity
	c.session = session.Clone()
	c.identity = identity.Clone()
	c.state = domain.StateAuthenticated
	c.mu.Unlock()

	if previous != nil && previous.ID != identity.ID {
		c.purgeUser(ctx, previous.ID)
	}

	c.publish(domain.IdentityEvent{Identity: identity.Clone(), Reason: reason})
	c.prefetch(ctx, identity)
}

func (c *Coordinator) clearLocked() {
	c.session = nil
	c.identity = nil
	c.state = domain.StateAnonymous
	c.signOutExpected = false
}

// deriveIdentity builds the identity projection for a session. Profile
// fetch failure degrades to a fallback identity instead of failing the
// authentication.
func (c *Coordinator) deriveIdentity(ctx context.Context, session *domain.Session) *domain.Identity {
	profile, err := c.profiles.Get(ctx, session.SubjectID)
	if err != nil {
		if errors.Is(err, domain.ErrProfileNotFound) {
			c.logger.Info("no profile row, using fallback identity", "subject_id", session.SubjectID)
		} else {
			c.logger.Warn("profile fetch failed, using fallback identity",
				"subject_id", session.SubjectID, "error", err)
		}
		return domain.NewFallbackIdentity(session, session.Email)
	}

	if data, err := json.Marshal(profile); err == nil {
		c.cache.Set(ctx, cachekeys.Profile(session.SubjectID), data, c.cfg.CacheTTL)
	}
	return domain.IdentityFromProfile(session, session.Email, profile)
}

// prefetch warms the new user's cache scope so the first screens after
// sign-in render without a round trip. Failures are logged and skipped;
// warming is never allowed to fail an authentication.
func (c *Coordinator) prefetch(ctx context.Context, identity *domain.Identity) {
	if identity == nil || identity.IsGuest {
		return
	}
	if data, err := json.Marshal(identity); err == nil {
		c.cache.Set(ctx, cachekeys.AuthUser(), data, c.cfg.CacheTTL)
	}

	if orders, err := c.orders.ListByUser(ctx, identity.ID); err == nil {
		if data, err := json.Marshal(orders); err == nil {
			c.cache.Set(ctx, cachekeys.Orders(identity.ID), data, c.cfg.CacheTTL)
		}
	} else {
		c.logger.Debug("order prefetch skipped", "user_id", identity.ID, "error", err)
	}

	if messages, err := c.messages.ListByUser(ctx, identity.ID); err == nil {
		if data, err := json.Marshal(messages); err == nil {
			c.cache.Set(ctx, cachekeys.Messages(identity.ID), data, c.cfg.CacheTTL)
		}
	} else {
		c.logger.Debug("message prefetch skipped", "user_id", identity.ID, "error", err)
	}
}

// purgeUser removes every cache entry in the user's scope. Auth-namespace
// entries always go with it.
func (c *Coordinator) purgeUser(ctx context.Context, userID string) {
	c.cache.InvalidateMatching(ctx, cachekeys.UserScope(userID))
	c.logger.Debug("purged cache scope", "user_id", userID)
}

func (c *Coordinator) publish(event domain.IdentityEvent) {
	c.mu.RLock()
	listeners := make([]func(domain.IdentityEvent), 0, len(c.listeners))
	for _, fn := range c.listeners {
		listeners = append(listeners, fn)
	}
	c.mu.RUnlock()

	for _, fn := range listeners {
		fn(event)
	}
}
