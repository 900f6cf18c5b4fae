package gateway

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"session-hub/app/domain"
	"session-hub/app/driver/gotrue"
	"session-hub/app/port"
)

// TokenAPI is the slice of the GoTrue client the gateway needs. It exists so
// tests can substitute a stub without a live server.
type TokenAPI interface {
	PasswordGrant(ctx context.Context, email, password string) (*gotrue.TokenResponse, error)
	RefreshGrant(ctx context.Context, refreshToken string) (*gotrue.TokenResponse, error)
	SignUp(ctx context.Context, email, password string, metadata map[string]any) (*gotrue.TokenResponse, error)
	Logout(ctx context.Context, accessToken, scope string) error
	GetUser(ctx context.Context, accessToken string) (*gotrue.UserResponse, error)
}

// ProviderGateway implements port.IdentityProvider on top of the GoTrue
// client. It is the anti-corruption layer: it owns the current token pair,
// translates provider responses into domain sessions, and fans change events
// out to subscribers. All errors crossing this boundary are domain.AuthError.
type ProviderGateway struct {
	api    TokenAPI
	logger *slog.Logger

	mu          sync.RWMutex
	current     *domain.Session
	subscribers map[int]func(domain.ProviderEvent)
	nextSubID   int
}

// NewProviderGateway creates a new ProviderGateway instance.
func NewProviderGateway(api TokenAPI, logger *slog.Logger) *ProviderGateway {
	return &ProviderGateway{
		api:         api,
		logger:      logger.With("component", "provider_gateway"),
		subscribers: make(map[int]func(domain.ProviderEvent)),
	}
}

// SignIn exchanges credentials for a session and announces it.
func (g *ProviderGateway) SignIn(ctx context.Context, email, password string) (*domain.Session, error) {
	resp, err := g.api.PasswordGrant(ctx, email, password)
	if err != nil {
		g.logger.Warn("sign in failed", "error", err)
		return nil, err
	}

	session := g.sessionFromToken(resp)
	g.setCurrent(session)
	g.emit(domain.ProviderEvent{Event: domain.EventSignedIn, Session: session.Clone()})

	g.logger.Info("signed in", "subject_id", session.SubjectID)
	return session.Clone(), nil
}

// SignUp creates the account. Profile-record creation is the caller's
// compensation responsibility; see port.IdentityProvider.
func (g *ProviderGateway) SignUp(ctx context.Context, email, password, displayName string) (*domain.Session, error) {
	metadata := map[string]any{}
	if displayName != "" {
		metadata["display_name"] = displayName
	}

	resp, err := g.api.SignUp(ctx, email, password, metadata)
	if err != nil {
		g.logger.Warn("sign up failed", "error", err)
		return nil, err
	}
	if resp.AccessToken == "" {
		// Email confirmation is on: the account exists but there is no
		// session yet.
		return nil, domain.NewAuthError(domain.KindEmailUnconfirmed,
			"Account created, confirm your email to sign in", nil)
	}

	session := g.sessionFromToken(resp)
	g.setCurrent(session)
	g.emit(domain.ProviderEvent{Event: domain.EventSignedIn, Session: session.Clone()})

	g.logger.Info("signed up", "subject_id", session.SubjectID)
	return session.Clone(), nil
}

// SignOut revokes the session server-side and always clears local state.
// Revocation failure is logged, never surfaced.
func (g *ProviderGateway) SignOut(ctx context.Context, scope port.SignOutScope) {
	g.mu.Lock()
	current := g.current
	g.current = nil
	g.mu.Unlock()

	if current != nil {
		if err := g.api.Logout(ctx, current.AccessToken, string(scope)); err != nil {
			g.logger.Warn("server-side sign out failed, clearing local session anyway",
				"scope", scope, "error", err)
		}
	}

	g.emit(domain.ProviderEvent{Event: domain.EventSignedOut})
	g.logger.Info("signed out", "scope", scope)
}

// GetSession returns the current session, or (nil, nil) when none exists.
// An expired session is refreshed before being returned.
func (g *ProviderGateway) GetSession(ctx context.Context) (*domain.Session, error) {
	g.mu.RLock()
	current := g.current.Clone()
	g.mu.RUnlock()

	if current == nil {
		return nil, nil
	}
	if current.IsExpired() {
		return g.RefreshSession(ctx)
	}
	return current, nil
}

// RefreshSession exchanges the current refresh token for a new session.
func (g *ProviderGateway) RefreshSession(ctx context.Context) (*domain.Session, error) {
	g.mu.RLock()
	current := g.current.Clone()
	g.mu.RUnlock()

	if current == nil {
		return nil, domain.NewAuthError(domain.KindSessionMissing, "no session to refresh", domain.ErrNoSession)
	}

	resp, err := g.api.RefreshGrant(ctx, current.RefreshToken)
	if err != nil {
		g.logger.Warn("refresh failed", "error", err)
		return nil, err
	}

	session := g.sessionFromToken(resp)
	g.setCurrent(session)
	g.emit(domain.ProviderEvent{Event: domain.EventTokenRefreshed, Session: session.Clone()})

	g.logger.Debug("session refreshed", "subject_id", session.SubjectID, "expires_at", session.ExpiresAt)
	return session.Clone(), nil
}

// CheckSession asks the provider whether the current access token is still
// honored. Used to validate a restored session before trusting it.
func (g *ProviderGateway) CheckSession(ctx context.Context) error {
	g.mu.RLock()
	current := g.current.Clone()
	g.mu.RUnlock()

	if current == nil {
		return domain.NewAuthError(domain.KindSessionMissing, "no session to check", domain.ErrNoSession)
	}

	if _, err := g.api.GetUser(ctx, current.AccessToken); err != nil {
		return err
	}
	return nil
}

// Subscribe registers a change listener. The listener immediately receives an
// asynchronous INITIAL_SESSION event carrying the current session, which may
// be nil.
func (g *ProviderGateway) Subscribe(fn func(domain.ProviderEvent)) port.Unsubscribe {
	g.mu.Lock()
	id := g.nextSubID
	g.nextSubID++
	g.subscribers[id] = fn
	current := g.current.Clone()
	g.mu.Unlock()

	go fn(domain.ProviderEvent{Event: domain.EventInitialSession, Session: current})

	return func() {
		g.mu.Lock()
		delete(g.subscribers, id)
		g.mu.Unlock()
	}
}

func (g *ProviderGateway) setCurrent(session *domain.Session) {
	g.mu.Lock()
	g.current = session.Clone()
	g.mu.Unlock()
}

func (g *ProviderGateway) emit(event domain.ProviderEvent) {
	g.mu.RLock()
	listeners := make([]func(domain.ProviderEvent), 0, len(g.subscribers))
	for _, fn := range g.subscribers {
		listeners = append(listeners, fn)
	}
	g.mu.RUnlock()

	for _, fn := range listeners {
		fn(event)
	}
}

// sessionFromToken builds a domain session from a token response. The access
// token's own claims are authoritative for subject and expiry; the response
// envelope is the fallback when the token is not a parseable JWT.
func (g *ProviderGateway) sessionFromToken(resp *gotrue.TokenResponse) *domain.Session {
	session := &domain.Session{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		SubjectID:    resp.User.ID,
		Email:        resp.User.Email,
	}
	if resp.ExpiresIn > 0 {
		session.ExpiresAt = time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	}

	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(resp.AccessToken, claims); err != nil {
		g.logger.Debug("access token is not a parseable JWT, using envelope fields", "error", err)
		return session
	}

	if sub, err := claims.GetSubject(); err == nil && sub != "" {
		session.SubjectID = sub
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		session.ExpiresAt = exp.Time
	}
	if email, ok := claims["email"].(string); ok && email != "" {
		session.Email = email
	}

	return session
}
