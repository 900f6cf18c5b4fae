package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"session-hub/app/domain"
	"session-hub/app/driver/gotrue"
	"session-hub/app/port"
)

// stubTokenAPI is a hand-rolled TokenAPI stub.
type stubTokenAPI struct {
	passwordGrantFn func(ctx context.Context, email, password string) (*gotrue.TokenResponse, error)
	refreshGrantFn  func(ctx context.Context, refreshToken string) (*gotrue.TokenResponse, error)
	signUpFn        func(ctx context.Context, email, password string, metadata map[string]any) (*gotrue.TokenResponse, error)
	logoutFn        func(ctx context.Context, accessToken, scope string) error
	getUserFn       func(ctx context.Context, accessToken string) (*gotrue.UserResponse, error)
}

func (s *stubTokenAPI) PasswordGrant(ctx context.Context, email, password string) (*gotrue.TokenResponse, error) {
	return s.passwordGrantFn(ctx, email, password)
}

func (s *stubTokenAPI) RefreshGrant(ctx context.Context, refreshToken string) (*gotrue.TokenResponse, error) {
	return s.refreshGrantFn(ctx, refreshToken)
}

func (s *stubTokenAPI) SignUp(ctx context.Context, email, password string, metadata map[string]any) (*gotrue.TokenResponse, error) {
	return s.signUpFn(ctx, email, password, metadata)
}

func (s *stubTokenAPI) Logout(ctx context.Context, accessToken, scope string) error {
	return s.logoutFn(ctx, accessToken, scope)
}

func (s *stubTokenAPI) GetUser(ctx context.Context, accessToken string) (*gotrue.UserResponse, error) {
	return s.getUserFn(ctx, accessToken)
}

// eventRecorder collects provider events behind a mutex.
type eventRecorder struct {
	mu     sync.Mutex
	events []domain.ProviderEvent
}

func (r *eventRecorder) record(e domain.ProviderEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *eventRecorder) snapshot() []domain.ProviderEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.ProviderEvent(nil), r.events...)
}

func (r *eventRecorder) waitFor(t *testing.T, event domain.AuthChangeEvent) domain.ProviderEvent {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		for _, e := range r.snapshot() {
			if e.Event == event {
				return e
			}
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for event %s", event)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

// unsignedJWT builds a syntactically valid JWT with the given claims. The
// gateway never verifies signatures, only decodes claims.
func unsignedJWT(t *testing.T, claims map[string]any) string {
	t.Helper()
	header, err := json.Marshal(map[string]string{"alg": "HS256", "typ": "JWT"})
	require.NoError(t, err)
	payload, err := json.Marshal(claims)
	require.NoError(t, err)
	return base64.RawURLEncoding.EncodeToString(header) + "." +
		base64.RawURLEncoding.EncodeToString(payload) + "." +
		base64.RawURLEncoding.EncodeToString([]byte("sig"))
}

func TestSignIn_StoresSessionAndEmits(t *testing.T) {
	exp := time.Now().Add(time.Hour).Unix()
	token := unsignedJWT(t, map[string]any{
		"sub":   "user-1",
		"exp":   exp,
		"email": "user@example.com",
	})

	api := &stubTokenAPI{
		passwordGrantFn: func(ctx context.Context, email, password string) (*gotrue.TokenResponse, error) {
			return &gotrue.TokenResponse{
				AccessToken:  token,
				RefreshToken: "refresh-1",
				ExpiresIn:    3600,
			}, nil
		},
	}
	g := NewProviderGateway(api, slog.Default())

	rec := &eventRecorder{}
	g.Subscribe(rec.record)

	session, err := g.SignIn(context.Background(), "user@example.com", "secret")
	require.NoError(t, err)

	// Claims win over the response envelope.
	assert.Equal(t, "user-1", session.SubjectID)
	assert.Equal(t, "user@example.com", session.Email)
	assert.WithinDuration(t, time.Unix(exp, 0), session.ExpiresAt, time.Second)

	event := rec.waitFor(t, domain.EventSignedIn)
	require.NotNil(t, event.Session)
	assert.Equal(t, "user-1", event.Session.SubjectID)

	stored, err := g.GetSession(context.Background())
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "refresh-1", stored.RefreshToken)
}

func TestSignIn_OpaqueTokenFallsBackToEnvelope(t *testing.T) {
	api := &stubTokenAPI{
		passwordGrantFn: func(ctx context.Context, email, password string) (*gotrue.TokenResponse, error) {
			return &gotrue.TokenResponse{
				AccessToken:  "opaque-token",
				RefreshToken: "refresh-1",
				ExpiresIn:    3600,
				User:         gotrue.UserResponse{ID: "user-2", Email: "user2@example.com"},
			}, nil
		},
	}
	g := NewProviderGateway(api, slog.Default())

	session, err := g.SignIn(context.Background(), "user2@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "user-2", session.SubjectID)
	assert.Equal(t, "user2@example.com", session.Email)
	assert.WithinDuration(t, time.Now().Add(time.Hour), session.ExpiresAt, 5*time.Second)
}

func TestSignUp_NoSessionMeansEmailUnconfirmed(t *testing.T) {
	api := &stubTokenAPI{
		signUpFn: func(ctx context.Context, email, password string, metadata map[string]any) (*gotrue.TokenResponse, error) {
			return &gotrue.TokenResponse{User: gotrue.UserResponse{ID: "new-user"}}, nil
		},
	}
	g := NewProviderGateway(api, slog.Default())

	_, err := g.SignUp(context.Background(), "new@example.com", "secret", "New User")
	require.Error(t, err)
	assert.Equal(t, domain.KindEmailUnconfirmed, domain.KindOf(err))

	session, err := g.GetSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, session)
}

func TestSignOut_NeverFailsAndClearsState(t *testing.T) {
	api := &stubTokenAPI{
		passwordGrantFn: func(ctx context.Context, email, password string) (*gotrue.TokenResponse, error) {
			return &gotrue.TokenResponse{AccessToken: "a", RefreshToken: "r", ExpiresIn: 3600,
				User: gotrue.UserResponse{ID: "user-1"}}, nil
		},
		logoutFn: func(ctx context.Context, accessToken, scope string) error {
			return errors.New("revocation endpoint down")
		},
	}
	g := NewProviderGateway(api, slog.Default())

	_, err := g.SignIn(context.Background(), "user@example.com", "secret")
	require.NoError(t, err)

	rec := &eventRecorder{}
	g.Subscribe(rec.record)

	g.SignOut(context.Background(), port.SignOutLocal)

	event := rec.waitFor(t, domain.EventSignedOut)
	assert.Nil(t, event.Session)

	session, err := g.GetSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, session)
}

func TestGetSession_NoneIsNilNil(t *testing.T) {
	g := NewProviderGateway(&stubTokenAPI{}, slog.Default())

	session, err := g.GetSession(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, session)
}

func TestRefreshSession_NoSession(t *testing.T) {
	g := NewProviderGateway(&stubTokenAPI{}, slog.Default())

	_, err := g.RefreshSession(context.Background())
	require.Error(t, err)
	assert.Equal(t, domain.KindSessionMissing, domain.KindOf(err))
	assert.ErrorIs(t, err, domain.ErrNoSession)
}

func TestRefreshSession_RotatesTokensAndEmits(t *testing.T) {
	api := &stubTokenAPI{
		passwordGrantFn: func(ctx context.Context, email, password string) (*gotrue.TokenResponse, error) {
			return &gotrue.TokenResponse{AccessToken: "access-1", RefreshToken: "refresh-1", ExpiresIn: 3600,
				User: gotrue.UserResponse{ID: "user-1"}}, nil
		},
		refreshGrantFn: func(ctx context.Context, refreshToken string) (*gotrue.TokenResponse, error) {
			assert.Equal(t, "refresh-1", refreshToken)
			return &gotrue.TokenResponse{AccessToken: "access-2", RefreshToken: "refresh-2", ExpiresIn: 3600,
				User: gotrue.UserResponse{ID: "user-1"}}, nil
		},
	}
	g := NewProviderGateway(api, slog.Default())

	_, err := g.SignIn(context.Background(), "user@example.com", "secret")
	require.NoError(t, err)

	rec := &eventRecorder{}
	g.Subscribe(rec.record)

	refreshed, err := g.RefreshSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access-2", refreshed.AccessToken)
	assert.Equal(t, "refresh-2", refreshed.RefreshToken)

	event := rec.waitFor(t, domain.EventTokenRefreshed)
	require.NotNil(t, event.Session)
	assert.Equal(t, "access-2", event.Session.AccessToken)
}

func TestCheckSession(t *testing.T) {
	api := &stubTokenAPI{
		passwordGrantFn: func(ctx context.Context, email, password string) (*gotrue.TokenResponse, error) {
			return &gotrue.TokenResponse{AccessToken: "access-1", RefreshToken: "r", ExpiresIn: 3600,
				User: gotrue.UserResponse{ID: "user-1"}}, nil
		},
		getUserFn: func(ctx context.Context, accessToken string) (*gotrue.UserResponse, error) {
			if accessToken != "access-1" {
				return nil, domain.NewAuthError(domain.KindSessionExpired, "Session is no longer valid", nil)
			}
			return &gotrue.UserResponse{ID: "user-1"}, nil
		},
	}
	g := NewProviderGateway(api, slog.Default())

	err := g.CheckSession(context.Background())
	require.Error(t, err)
	assert.Equal(t, domain.KindSessionMissing, domain.KindOf(err))

	_, err = g.SignIn(context.Background(), "user@example.com", "secret")
	require.NoError(t, err)
	assert.NoError(t, g.CheckSession(context.Background()))
}

func TestSubscribe_DeliversInitialSession(t *testing.T) {
	api := &stubTokenAPI{
		passwordGrantFn: func(ctx context.Context, email, password string) (*gotrue.TokenResponse, error) {
			return &gotrue.TokenResponse{AccessToken: "a", RefreshToken: "r", ExpiresIn: 3600,
				User: gotrue.UserResponse{ID: "user-1"}}, nil
		},
	}
	g := NewProviderGateway(api, slog.Default())

	_, err := g.SignIn(context.Background(), "user@example.com", "secret")
	require.NoError(t, err)

	rec := &eventRecorder{}
	g.Subscribe(rec.record)

	event := rec.waitFor(t, domain.EventInitialSession)
	require.NotNil(t, event.Session)
	assert.Equal(t, "user-1", event.Session.SubjectID)
}

func TestUnsubscribe_StopsDelivery(t *testing.T) {
	api := &stubTokenAPI{
		passwordGrantFn: func(ctx context.Context, email, password string) (*gotrue.TokenResponse, error) {
			return &gotrue.TokenResponse{AccessToken: "a", RefreshToken: "r", ExpiresIn: 3600,
				User: gotrue.UserResponse{ID: "user-1"}}, nil
		},
	}
	g := NewProviderGateway(api, slog.Default())

	rec := &eventRecorder{}
	unsubscribe := g.Subscribe(rec.record)
	rec.waitFor(t, domain.EventInitialSession)
	unsubscribe()

	_, err := g.SignIn(context.Background(), "user@example.com", "secret")
	require.NoError(t, err)

	for _, e := range rec.snapshot() {
		assert.NotEqual(t, domain.EventSignedIn, e.Event)
	}
}
