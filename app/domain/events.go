package domain

// AuthChangeEvent is the event type delivered by the identity provider's
// change subscription.
type AuthChangeEvent string

const (
	EventInitialSession AuthChangeEvent = "INITIAL_SESSION"
	EventSignedIn       AuthChangeEvent = "SIGNED_IN"
	EventSignedOut      AuthChangeEvent = "SIGNED_OUT"
	EventTokenRefreshed AuthChangeEvent = "TOKEN_REFRESHED"
	EventUserUpdated    AuthChangeEvent = "USER_UPDATED"
)

// ProviderEvent pairs a change event with the session it refers to. Session
// is nil for sign-out and for an initial-session probe that found nothing.
type ProviderEvent struct {
	Event   AuthChangeEvent
	Session *Session
}

// State is the coordinator's session lifecycle state.
type State int

const (
	StateUninitialized State = iota
	StateRestoring
	StateAnonymous
	StateAuthenticating
	StateAuthenticated
	StateGuest
	StateSigningOut
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateRestoring:
		return "restoring"
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	case StateGuest:
		return "guest"
	case StateSigningOut:
		return "signing_out"
	default:
		return "unknown"
	}
}

// ChangeReason explains why the active identity changed.
type ChangeReason string

const (
	ReasonRestore ChangeReason = "restore"
	ReasonSignIn  ChangeReason = "sign_in"
	ReasonSignOut ChangeReason = "sign_out"
	ReasonRefresh ChangeReason = "refresh"
	ReasonGuest   ChangeReason = "guest"
	// ReasonRecovery doubles as the navigation signal: observers route the
	// UI to the sign-in screen when they see it.
	ReasonRecovery ChangeReason = "recovery"
)

// IdentityEvent is published to identity-change subscribers. Identity is nil
// when the active identity was cleared.
type IdentityEvent struct {
	Identity *Identity
	Reason   ChangeReason
}
