package domain

import "time"

// Session is the provider-issued token pair for an authenticated principal.
// The provider owns it; we only observe and replace it. At most one session
// is current per process, and a newer session atomically supersedes the
// previous one.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	SubjectID    string    `json:"subject_id"`
	Email        string    `json:"email"`
}

// IsExpired returns true if the access token is past its expiry.
func (s *Session) IsExpired() bool {
	return !s.ExpiresAt.IsZero() && time.Now().After(s.ExpiresAt)
}

// ExpiresWithin reports whether the access token expires within d.
func (s *Session) ExpiresWithin(d time.Duration) bool {
	return !s.ExpiresAt.IsZero() && time.Now().Add(d).After(s.ExpiresAt)
}

// Clone returns a copy so callers cannot mutate coordinator state.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
