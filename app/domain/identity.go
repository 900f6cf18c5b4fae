package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GuestIDPrefix marks locally generated guest identities. Every downstream
// consumer branches on this prefix to keep guest data away from server-backed
// endpoints, so the prefix is part of the contract.
const GuestIDPrefix = "guest-"

// GuestOrderIDPrefix marks locally synthesized guest orders.
const GuestOrderIDPrefix = "guest-order-"

// Identity is the UI-facing projection of the current user. It is derived,
// never authoritative: the provider owns the session, the profile store owns
// the profile row.
type Identity struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
	IsGuest     bool   `json:"is_guest"`
	// IsFallback is set when the identity was synthesized from auth-level
	// data because the profile fetch failed.
	IsFallback bool `json:"is_fallback"`
}

// NewGuestIdentity synthesizes a local guest identity. No network call is
// made and the id is never sent to the identity provider.
func NewGuestIdentity() *Identity {
	id := fmt.Sprintf("%s%d-%s", GuestIDPrefix, time.Now().UnixMilli(), uuid.NewString()[:8])
	return &Identity{
		ID:          id,
		DisplayName: "Guest",
		IsGuest:     true,
	}
}

// NewFallbackIdentity builds a minimal identity from session-level data when
// the profile row cannot be fetched. Authentication still succeeds; the UI
// sees a degraded but usable user.
func NewFallbackIdentity(session *Session, email string) *Identity {
	name := email
	if i := strings.IndexByte(email, '@'); i > 0 {
		name = email[:i]
	}
	return &Identity{
		ID:          session.SubjectID,
		DisplayName: name,
		Email:       email,
		IsFallback:  true,
	}
}

// IdentityFromProfile derives the identity projection from an authoritative
// profile row.
func IdentityFromProfile(session *Session, email string, profile *Profile) *Identity {
	return &Identity{
		ID:          session.SubjectID,
		DisplayName: profile.DisplayName(),
		Email:       email,
		Phone:       profile.Phone,
		Address:     profile.Address,
	}
}

// IsGuestID reports whether an id belongs to a locally generated guest.
func IsGuestID(id string) bool {
	return strings.HasPrefix(id, GuestIDPrefix)
}

// Clone returns a copy so observers cannot mutate coordinator state.
func (i *Identity) Clone() *Identity {
	if i == nil {
		return nil
	}
	c := *i
	return &c
}
