package domain

import (
	"strings"
	"time"
)

// Profile is the row stored in the profiles table, keyed by the provider
// subject id.
type Profile struct {
	ID        string    `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DisplayName joins the name fields, falling back to the id when both are
// empty.
func (p *Profile) DisplayName() string {
	name := strings.TrimSpace(p.FirstName + " " + p.LastName)
	if name == "" {
		return p.ID
	}
	return name
}

// SplitDisplayName splits a free-form display name into first/last fields
// for the profile row. Everything after the first space becomes the last
// name.
func SplitDisplayName(displayName string) (first, last string) {
	displayName = strings.TrimSpace(displayName)
	if i := strings.IndexByte(displayName, ' '); i > 0 {
		return displayName[:i], strings.TrimSpace(displayName[i+1:])
	}
	return displayName, ""
}
