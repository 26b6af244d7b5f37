package auth

import (
	"slices"
	"time"
)

// Identity is an authenticated principal.
type Identity struct {
	// Principal is the token subject.
	Principal string

	// Roles are the roles carried by the token.
	Roles []string

	// Claims holds every claim from the token.
	Claims map[string]any

	ExpiresAt time.Time
	IssuedAt  time.Time
}

// HasRole reports whether the identity carries role.
func (id *Identity) HasRole(role string) bool {
	return id != nil && slices.Contains(id.Roles, role)
}

// IsExpired reports whether the identity expired before now.
func (id *Identity) IsExpired(now time.Time) bool {
	if id.ExpiresAt.IsZero() {
		return false
	}
	return now.After(id.ExpiresAt)
}
