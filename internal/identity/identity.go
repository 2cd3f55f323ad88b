// Package identity defines who the ledger and session machine key their
// state on: either a registered user or an anonymous guest. A guest is a
// random opaque token held in the cookie session, so it lives exactly as
// long as the browsing session does.
package identity

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type Kind int

const (
	Guest Kind = iota
	Registered
)

// guestPrefix is reserved; registered keys can never collide with it.
const guestPrefix = "guest_"

// Identity is the unit of ownership for sessions and ledger entries.
type Identity struct {
	Kind Kind
	Key  string
}

// NewGuest mints a fresh guest identity with a random opaque token.
func NewGuest() Identity {
	return Identity{Kind: Guest, Key: guestPrefix + uuid.NewString()}
}

// GuestFromToken wraps an existing guest token (from the cookie session).
func GuestFromToken(token string) Identity {
	return Identity{Kind: Guest, Key: token}
}

// FromUserID builds the identity for a registered user.
func FromUserID(userID uint) Identity {
	return Identity{Kind: Registered, Key: fmt.Sprintf("user_%d", userID)}
}

// IsGuestKey reports whether an owner key belongs to a guest identity.
func IsGuestKey(key string) bool {
	return strings.HasPrefix(key, guestPrefix)
}

// UserIDFromKey extracts the numeric user id from a registered owner key.
func UserIDFromKey(key string) (uint, error) {
	var id uint
	if _, err := fmt.Sscanf(key, "user_%d", &id); err != nil {
		return 0, fmt.Errorf("not a registered owner key: %q", key)
	}
	return id, nil
}
