package shared

import (
	"fmt"
	"strings"
)

// Principal is the authenticated actor together with its capability set.
// It is handed to every service operation explicitly.
type Principal struct {
	UserID      int64
	Superuser   bool
	permissions map[string]struct{}
}

// NewPrincipal builds a principal from a permission list.
func NewPrincipal(userID int64, superuser bool, perms []string) Principal {
	set := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		p = strings.TrimSpace(strings.ToLower(p))
		if p == "" {
			continue
		}
		set[p] = struct{}{}
	}
	return Principal{UserID: userID, Superuser: superuser, permissions: set}
}

// Can reports whether the principal holds perm.
func (p Principal) Can(perm string) bool {
	if p.UserID <= 0 {
		return false
	}
	if p.Superuser {
		return true
	}
	_, ok := p.permissions[strings.ToLower(perm)]
	return ok
}

// Require returns ErrUnauthenticated for an anonymous principal and ErrForbidden
// when any of perms is missing.
func (p Principal) Require(perms ...string) error {
	if p.UserID <= 0 {
		return ErrUnauthenticated
	}
	for _, perm := range perms {
		if !p.Can(perm) {
			return fmt.Errorf("%w: missing %s", ErrForbidden, perm)
		}
	}
	return nil
}

// Permissions returns the explicit permission names held.
func (p Principal) Permissions() []string {
	out := make([]string, 0, len(p.permissions))
	for perm := range p.permissions {
		out = append(out, perm)
	}
	return out
}
