package domain

import (
	"errors"
	"strings"
)

// Role is the fixed set of roles the platform knows about. The ordering is
// total: Admin > Manager > Viewer. Anything richer (scopes, per-resource
// grants) belongs to a future permission model, not here.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleViewer  Role = "viewer"
)

var ErrUnknownRole = errors.New("domain: unknown role")

// Level returns the rank of the role within the total order. Higher means
// more privileged. Unknown roles rank below everything.
func (r Role) Level() int {
	switch r {
	case RoleAdmin:
		return 3
	case RoleManager:
		return 2
	case RoleViewer:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether r is equal to or above required in the ordering.
func (r Role) AtLeast(required Role) bool {
	return r.Level() >= required.Level()
}

func (r Role) Valid() bool { return r.Level() > 0 }

func (r Role) String() string { return string(r) }

// ParseRole normalises and validates a role string from storage or input.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", ErrUnknownRole
	}
	return r, nil
}
