package model

import (
	"fmt"
	"strings"
)

// Role is the closed set of authorization roles a principal can carry.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

func (r Role) String() string { return string(r) }

// ParseRole converts a raw string into a Role, rejecting anything unknown.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("invalid role %q: must be user or admin", s)
	}
	return r, nil
}
