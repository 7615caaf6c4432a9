package auth

import (
	"errors"

	"practice/internal/model"
)

var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("access denied")
)

// Authorize is the single role check. Requiring RoleUser admits any
// authenticated principal; requiring RoleAdmin admits admins only.
func Authorize(p *Principal, required model.Role) error {
	if p == nil {
		return ErrUnauthenticated
	}
	switch required {
	case model.RoleUser:
		if p.Role.Valid() {
			return nil
		}
	case model.RoleAdmin:
		if p.Role == model.RoleAdmin {
			return nil
		}
	}
	return ErrForbidden
}

// CanAccess reports whether p may act on a record owned by ownerID.
// Admins may access anything. Records without an owner belong to nobody
// but admins.
func CanAccess(p *Principal, ownerID *string) error {
	if p == nil {
		return ErrUnauthenticated
	}
	if p.Role == model.RoleAdmin {
		return nil
	}
	if ownerID != nil && *ownerID == p.ID {
		return nil
	}
	return ErrForbidden
}
