package auth

import (
	"slices"

	"schoolregistry/internal/errors"
	"schoolregistry/internal/model"
)

var (
	// AdminOnly admits administrators.
	AdminOnly = []model.Role{model.RoleAdmin}
	// AdminOrStaff admits administrators and staff.
	AdminOrStaff = []model.Role{model.RoleAdmin, model.RoleStaff}
)

// RequireRole returns nil when user holds one of roles, ErrUnauthenticated
// when there is no user, and ErrForbidden otherwise.
func RequireRole(user *model.User, roles ...model.Role) error {
	if user == nil {
		return errors.ErrUnauthenticated
	}
	if !slices.Contains(roles, user.Role) {
		return errors.ErrForbidden
	}
	return nil
}
