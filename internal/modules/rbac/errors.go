package rbac

import "errors"

var (
	ErrReservedRole      = errors.New("reserved role cannot be changed")
	ErrRoleExists        = errors.New("role already exists")
	ErrRoleNotFound      = errors.New("role not found")
	ErrInvalidRoleName   = errors.New("invalid role name")
	ErrInvalidPermission = errors.New("invalid permission")
	ErrUserNotFound      = errors.New("user not found")
	ErrLastAdmin         = errors.New("cannot remove the last active admin")
	ErrNoRoles           = errors.New("at least one role must be provided")
)
