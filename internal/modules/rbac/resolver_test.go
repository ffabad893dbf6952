package rbac

import (
	"testing"

	"authservice/internal/domain"

	"github.com/stretchr/testify/assert"
)

func userWithRoles(roles ...domain.Role) *domain.User {
	return &domain.User{ID: "u1", IsActive: true, Roles: roles}
}

func role(name string, perms ...string) domain.Role {
	return domain.Role{ID: name + "-id", Name: name, Permissions: domain.NewPermissionSet(perms)}
}

func TestEffectivePermissions(t *testing.T) {
	u := userWithRoles(
		role("editor", "write", "read"),
		role("viewer", "read", "export"),
	)
	assert.Equal(t, []string{"export", "read", "write"}, EffectivePermissions(u))
}

func TestEffectivePermissions_NoRoles(t *testing.T) {
	perms := EffectivePermissions(userWithRoles())
	assert.NotNil(t, perms)
	assert.Empty(t, perms)
}

func TestHasPermissionAndRole(t *testing.T) {
	u := userWithRoles(role("editor", "write"))

	assert.True(t, HasPermission(u, "write"))
	assert.False(t, HasPermission(u, "delete"))
	assert.True(t, HasRole(u, "editor"))
	assert.False(t, HasRole(u, domain.RoleAdmin))
}
