package rbac

import (
	"sort"

	"authservice/internal/domain"
)

// EffectivePermissions is the sorted, deduplicated union of the permissions
// of every role loaded on user.
func EffectivePermissions(user *domain.User) []string {
	seen := make(map[string]struct{})
	perms := make([]string, 0)
	for _, role := range user.Roles {
		for _, p := range role.Permissions {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			perms = append(perms, p)
		}
	}
	sort.Strings(perms)
	return perms
}

func HasPermission(user *domain.User, perm string) bool {
	for _, role := range user.Roles {
		if role.Permissions.Contains(perm) {
			return true
		}
	}
	return false
}

func HasRole(user *domain.User, name string) bool {
	for _, role := range user.Roles {
		if role.Name == name {
			return true
		}
	}
	return false
}
