package domain

import (
	"database/sql/driver"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Reserved role names. Neither can be deleted, and the admin permission set is frozen.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// IsReservedRole reports whether name is one of the built-in roles.
func IsReservedRole(name string) bool {
	return name == RoleAdmin || name == RoleUser
}

type Role struct {
	ID          string        `json:"id" gorm:"type:varchar(36);primaryKey"`
	Name        string        `json:"name" gorm:"size:50;uniqueIndex;not null"`
	Description string        `json:"description" gorm:"size:200"`
	Permissions PermissionSet `json:"permissions" gorm:"type:text;not null"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// PermissionSet is stored as a comma separated column.
type PermissionSet []string

// NewPermissionSet trims, drops empties and deduplicates the input, keeping it sorted.
func NewPermissionSet(perms []string) PermissionSet {
	seen := make(map[string]struct{}, len(perms))
	out := make(PermissionSet, 0, len(perms))
	for _, p := range perms {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func (p PermissionSet) Contains(perm string) bool {
	for _, v := range p {
		if v == perm {
			return true
		}
	}
	return false
}

// Value refuses entries containing the separator; they would read back as
// a different set.
func (p PermissionSet) Value() (driver.Value, error) {
	for _, v := range p {
		if strings.Contains(v, ",") {
			return nil, fmt.Errorf("permission set: %q contains ','", v)
		}
	}
	return strings.Join(p, ","), nil
}

func (p *PermissionSet) Scan(src any) error {
	var raw string
	switch v := src.(type) {
	case nil:
		*p = PermissionSet{}
		return nil
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("permission set: unsupported type %T", src)
	}
	if raw == "" {
		*p = PermissionSet{}
		return nil
	}
	*p = NewPermissionSet(strings.Split(raw, ","))
	return nil
}

// Built-in permissions.
const (
	PermManageRoles = "manage_roles"
	PermManageUsers = "manage_users"
	PermReadSelf    = "read_self"
	PermReadMetrics = "read_metrics"
)

// DefaultRoles are created on startup when missing.
func DefaultRoles() []Role {
	return []Role{
		{
			Name:        RoleAdmin,
			Description: "Administrator with full access",
			Permissions: NewPermissionSet([]string{PermManageRoles, PermManageUsers, PermReadSelf, PermReadMetrics}),
		},
		{
			Name:        RoleUser,
			Description: "Regular user",
			Permissions: NewPermissionSet([]string{PermReadSelf}),
		},
	}
}
