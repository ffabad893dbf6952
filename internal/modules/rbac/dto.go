package rbac

import (
	"time"

	"authservice/internal/domain"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

type CreateRoleRequest struct {
	Name        string   `json:"name" binding:"required"`
	Description string   `json:"description" binding:"max=200"`
	Permissions []string `json:"permissions" binding:"dive,permission"`
}

// UpdateRoleRequest: nil fields are left unchanged.
type UpdateRoleRequest struct {
	Description *string   `json:"description" binding:"omitempty,max=200"`
	Permissions *[]string `json:"permissions" binding:"omitempty,dive,permission"`
}

type SetUserRolesRequest struct {
	Roles []string `json:"roles"`
}

type ListUsersQuery struct {
	Page    int `form:"page"`
	PerPage int `form:"per_page"`
}

type UserPage struct {
	Users   []domain.User
	Page    int
	PerPage int
	Total   int64
}

func (p *UserPage) Pages() int {
	if p.PerPage == 0 {
		return 0
	}
	return int((p.Total + int64(p.PerPage) - 1) / int64(p.PerPage))
}

type RoleResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Permissions []string  `json:"permissions"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func NewRoleResponse(r *domain.Role) RoleResponse {
	perms := []string(r.Permissions)
	if perms == nil {
		perms = []string{}
	}
	return RoleResponse{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Permissions: perms,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

type UserResponse struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Username    string     `json:"username"`
	FirstName   string     `json:"first_name,omitempty"`
	LastName    string     `json:"last_name,omitempty"`
	IsActive    bool       `json:"is_active"`
	IsVerified  bool       `json:"is_verified"`
	Roles       []string   `json:"roles"`
	Permissions []string   `json:"permissions"`
	CreatedAt   time.Time  `json:"created_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		Username:    u.Username,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		IsActive:    u.IsActive,
		IsVerified:  u.IsVerified,
		Roles:       u.RoleNames(),
		Permissions: EffectivePermissions(u),
		CreatedAt:   u.CreatedAt,
		LastLoginAt: u.LastLoginAt,
	}
}
