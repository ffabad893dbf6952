package rbac

import (
	"context"

	"authservice/internal/domain"
)

// RoleRepositoryInterface is the role storage used by the service
type RoleRepositoryInterface interface {
	GetByName(ctx context.Context, name string) (*domain.Role, error)
	GetByNames(ctx context.Context, names []string) ([]domain.Role, error)
	List(ctx context.Context) ([]domain.Role, error)
	Create(ctx context.Context, role *domain.Role) error
	Update(ctx context.Context, role *domain.Role) error
	Delete(ctx context.Context, name string) error
}

// UserRepositoryInterface lists only the user administration methods
type UserRepositoryInterface interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	List(ctx context.Context, offset, limit int) ([]domain.User, int64, error)
	SetRoles(ctx context.Context, userID string, roles []domain.Role) error
	SetActive(ctx context.Context, id string, active bool) error
	CountActiveWithRole(ctx context.Context, roleName string) (int64, error)
}

// SessionRevoker ends every session of a deactivated user.
type SessionRevoker interface {
	RevokeAllForUser(ctx context.Context, userID, exceptJTI string) (int64, error)
}
