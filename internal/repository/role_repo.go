package repository

import (
	"context"
	"errors"

	"authservice/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RoleRepository struct {
	db *gorm.DB
}

func NewRoleRepository(db *gorm.DB) *RoleRepository {
	return &RoleRepository{db: db}
}

func (r *RoleRepository) GetByName(ctx context.Context, name string) (*domain.Role, error) {
	var role domain.Role
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&role).Error; err != nil {
		return nil, notFound(err, ErrRoleNotFound)
	}
	return &role, nil
}

// GetByNames returns the roles that exist among names; callers compare lengths
// to detect unknown names.
func (r *RoleRepository) GetByNames(ctx context.Context, names []string) ([]domain.Role, error) {
	var roles []domain.Role
	if len(names) == 0 {
		return roles, nil
	}
	err := r.db.WithContext(ctx).Where("name IN ?", names).Order("name ASC").Find(&roles).Error
	return roles, err
}

func (r *RoleRepository) List(ctx context.Context) ([]domain.Role, error) {
	var roles []domain.Role
	err := r.db.WithContext(ctx).Order("name ASC").Find(&roles).Error
	return roles, err
}

func (r *RoleRepository) Create(ctx context.Context, role *domain.Role) error {
	if role.ID == "" {
		role.ID = uuid.NewString()
	}
	if role.Permissions == nil {
		role.Permissions = domain.PermissionSet{}
	}
	if err := r.db.WithContext(ctx).Create(role).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// Update persists description and permissions of an existing role.
func (r *RoleRepository) Update(ctx context.Context, role *domain.Role) error {
	res := r.db.WithContext(ctx).Model(&domain.Role{}).Where("id = ?", role.ID).Updates(map[string]any{
		"description": role.Description,
		"permissions": role.Permissions,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRoleNotFound
	}
	return nil
}

// Delete removes the role and every user link to it.
func (r *RoleRepository) Delete(ctx context.Context, name string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var role domain.Role
		if err := tx.Where("name = ?", name).First(&role).Error; err != nil {
			return notFound(err, ErrRoleNotFound)
		}
		if err := tx.Where("role_id = ?", role.ID).Delete(&userRole{}).Error; err != nil {
			return err
		}
		return tx.Delete(&role).Error
	})
}

// EnsureDefaults creates any of roles that does not exist yet. Existing rows
// are left untouched.
func (r *RoleRepository) EnsureDefaults(ctx context.Context, roles []domain.Role) error {
	for i := range roles {
		_, err := r.GetByName(ctx, roles[i].Name)
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrRoleNotFound) {
			return err
		}
		role := roles[i]
		if err := r.Create(ctx, &role); err != nil && !errors.Is(err, ErrDuplicate) {
			return err
		}
	}
	return nil
}
