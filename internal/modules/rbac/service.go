package rbac

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"authservice/internal/domain"
	"authservice/internal/pkg/validator"
	"authservice/internal/repository"

	"go.uber.org/zap"
)

// Service manages roles and the administrative side of user accounts.
type Service struct {
	roles    RoleRepositoryInterface
	users    UserRepositoryInterface
	sessions SessionRevoker
	log      *zap.Logger
}

func NewService(roles RoleRepositoryInterface, users UserRepositoryInterface, sessions SessionRevoker, log *zap.Logger) *Service {
	return &Service{
		roles:    roles,
		users:    users,
		sessions: sessions,
		log:      log,
	}
}

func (s *Service) ListRoles(ctx context.Context) ([]domain.Role, error) {
	return s.roles.List(ctx)
}

func (s *Service) GetRole(ctx context.Context, name string) (*domain.Role, error) {
	role, err := s.roles.GetByName(ctx, name)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	return role, nil
}

func (s *Service) CreateRole(ctx context.Context, name, description string, permissions []string) (*domain.Role, error) {
	name = strings.TrimSpace(name)
	if !validator.IsValidRoleName(name) {
		return nil, ErrInvalidRoleName
	}
	if err := checkPermissions(permissions); err != nil {
		return nil, err
	}

	role := &domain.Role{
		Name:        name,
		Description: strings.TrimSpace(description),
		Permissions: domain.NewPermissionSet(permissions),
	}
	if err := s.roles.Create(ctx, role); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrRoleExists
		}
		return nil, err
	}

	s.log.Info("role created", zap.String("role", role.Name), zap.Strings("permissions", role.Permissions))
	return role, nil
}

// UpdateRole changes description and/or permissions. The admin permission set
// is frozen; its description may still change.
func (s *Service) UpdateRole(ctx context.Context, name string, description *string, permissions *[]string) (*domain.Role, error) {
	role, err := s.roles.GetByName(ctx, name)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	if name == domain.RoleAdmin && permissions != nil {
		return nil, ErrReservedRole
	}

	if description != nil {
		role.Description = strings.TrimSpace(*description)
	}
	if permissions != nil {
		if err := checkPermissions(*permissions); err != nil {
			return nil, err
		}
		role.Permissions = domain.NewPermissionSet(*permissions)
	}
	if err := s.roles.Update(ctx, role); err != nil {
		return nil, mapRepoErr(err)
	}

	s.log.Info("role updated", zap.String("role", role.Name))
	return role, nil
}

func checkPermissions(perms []string) error {
	for _, p := range perms {
		if !validator.IsValidPermission(p) {
			return fmt.Errorf("%w: %q", ErrInvalidPermission, p)
		}
	}
	return nil
}

func (s *Service) DeleteRole(ctx context.Context, name string) error {
	if domain.IsReservedRole(name) {
		return ErrReservedRole
	}
	if err := s.roles.Delete(ctx, name); err != nil {
		return mapRepoErr(err)
	}
	s.log.Info("role deleted", zap.String("role", name))
	return nil
}

func (s *Service) ListUsers(ctx context.Context, page, perPage int) (*UserPage, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}

	users, total, err := s.users.List(ctx, (page-1)*perPage, perPage)
	if err != nil {
		return nil, err
	}
	return &UserPage{Users: users, Page: page, PerPage: perPage, Total: total}, nil
}

func (s *Service) GetUser(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	return user, nil
}

// SetUserRoles replaces the user's roles. Every name must exist, and the last
// active admin cannot lose the admin role.
func (s *Service) SetUserRoles(ctx context.Context, userID string, names []string) (*domain.User, error) {
	names = uniqueNames(names)
	if len(names) == 0 {
		return nil, ErrNoRoles
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, mapRepoErr(err)
	}

	roles, err := s.roles.GetByNames(ctx, names)
	if err != nil {
		return nil, err
	}
	if missing := missingRole(names, roles); missing != "" {
		return nil, fmt.Errorf("%w: %s", ErrRoleNotFound, missing)
	}

	keepsAdmin := false
	for _, n := range names {
		if n == domain.RoleAdmin {
			keepsAdmin = true
		}
	}
	if !keepsAdmin {
		if err := s.ensureAnotherAdmin(ctx, user); err != nil {
			return nil, err
		}
	}

	if err := s.users.SetRoles(ctx, userID, roles); err != nil {
		return nil, mapRepoErr(err)
	}

	s.log.Info("user roles updated", zap.String("user_id", userID), zap.Strings("roles", names))
	return s.GetUser(ctx, userID)
}

func (s *Service) ActivateUser(ctx context.Context, userID string) (*domain.User, error) {
	if err := s.users.SetActive(ctx, userID, true); err != nil {
		return nil, mapRepoErr(err)
	}
	s.log.Info("user activated", zap.String("user_id", userID))
	return s.GetUser(ctx, userID)
}

// DeactivateUser blocks the account and revokes its refresh tokens. Access
// tokens already issued stay valid until they expire.
func (s *Service) DeactivateUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	if err := s.ensureAnotherAdmin(ctx, user); err != nil {
		return nil, err
	}

	if err := s.users.SetActive(ctx, userID, false); err != nil {
		return nil, mapRepoErr(err)
	}
	revoked, err := s.sessions.RevokeAllForUser(ctx, userID, "")
	if err != nil {
		return nil, err
	}

	s.log.Info("user deactivated", zap.String("user_id", userID), zap.Int64("sessions_revoked", revoked))
	user.IsActive = false
	return user, nil
}

// ensureAnotherAdmin fails with ErrLastAdmin when user is an admin and no
// other active admin exists.
func (s *Service) ensureAnotherAdmin(ctx context.Context, user *domain.User) error {
	if !HasRole(user, domain.RoleAdmin) {
		return nil
	}
	active, err := s.users.CountActiveWithRole(ctx, domain.RoleAdmin)
	if err != nil {
		return err
	}
	others := active
	if user.IsActive {
		others--
	}
	if others < 1 {
		return ErrLastAdmin
	}
	return nil
}

func uniqueNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

func missingRole(names []string, roles []domain.Role) string {
	found := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		found[r.Name] = struct{}{}
	}
	for _, n := range names {
		if _, ok := found[n]; !ok {
			return n
		}
	}
	return ""
}

func mapRepoErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrUserNotFound):
		return ErrUserNotFound
	case errors.Is(err, repository.ErrRoleNotFound):
		return ErrRoleNotFound
	default:
		return err
	}
}
