package auth

import (
	"context"

	"authservice/internal/repository"
)

type repoStore struct {
	s *repository.Store
}

// NewStore adapts the gorm repositories to Store.
func NewStore(s *repository.Store) Store {
	return repoStore{s: s}
}

func (r repoStore) Users() UserRepositoryInterface { return r.s.Users() }
func (r repoStore) Roles() RoleRepositoryInterface { return r.s.Roles() }
func (r repoStore) Ledger() RefreshTokenLedger     { return r.s.Ledger() }

func (r repoStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return r.s.Transaction(ctx, func(tx *repository.Store) error {
		return fn(repoStore{s: tx})
	})
}
