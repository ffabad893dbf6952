package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// Store groups the repositories over one connection or transaction.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db, now: utcNow}
}

func (s *Store) WithClock(now func() time.Time) *Store {
	return &Store{db: s.db, now: now}
}

func (s *Store) DB() *gorm.DB { return s.db }

func (s *Store) Users() *UserRepository { return NewUserRepository(s.db) }

func (s *Store) Roles() *RoleRepository { return NewRoleRepository(s.db) }

func (s *Store) Ledger() *RefreshTokenRepository {
	return NewRefreshTokenRepository(s.db).WithClock(s.now)
}

// Transaction runs fn against a Store bound to a single transaction. The
// transaction commits when fn returns nil.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx, now: s.now})
	})
}
