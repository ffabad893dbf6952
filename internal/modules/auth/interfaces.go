package auth

import (
	"context"
	"time"

	"authservice/internal/domain"
	"authservice/internal/pkg/jwt"
)

// UserRepositoryInterface lists only the methods the auth service uses
type UserRepositoryInterface interface {
	Create(ctx context.Context, u *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error)
	UpdatePasswordHash(ctx context.Context, id, hash string) error
	UpdateProfile(ctx context.Context, id, username, firstName, lastName string) error
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
}

type RoleRepositoryInterface interface {
	GetByName(ctx context.Context, name string) (*domain.Role, error)
}

// RefreshTokenLedger stores issued refresh tokens
type RefreshTokenLedger interface {
	Store(ctx context.Context, userID, jti string, ttl time.Duration, meta domain.ClientMeta) (*domain.RefreshToken, error)
	ValidateAndConsume(ctx context.Context, jti string) (string, error)
	Revoke(ctx context.Context, jti string) (bool, error)
	RevokeAllForUser(ctx context.Context, userID, exceptJTI string) (int64, error)
	RevokeByID(ctx context.Context, userID, id string) (bool, error)
	GetByID(ctx context.Context, id string) (*domain.RefreshToken, error)
	ListActiveForUser(ctx context.Context, userID string, now time.Time) ([]domain.RefreshToken, error)
	SweepExpired(ctx context.Context, now time.Time) (int64, error)
}

// Store hands out repositories bound either to the connection pool or to a
// single transaction.
type Store interface {
	Users() UserRepositoryInterface
	Roles() RoleRepositoryInterface
	Ledger() RefreshTokenLedger
	Transaction(ctx context.Context, fn func(tx Store) error) error
}

type TokenCodec interface {
	IssueAccessToken(userID, username string, roles, permissions []string) (string, string, error)
	IssueRefreshToken(userID string) (string, string, error)
	DecodeRefreshToken(token string) (*jwt.Claims, error)
	DecodeRefreshTokenIgnoringExpiry(token string) (*jwt.Claims, error)
	AccessTTL() time.Duration
	RefreshTTL() time.Duration
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) bool
	NeedsRehash(encoded string) bool
}
