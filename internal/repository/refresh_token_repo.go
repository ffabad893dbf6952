package repository

import (
	"context"
	"time"

	"authservice/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RefreshTokenRepository is the session ledger: one row per issued refresh
// token, keyed by jti.
type RefreshTokenRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewRefreshTokenRepository(db *gorm.DB) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db, now: utcNow}
}

func (r *RefreshTokenRepository) WithClock(now func() time.Time) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: r.db, now: now}
}

// Store records a new, non-revoked session expiring at now+ttl.
func (r *RefreshTokenRepository) Store(ctx context.Context, userID, jti string, ttl time.Duration, meta domain.ClientMeta) (*domain.RefreshToken, error) {
	now := r.now().UTC()
	t := &domain.RefreshToken{
		ID:        uuid.NewString(),
		Token:     jti,
		UserID:    userID,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
		UserAgent: truncate(meta.UserAgent, 255),
		IPAddress: truncate(meta.IP, 45),
	}
	if err := r.db.WithContext(ctx).Create(t).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return t, nil
}

// ValidateAndConsume returns the owner of jti if the row is usable. It does
// not revoke on success. An expired row is revoked as it is discovered.
// Inside a transaction the row is locked until commit.
func (r *RefreshTokenRepository) ValidateAndConsume(ctx context.Context, jti string) (string, error) {
	var t domain.RefreshToken
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("token = ?", jti).
		First(&t).Error
	if err != nil {
		return "", notFound(err, ErrLedgerNotFound)
	}

	if t.IsRevoked {
		return "", ErrLedgerAlreadyRevoked
	}
	if t.IsExpired(r.now()) {
		if err := r.db.WithContext(ctx).Model(&domain.RefreshToken{}).
			Where("id = ? AND is_revoked = ?", t.ID, false).
			Update("is_revoked", true).Error; err != nil {
			return "", err
		}
		return "", ErrLedgerExpired
	}
	return t.UserID, nil
}

// Revoke flips the row for jti to revoked. It reports whether this call did
// the flip; false means the row was missing or already revoked.
func (r *RefreshTokenRepository) Revoke(ctx context.Context, jti string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&domain.RefreshToken{}).
		Where("token = ? AND is_revoked = ?", jti, false).
		Update("is_revoked", true)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// RevokeAllForUser revokes every live session of userID except exceptJTI
// (empty revokes all). Returns the number of rows flipped.
func (r *RefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID, exceptJTI string) (int64, error) {
	q := r.db.WithContext(ctx).Model(&domain.RefreshToken{}).
		Where("user_id = ? AND is_revoked = ?", userID, false)
	if exceptJTI != "" {
		q = q.Where("token <> ?", exceptJTI)
	}
	res := q.Update("is_revoked", true)
	return res.RowsAffected, res.Error
}

// SweepExpired deletes rows with expires_at strictly before now.
func (r *RefreshTokenRepository) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at < ?", now.UTC()).Delete(&domain.RefreshToken{})
	return res.RowsAffected, res.Error
}

func (r *RefreshTokenRepository) ListActiveForUser(ctx context.Context, userID string, now time.Time) ([]domain.RefreshToken, error) {
	var tokens []domain.RefreshToken
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_revoked = ? AND expires_at >= ?", userID, false, now.UTC()).
		Order("issued_at DESC").
		Find(&tokens).Error
	return tokens, err
}

func (r *RefreshTokenRepository) GetByID(ctx context.Context, id string) (*domain.RefreshToken, error) {
	var t domain.RefreshToken
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&t).Error; err != nil {
		return nil, notFound(err, ErrLedgerNotFound)
	}
	return &t, nil
}

// RevokeByID revokes the session row id if it belongs to userID.
func (r *RefreshTokenRepository) RevokeByID(ctx context.Context, userID, id string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&domain.RefreshToken{}).
		Where("id = ? AND user_id = ? AND is_revoked = ?", id, userID, false).
		Update("is_revoked", true)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func utcNow() time.Time { return time.Now().UTC() }

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
