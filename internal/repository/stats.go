package repository

import (
	"context"
	"fmt"
	"time"

	"authservice/internal/domain"
)

// AccountStats are point-in-time counts exported on /metrics.
type AccountStats struct {
	TotalUsers     int64
	ActiveUsers    int64
	ActiveSessions int64
	RecentLogins   int64 // users whose last login falls inside the window
}

// AccountStats counts users and live sessions as of the store clock.
func (s *Store) AccountStats(ctx context.Context, loginWindow time.Duration) (AccountStats, error) {
	now := s.now().UTC()
	db := s.db.WithContext(ctx)

	var st AccountStats
	if err := db.Model(&domain.User{}).Count(&st.TotalUsers).Error; err != nil {
		return st, fmt.Errorf("count users: %w", err)
	}
	if err := db.Model(&domain.User{}).Where("is_active = ?", true).Count(&st.ActiveUsers).Error; err != nil {
		return st, fmt.Errorf("count active users: %w", err)
	}
	if err := db.Model(&domain.RefreshToken{}).
		Where("is_revoked = ? AND expires_at >= ?", false, now).
		Count(&st.ActiveSessions).Error; err != nil {
		return st, fmt.Errorf("count active sessions: %w", err)
	}
	if err := db.Model(&domain.User{}).
		Where("last_login_at > ?", now.Add(-loginWindow)).
		Count(&st.RecentLogins).Error; err != nil {
		return st, fmt.Errorf("count recent logins: %w", err)
	}
	return st, nil
}
