package domain

import "time"

// RefreshToken is one session ledger row.
//
// Token holds the jti of the signed refresh token, never the token itself.
// The only mutation after insert is flipping IsRevoked; rows are removed by
// the expiry sweep or together with their user.
type RefreshToken struct {
	ID        string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	Token     string    `json:"-" gorm:"size:255;uniqueIndex;not null"`
	UserID    string    `json:"user_id" gorm:"type:varchar(36);index;not null"`
	ExpiresAt time.Time `json:"expires_at" gorm:"index;not null"`
	IsRevoked bool      `json:"is_revoked" gorm:"not null"`
	IssuedAt  time.Time `json:"issued_at" gorm:"not null"`
	UserAgent string    `json:"user_agent,omitempty" gorm:"size:255"`
	IPAddress string    `json:"ip_address,omitempty" gorm:"size:45"`
}

func (t *RefreshToken) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// IsActive reports whether the row may still be exchanged at now.
func (t *RefreshToken) IsActive(now time.Time) bool {
	return !t.IsRevoked && !t.IsExpired(now)
}
