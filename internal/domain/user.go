package domain

import "time"

// User is the credential record. Roles are loaded explicitly by the repository.
type User struct {
	ID                string     `json:"id" gorm:"type:varchar(36);primaryKey"`
	Email             string     `json:"email" gorm:"size:255;uniqueIndex;not null"`
	Username          string     `json:"username" gorm:"size:50;uniqueIndex;not null"`
	PasswordHash      string     `json:"-" gorm:"type:text;not null"`
	FirstName         string     `json:"first_name,omitempty" gorm:"size:50"`
	LastName          string     `json:"last_name,omitempty" gorm:"size:50"`
	IsActive          bool       `json:"is_active" gorm:"not null"`
	IsVerified        bool       `json:"is_verified" gorm:"not null"`
	VerificationToken string     `json:"-" gorm:"size:100"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	LastLoginAt       *time.Time `json:"last_login_at,omitempty"`

	Roles []Role `json:"-" gorm:"many2many:user_roles;"`
}

// RoleNames returns the names of the roles currently loaded on the user.
func (u *User) RoleNames() []string {
	names := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		names = append(names, r.Name)
	}
	return names
}

// ClientMeta is the request metadata recorded on a session.
type ClientMeta struct {
	UserAgent string
	IP        string
}
