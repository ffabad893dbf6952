package auth

import (
	"time"

	"authservice/internal/domain"
	"authservice/internal/modules/rbac"
)

type RegisterRequest struct {
	Username  string `json:"username" binding:"required,username"`
	Email     string `json:"email" binding:"required,email,max=255"`
	Password  string `json:"password" binding:"required,password"`
	FirstName string `json:"first_name" binding:"max=50"`
	LastName  string `json:"last_name" binding:"max=50"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// LogoutRequest: a missing token is still a successful logout.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,password"`
}

type UpdateProfileRequest struct {
	Username  *string `json:"username" binding:"omitempty,username"`
	FirstName *string `json:"first_name" binding:"omitempty,max=50"`
	LastName  *string `json:"last_name" binding:"omitempty,max=50"`
}

type RevokeAllSessionsRequest struct {
	CurrentRefreshToken string `json:"current_refresh_token"`
}

// TokenPair is what login, refresh and password change hand back.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	SessionID    string `json:"session_id"`
}

type LoginResult struct {
	User   *domain.User
	Tokens *TokenPair
}

type UserPublic struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Roles    []string `json:"roles"`
}

func NewUserPublic(u *domain.User) UserPublic {
	return UserPublic{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Roles:    u.RoleNames(),
	}
}

type SessionResponse struct {
	ID        string    `json:"id"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
	UserAgent string    `json:"user_agent"`
	IPAddress string    `json:"ip_address"`
}

func NewSessionResponse(t *domain.RefreshToken) SessionResponse {
	return SessionResponse{
		ID:        t.ID,
		IssuedAt:  t.IssuedAt,
		ExpiresAt: t.ExpiresAt,
		UserAgent: t.UserAgent,
		IPAddress: t.IPAddress,
	}
}

// profileResponse reuses the admin view of a user for /users/me.
func profileResponse(u *domain.User) rbac.UserResponse {
	return rbac.NewUserResponse(u)
}
