package identity

import (
	"time"

	"github.com/google/uuid"
	"github.com/stockitup/backend/internal/domain/identity"
)

// LoginRequest is the login form
type LoginRequest struct {
	Email    string `json:"email" form:"email" binding:"required,email"`
	Password string `json:"password" form:"password" binding:"required"`
	Next     string `json:"next" form:"next"`
}

// SignupRequest is the registration form
type SignupRequest struct {
	Email    string `json:"email" form:"email" binding:"required,email,max=200"`
	Name     string `json:"name" form:"name" binding:"max=200"`
	Password string `json:"password" form:"password" binding:"required,min=8,max=72"`
}

// UserInfo is the public view of a user
type UserInfo struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name,omitempty"`
	IsStaff     bool       `json:"is_staff"`
	IsSuperuser bool       `json:"is_superuser"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// ToUserInfo converts a user to its public view
func ToUserInfo(u *identity.User) UserInfo {
	return UserInfo{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		IsStaff:     u.IsStaff,
		IsSuperuser: u.IsSuperuser,
		LastLoginAt: u.LastLoginAt,
	}
}

// LoginResult is a signed-in user and the token that carries the session
type LoginResult struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
	User      UserInfo  `json:"user"`
}
