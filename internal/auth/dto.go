package auth

import (
	"github.com/angelmondragon/oddsvault-backend/internal/users"
)

// LoginRequest captures the user credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest contains the signup payload.
type RegisterRequest struct {
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required"`
	FullName string  `json:"full_name" validate:"required,max=120"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,max=32"`
	Country  string  `json:"country" validate:"omitempty,max=64"`
}

// RefreshRequest exchanges a refresh token for a new token pair. The expired
// access token identifies the session being rotated.
type RefreshRequest struct {
	AccessToken  string `json:"access_token" validate:"required"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// TokenResponse contains the tokens and user produced by a successful login,
// signup or refresh.
type TokenResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	User         *users.UserDTO `json:"user"`
}
