package dto

import (
	"time"

	"github.com/hawksec/hawk/internal/domain/user"
	"github.com/hawksec/hawk/internal/gateway"
)

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest represents a registration request
type RegisterRequest struct {
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
	FullName        string `json:"fullName" validate:"required,max=200"`
}

// RefreshTokenRequest represents a refresh token request
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// AuthResponse represents an authentication response. Tokens are empty
// while a new account waits for email confirmation.
type AuthResponse struct {
	AccessToken          string        `json:"accessToken,omitempty"`
	RefreshToken         string        `json:"refreshToken,omitempty"`
	ExpiresAt            *time.Time    `json:"expiresAt,omitempty"`
	User                 *user.Account `json:"user"`
	ConfirmationRequired bool          `json:"confirmationRequired,omitempty"`
}

// NewAuthResponse builds the response for a signed-in account
func NewAuthResponse(s *gateway.Session, acct *user.Account) AuthResponse {
	resp := AuthResponse{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		User:         acct,
	}
	if exp := s.Expiry(); !exp.IsZero() {
		resp.ExpiresAt = &exp
	}
	return resp
}
