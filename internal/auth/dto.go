package auth

import (
	"github.com/rechargehub/rechargehub-backend/internal/users"
)

// LoginRequest captures the user credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest contains the payload required for onboarding a new account.
type RegisterRequest struct {
	FirstName string  `json:"first_name" validate:"required"`
	LastName  string  `json:"last_name" validate:"required"`
	Email     string  `json:"email" validate:"required,email"`
	Password  string  `json:"password" validate:"required,min=8"`
	Phone     *string `json:"phone,omitempty" validate:"omitempty,e164"`
}

// OTPRequest asks for a one-time login code.
type OTPRequest struct {
	Phone string `json:"phone" validate:"required,e164"`
}

// OTPVerifyRequest redeems a one-time code for a token pair.
type OTPVerifyRequest struct {
	Phone string `json:"phone" validate:"required,e164"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

// RefreshRequest rotates a session given the expired access token and the
// refresh token issued with it.
type RefreshRequest struct {
	AccessToken  string `json:"access_token" validate:"required"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// TokenPair holds a freshly minted access/refresh token set.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// AuthResponse contains the tokens and user returned by login-like flows.
type AuthResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	User         *users.UserDTO `json:"user"`
}

// OTPRequestResponse acknowledges an OTP send. Code is populated in dev
// environments only.
type OTPRequestResponse struct {
	CooldownSeconds int    `json:"cooldown_seconds"`
	ExpiresIn       int    `json:"expires_in_seconds"`
	Code            string `json:"code,omitempty"`
}
