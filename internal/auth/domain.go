package auth

import "time"

// Credentials is the slice of a user row needed to check a password.
type Credentials struct {
	ID           int64
	Email        string
	PasswordHash string
	IsActive     bool
}

// LoginRequest is the body of POST /auth/token.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// TokenResponse is returned on a successful login.
type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Me describes the caller as resolved by the middleware.
type Me struct {
	ID          int64    `json:"id"`
	Superuser   bool     `json:"is_superuser"`
	Permissions []string `json:"permissions"`
}
