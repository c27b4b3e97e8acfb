package model

import "errors"

var (
	// Credential errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDeactivated = errors.New("account deactivated")
	ErrDuplicateAccount   = errors.New("account already exists")
	ErrTooManyAttempts    = errors.New("too many login attempts")

	// Token errors
	ErrInvalidToken  = errors.New("invalid token")
	ErrTokenExpired  = errors.New("token expired")
	ErrTokenRevoked  = errors.New("token revoked")
	ErrTokenNotFound = errors.New("token not found")

	// Permission errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// Store errors
	ErrNotFound = errors.New("not found")

	// ErrConfiguration is returned when signing secrets are missing.
	ErrConfiguration = errors.New("authentication is not configured")

	ErrInvalidInput = errors.New("invalid input")
)
