// Package common defines shared constants and sentinel errors used across
// the layers of the authentication service. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrInternal   = errors.New("internal error")
	ErrValidation = errors.New("validation error")

	// Registration errors.
	ErrEmailAlreadyExists = errors.New("email already registered")

	// Login errors. The same value covers unknown email and wrong password
	// so responses cannot be used for account enumeration.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Access-token errors (missing, malformed, badly signed or expired).
	ErrInvalidToken = errors.New("missing or invalid token")

	// Refresh-session errors (unknown, expired or revoked ledger record).
	ErrSessionExpiredOrRevoked = errors.New("session expired or revoked")
)
