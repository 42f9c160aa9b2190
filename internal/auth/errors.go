package auth

import "errors"

// Error taxonomy surfaced to the HTTP layer. The generic wording is
// deliberate: credentials errors never distinguish unknown accounts from
// wrong passwords, and token errors never distinguish wrong, expired and
// already-used.
var (
	// ErrNoSession indicates a missing, unknown or expired session cookie.
	ErrNoSession = errors.New("auth: admin login required")
	// ErrInvalidCSRF indicates a mutating call without a matching CSRF header.
	ErrInvalidCSRF = errors.New("auth: invalid csrf token")
	// ErrRateLimited indicates an active lockout or throttle.
	ErrRateLimited = errors.New("auth: too many attempts")
	// ErrInvalidCredentials indicates a failed login.
	ErrInvalidCredentials = errors.New("auth: invalid email or password")
	// ErrInvalidToken indicates an unknown, expired or already-used reset token.
	ErrInvalidToken = errors.New("auth: invalid or expired reset token")
	// ErrMissingToken indicates a reset submit without a token.
	ErrMissingToken = errors.New("auth: reset token is required")
	// ErrMissingEmail indicates a reset request without an email.
	ErrMissingEmail = errors.New("auth: email is required")
	// ErrPasswordTooWeak indicates a new password under the minimum length.
	ErrPasswordTooWeak = errors.New("auth: password must be at least 10 characters")
)
