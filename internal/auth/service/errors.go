package service

import "errors"

// Failure kinds surfaced by the core. All are terminal for the current
// request; lockout is the only self-healing condition (it expires after
// the cool-down).
var (
	// ErrInvalidCredentials deliberately covers both "unknown user" and
	// "wrong password" so responses cannot be used for user enumeration.
	ErrInvalidCredentials = errors.New("invalid_credentials")

	ErrInvalidToken = errors.New("invalid_token")
	ErrTokenExpired = errors.New("token_expired")

	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrInsufficientRole = errors.New("insufficient_role")
	ErrMFARequired      = errors.New("mfa_required")

	ErrMFAInvalidCode       = errors.New("mfa_invalid_code")
	ErrMFAAlreadyEnabled    = errors.New("mfa_already_enabled")
	ErrEnrollmentNotPending = errors.New("enrollment_not_pending")

	ErrLockedOut = errors.New("locked_out")
)
