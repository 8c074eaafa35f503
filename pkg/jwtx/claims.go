package jwtx

import (
	"time"

	"github.com/binsight/auth/pkg/idx"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultSessionTTL is the default lifetime for session tokens. There is
// no refresh token: when a session expires the user authenticates again.
const DefaultSessionTTL = time.Hour

// Claims are the session-token claims. Keep changes additive so tokens
// minted by older builds still parse.
type Claims struct {
	jwt.RegisteredClaims

	// Username for the authenticated user.
	Username string `json:"username,omitempty"`

	// Role is the user's role name ("admin", "manager", "viewer").
	Role string `json:"role,omitempty"`

	// MFASatisfied records whether this session completed every factor the
	// user has enabled. Users without MFA get true: there was nothing more
	// to satisfy. Guards use this to fence endpoints that demand full
	// authentication.
	MFASatisfied bool `json:"mfa_satisfied"`
}

// NewSessionClaims builds minimally-correct claims for a session token.
func NewSessionClaims(
	subject, username, role string,
	mfaSatisfied bool,
	ttl time.Duration,
	issuer string,
	now time.Time,
) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        idx.NewAt(now).String(),
		},
		Username:     username,
		Role:         role,
		MFASatisfied: mfaSatisfied,
	}
}
