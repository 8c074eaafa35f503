package domain

import "time"

// SessionToken is what a successful login returns: a signed JWT plus the
// metadata clients need without decoding it.
type SessionToken struct {
	AccessToken  string        `json:"access_token"`
	TokenType    string        `json:"token_type,omitempty"` // "Bearer"
	ExpiresIn    time.Duration `json:"expires_in"`           // seconds until expiry
	Role         Role          `json:"role"`
	MFASatisfied bool          `json:"mfa_satisfied"`
}

// Principal is the validated identity extracted from a session token.
type Principal struct {
	UserID       string
	Username     string
	Role         Role
	MFASatisfied bool
}
