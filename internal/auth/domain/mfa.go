package domain

import "time"

// MFAChallengeResponse is returned when a password login needs a second
// factor before a session token can be minted.
type MFAChallengeResponse struct {
	MFARequired bool   `json:"mfa_required"` // always true
	MFAToken    string `json:"mfa_token"`    // opaque challenge token
}

// MFAChallenge is a pending login challenge stored server-side. The stored
// row is keyed by a fingerprint of the opaque token handed to the client.
type MFAChallenge struct {
	ID        string // ULID
	TokenHash string // SHA-256 fingerprint of the opaque challenge token
	UserID    string
	Attempts  int // failed code submissions (capped to prevent brute force)
	CreatedAt time.Time
	ExpiresAt time.Time
}

// MFAEnrollResponse carries the provisioning payload handed to the user
// exactly once, at enrollment start. The secret is never exposed again.
type MFAEnrollResponse struct {
	Secret    string `json:"secret"`     // Base32 encoded TOTP secret
	URI       string `json:"uri"`        // otpauth:// URL for QR rendering
	Issuer    string `json:"issuer"`     // e.g. "BinSight"
	Account   string `json:"account"`    // account label (username)
	Algorithm string `json:"algorithm"`  // "SHA1"
	Digits    int    `json:"digits"`     // 6
	PeriodSec int    `json:"period_sec"` // 30
}
