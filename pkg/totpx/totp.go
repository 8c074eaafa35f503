// Package totpx is a thin, pure wrapper around TOTP code generation and
// verification. It holds no state: every call is a function of the shared
// secret, the supplied time and the candidate code, which keeps the engine
// trivially safe under concurrency and easy to pin in tests.
package totpx

import (
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// Standard TOTP parameters (RFC 6238 defaults, what authenticator apps
// assume unless told otherwise).
const (
	Period    = 30 // seconds per window
	Digits    = 6
	Algorithm = "SHA1"

	// SecretBytes is the raw entropy of generated secrets. 20 bytes is
	// 160 bits, the RFC 4226 recommended minimum.
	SecretBytes = 20

	// skew is the number of adjacent windows accepted either side of the
	// current one, tolerating up to ±30s of clock drift between the
	// server and the authenticator device.
	skew = 1
)

// NewKey generates a fresh TOTP key with a random secret and the
// provisioning URI (otpauth://...) an authenticator app can scan.
func NewKey(issuer, account string) (*otp.Key, error) {
	return totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: account,
		Period:      Period,
		SecretSize:  SecretBytes,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
}

// GenerateCode derives the 6-digit code for the window containing at.
func GenerateCode(secret string, at time.Time) (string, error) {
	return totp.GenerateCodeCustom(secret, at, validateOpts())
}

// VerifyCode reports whether candidate matches the code for the window
// containing at or one window either side. Malformed candidates (wrong
// length, non-digits) are rejected before any HMAC is computed.
func VerifyCode(secret string, at time.Time, candidate string) bool {
	if !wellFormed(candidate) {
		return false
	}

	ok, err := totp.ValidateCustom(candidate, secret, at, validateOpts())
	if err != nil {
		return false
	}
	return ok
}

func validateOpts() totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    Period,
		Skew:      skew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	}
}

func wellFormed(code string) bool {
	if len(code) != Digits {
		return false
	}
	for _, c := range code {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
