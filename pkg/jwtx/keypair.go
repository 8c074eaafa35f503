// Package jwtx signs and verifies session JWTs with a single process-wide
// Ed25519 key generated at startup. Rotation discipline is deliberate and
// blunt: a restart (or explicit re-keying) invalidates every outstanding
// token at once, since no multi-key verification window exists.
package jwtx

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformed  = errors.New("jwtx: malformed token")
	ErrInvalidSig = errors.New("jwtx: invalid signature")
	ErrExpired    = errors.New("jwtx: token expired")
	ErrIssuer     = errors.New("jwtx: issuer mismatch")
)

// KeyPair holds the process signing key. The key material is immutable
// after construction and safe to share across goroutines.
type KeyPair struct {
	issuer string
	priv   ed25519.PrivateKey
	pub    ed25519.PublicKey

	// Leeway tolerates small clock skew between instances when validating
	// exp/nbf. Zero means strict.
	Leeway time.Duration

	// now is the clock; overridable in tests.
	now func() time.Time
}

// NewEphemeralKeyPair generates a fresh Ed25519 keypair held only in
// memory. All previously issued tokens are invalid from this moment.
func NewEphemeralKeyPair(issuer string) (*KeyPair, error) {
	if issuer == "" {
		return nil, errors.New("jwtx: issuer is required")
	}

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("jwtx: failed to generate Ed25519 key: %w", err)
	}

	return &KeyPair{issuer: issuer, priv: priv, pub: pub, now: time.Now}, nil
}

// WithClock overrides the verification clock. Test hook.
func (k *KeyPair) WithClock(now func() time.Time) *KeyPair {
	k.now = now
	return k
}

func (k *KeyPair) Issuer() string { return k.issuer }

// Sign turns claims into a signed compact JWT string.
func (k *KeyPair) Sign(claims Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(k.priv)
}

// Verify validates the token and returns its claims. The signature is
// checked before any claim is trusted; the algorithm is pinned to EdDSA so
// downgraded or "none" tokens fail at the method check.
func (k *KeyPair) Verify(tokenStr string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}),
		jwt.WithTimeFunc(k.now),
		jwt.WithLeeway(k.Leeway),
	)

	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		return k.pub, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired), errors.Is(err, jwt.ErrTokenNotValidYet):
			return nil, ErrExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrInvalidSig
		default:
			return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrMalformed
	}

	if claims.Issuer != k.issuer {
		return nil, ErrIssuer
	}

	return claims, nil
}
