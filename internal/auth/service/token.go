package service

import (
	"errors"
	"time"

	"github.com/binsight/auth/internal/auth/domain"
	"github.com/binsight/auth/pkg/jwtx"
)

// TokenService mints and validates session tokens. The signing key is
// process-wide, initialized once at startup and read-only afterwards;
// rotating it (by restarting) invalidates every outstanding token at once.
type TokenService struct {
	Keys      *jwtx.KeyPair
	Issuer    string
	AccessTTL time.Duration
	Clock     func() time.Time
}

func (s *TokenService) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}

func (s *TokenService) ttl() time.Duration {
	if s.AccessTTL > 0 {
		return s.AccessTTL
	}
	return jwtx.DefaultSessionTTL
}

// Mint signs a session token for the user. mfaSatisfied records whether
// every factor the user has enabled was completed during this login.
func (s *TokenService) Mint(u domain.User, mfaSatisfied bool) (domain.SessionToken, error) {
	claims := jwtx.NewSessionClaims(
		u.ID, u.Username, u.Role.String(),
		mfaSatisfied,
		s.ttl(), s.Issuer, s.now().UTC(),
	)

	signed, err := s.Keys.Sign(claims)
	if err != nil {
		return domain.SessionToken{}, err
	}

	return domain.SessionToken{
		AccessToken:  signed,
		TokenType:    "Bearer",
		ExpiresIn:    s.ttl(),
		Role:         u.Role,
		MFASatisfied: mfaSatisfied,
	}, nil
}

// Validate verifies a compact token and returns the principal it asserts.
// The signature is checked before any claim is inspected.
func (s *TokenService) Validate(token string) (domain.Principal, error) {
	claims, err := s.Keys.Verify(token)
	if err != nil {
		if errors.Is(err, jwtx.ErrExpired) {
			return domain.Principal{}, ErrTokenExpired
		}
		return domain.Principal{}, ErrInvalidToken
	}

	role, err := domain.ParseRole(claims.Role)
	if err != nil {
		return domain.Principal{}, ErrInvalidToken
	}

	return domain.Principal{
		UserID:       claims.Subject,
		Username:     claims.Username,
		Role:         role,
		MFASatisfied: claims.MFASatisfied,
	}, nil
}
