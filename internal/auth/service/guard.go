package service

import (
	"github.com/binsight/auth/internal/auth/domain"
)

// GuardService admits or rejects requests given a session token and the
// endpoint's requirements. Stateless given a valid token; the only state
// it owns is the shared per-identity lockout arena.
type GuardService struct {
	Tokens  *TokenService
	Lockout *Lockout
}

// Authorize applies the decision table, in order:
//
//	token invalid or expired                      -> ErrUnauthenticated
//	role below required                           -> ErrInsufficientRole
//	requireMFA and token minted without full MFA  -> ErrMFARequired
//	otherwise                                     -> admit
func (s *GuardService) Authorize(token string, required domain.Role, requireMFA bool) (domain.Principal, error) {
	p, err := s.Tokens.Validate(token)
	if err != nil {
		return domain.Principal{}, ErrUnauthenticated
	}

	if !p.Role.AtLeast(required) {
		return domain.Principal{}, ErrInsufficientRole
	}

	if requireMFA && !p.MFASatisfied {
		return domain.Principal{}, ErrMFARequired
	}

	return p, nil
}
