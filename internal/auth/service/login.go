package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/binsight/auth/internal/auth/domain"
	"github.com/binsight/auth/internal/auth/store"
	"github.com/binsight/auth/pkg/cryptox"
	"github.com/binsight/auth/pkg/idx"
	"github.com/binsight/auth/pkg/slogx"
	"github.com/binsight/auth/pkg/totpx"
)

const (
	// MaxChallengeAttempts caps failed code submissions per login challenge.
	MaxChallengeAttempts = 5

	// DefaultChallengeTTL is how long a pending login challenge stays
	// redeemable after the password step.
	DefaultChallengeTTL = 5 * time.Minute
)

// LoginService runs the credential verification flow: password first, then
// a TOTP challenge when the identity has MFA enabled.
type LoginService struct {
	Store        store.Store
	Tokens       *TokenService
	Audit        *AuditService
	Lockout      *Lockout
	ChallengeTTL time.Duration
	Clock        func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

func (s *LoginService) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}

func (s *LoginService) challengeTTL() time.Duration {
	if s.ChallengeTTL > 0 {
		return s.ChallengeTTL
	}
	return DefaultChallengeTTL
}

// Login verifies the password and either mints a session token (MFA not
// enabled) or hands back an MFA challenge. Unknown usernames and wrong
// passwords are indistinguishable to the caller.
func (s *LoginService) Login(ctx context.Context, username, password string) (*domain.SessionToken, *domain.MFAChallengeResponse, error) {
	l := slogx.FromContext(ctx)

	if s.Lockout.Locked(username) {
		s.Audit.Record(ctx, username, domain.AuditLoginFailure, domain.AuditOutcomeFailure, "locked out")
		return nil, nil, ErrLockedOut
	}

	u, err := s.Store.Users().GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Burn the same hashing cost as a real verification so
			// response timing does not reveal whether the user exists.
			_ = cryptox.VerifyPassword(password, s.decoyHash())
			s.Lockout.RecordFailure(username)
			s.Audit.Record(ctx, domain.AuditActorAnonymous, domain.AuditLoginFailure, domain.AuditOutcomeFailure, "unknown username")
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}

	if err := cryptox.VerifyPassword(password, u.PasswordHash); err != nil {
		if s.Lockout.RecordFailure(username) {
			s.Audit.Record(ctx, username, domain.AuditLockout, domain.AuditOutcomeFailure, "password failure threshold reached")
		}
		s.Audit.Record(ctx, username, domain.AuditLoginFailure, domain.AuditOutcomeFailure, "wrong password")
		return nil, nil, ErrInvalidCredentials
	}

	s.Lockout.Reset(username)

	if u.MFAState() == domain.MFAEnabled {
		challenge, err := s.createChallenge(ctx, u)
		if err != nil {
			l.Error("failed to create MFA challenge", slog.Any("err", err), slog.String("user_id", u.ID))
			return nil, nil, err
		}
		s.Audit.Record(ctx, username, domain.AuditMFAChallenged, domain.AuditOutcomeSuccess, "")
		return nil, challenge, nil
	}

	// No second factor enabled: the session satisfied everything the
	// identity has configured.
	token, err := s.Tokens.Mint(u, true)
	if err != nil {
		return nil, nil, err
	}

	s.Audit.Record(ctx, username, domain.AuditLoginSuccess, domain.AuditOutcomeSuccess, "password")
	return &token, nil, nil
}

// CompleteMFA redeems a login challenge with a TOTP code and mints the
// session token. Challenges expire, are single-use, and allow at most
// MaxChallengeAttempts wrong codes before being destroyed.
func (s *LoginService) CompleteMFA(ctx context.Context, mfaToken, code string) (*domain.SessionToken, error) {
	l := slogx.FromContext(ctx)
	hash := cryptox.FingerprintToken(mfaToken)

	challenge, err := s.Store.MFAChallenges().GetChallengeByTokenHash(ctx, hash)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.Audit.Record(ctx, domain.AuditActorAnonymous, domain.AuditMFAFailed, domain.AuditOutcomeFailure, "unknown or expired challenge")
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	u, err := s.Store.Users().GetUserByID(ctx, challenge.UserID)
	if err != nil {
		return nil, err
	}

	if s.Lockout.Locked(u.Username) {
		s.Audit.Record(ctx, u.Username, domain.AuditMFAFailed, domain.AuditOutcomeFailure, "locked out")
		return nil, ErrLockedOut
	}

	if challenge.Attempts >= MaxChallengeAttempts {
		_ = s.Store.MFAChallenges().DeleteChallenge(ctx, hash)
		l.Warn("MFA challenge exceeded max attempts", "user_id", u.ID, "attempts", challenge.Attempts)
		s.Audit.Record(ctx, u.Username, domain.AuditMFAFailed, domain.AuditOutcomeFailure, "challenge attempt limit reached")
		return nil, ErrLockedOut
	}

	if u.MFASecret == nil || !totpx.VerifyCode(*u.MFASecret, s.now(), code) {
		if _, err := s.Store.MFAChallenges().IncrementChallengeAttempts(ctx, hash); err != nil {
			l.Error("failed to increment challenge attempts", slog.Any("err", err))
		}
		if s.Lockout.RecordFailure(u.Username) {
			s.Audit.Record(ctx, u.Username, domain.AuditLockout, domain.AuditOutcomeFailure, "mfa failure threshold reached")
		}
		s.Audit.Record(ctx, u.Username, domain.AuditMFAFailed, domain.AuditOutcomeFailure, "wrong code")
		return nil, ErrMFAInvalidCode
	}

	if err := s.Store.MFAChallenges().DeleteChallenge(ctx, hash); err != nil {
		l.Error("failed to delete redeemed challenge", slog.Any("err", err))
	}
	s.Lockout.Reset(u.Username)

	token, err := s.Tokens.Mint(u, true)
	if err != nil {
		return nil, err
	}

	s.Audit.Record(ctx, u.Username, domain.AuditMFAVerified, domain.AuditOutcomeSuccess, "")
	s.Audit.Record(ctx, u.Username, domain.AuditLoginSuccess, domain.AuditOutcomeSuccess, "password+totp")
	return &token, nil
}

func (s *LoginService) createChallenge(ctx context.Context, u domain.User) (*domain.MFAChallengeResponse, error) {
	opaque, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	c := domain.MFAChallenge{
		ID:        idx.New().String(),
		TokenHash: cryptox.FingerprintToken(opaque),
		UserID:    u.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.challengeTTL()),
	}

	if err := s.Store.MFAChallenges().CreateChallenge(ctx, c); err != nil {
		return nil, err
	}

	return &domain.MFAChallengeResponse{
		MFARequired: true,
		MFAToken:    opaque,
	}, nil
}

// decoyHash is a throwaway argon2id hash used to equalize timing when the
// username does not exist.
func (s *LoginService) decoyHash() string {
	s.dummyOnce.Do(func() {
		h, err := cryptox.HashPassword(idx.New().String())
		if err == nil {
			s.dummyHash = h
		}
	})
	return s.dummyHash
}
