package service

import (
	"context"
	"fmt"
	"time"

	"github.com/binsight/auth/internal/auth/domain"
	"github.com/binsight/auth/internal/auth/store"
	"github.com/binsight/auth/pkg/totpx"
)

// MaxEnrollAttempts bounds consecutive failed confirmations of a pending
// secret. The 5th wrong code discards the secret so it cannot be guessed
// by brute force; the user must restart enrollment.
const MaxEnrollAttempts = 5

// MFAService owns the per-identity enrollment state machine:
// Disabled -> PendingEnrollment -> Enabled, with re-rolls allowed while
// pending. At most one pending secret exists per identity at any time.
type MFAService struct {
	Store  store.Store
	Audit  *AuditService
	Issuer string // TOTP issuer label (e.g. "BinSight")
	Clock  func() time.Time
}

func (s *MFAService) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}

// StartEnrollment issues a fresh TOTP secret and returns the provisioning
// payload. Allowed from Disabled (first enrollment) and PendingEnrollment
// (re-roll, which invalidates the previous pending secret). The secret is
// exposed exactly once, here.
func (s *MFAService) StartEnrollment(ctx context.Context, userID string) (domain.MFAEnrollResponse, error) {
	u, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return domain.MFAEnrollResponse{}, err
	}

	if u.MFAState() == domain.MFAEnabled {
		return domain.MFAEnrollResponse{}, ErrMFAAlreadyEnabled
	}

	key, err := totpx.NewKey(s.Issuer, u.Username)
	if err != nil {
		return domain.MFAEnrollResponse{}, fmt.Errorf("failed to generate TOTP key: %w", err)
	}

	if err := s.Store.Users().SetPendingMFASecret(ctx, userID, key.Secret()); err != nil {
		return domain.MFAEnrollResponse{}, fmt.Errorf("failed to store pending secret: %w", err)
	}

	s.Audit.Record(ctx, u.Username, domain.AuditMFAEnrollStarted, domain.AuditOutcomeSuccess, "")

	return domain.MFAEnrollResponse{
		Secret:    key.Secret(),
		URI:       key.URL(),
		Issuer:    s.Issuer,
		Account:   u.Username,
		Algorithm: totpx.Algorithm,
		Digits:    totpx.Digits,
		PeriodSec: totpx.Period,
	}, nil
}

// ConfirmEnrollment verifies the candidate code against the pending secret
// and, on success, activates MFA. A wrong code keeps the same secret (the
// user probably mistyped) until MaxEnrollAttempts consecutive failures,
// at which point the pending secret is discarded.
func (s *MFAService) ConfirmEnrollment(ctx context.Context, userID string, code string) error {
	u, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return err
	}

	switch u.MFAState() {
	case domain.MFAPending:
		// proceed
	case domain.MFAEnabled:
		return ErrMFAAlreadyEnabled
	default:
		return ErrEnrollmentNotPending
	}

	if !totpx.VerifyCode(*u.MFASecret, s.now(), code) {
		attempts, err := s.Store.Users().IncrementMFAAttempts(ctx, userID)
		if err != nil {
			return err
		}

		if attempts >= MaxEnrollAttempts {
			if err := s.Store.Users().ClearMFA(ctx, userID); err != nil {
				return err
			}
			s.Audit.Record(ctx, u.Username, domain.AuditMFAEnrollDiscard, domain.AuditOutcomeFailure,
				"pending secret discarded after repeated failures")
			return ErrMFAInvalidCode
		}

		s.Audit.Record(ctx, u.Username, domain.AuditMFAEnrollFailed, domain.AuditOutcomeFailure, "wrong code")
		return ErrMFAInvalidCode
	}

	confirmed, err := s.Store.Users().ConfirmMFA(ctx, userID, s.now())
	if err != nil {
		return err
	}
	if !confirmed {
		// An equivalent concurrent confirm won the race; the enrollment
		// is enabled either way, so this call succeeded too.
		return nil
	}

	s.Audit.Record(ctx, u.Username, domain.AuditMFAEnrollConfirm, domain.AuditOutcomeSuccess, "")
	return nil
}

// Disable clears the secret and returns the identity to the Disabled
// state. Idempotent: disabling an already-disabled identity is a no-op,
// not an error. Authorization (admin or re-authenticated self-service) is
// the caller's responsibility via the guard.
func (s *MFAService) Disable(ctx context.Context, userID string) error {
	u, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return err
	}

	if u.MFAState() == domain.MFADisabled {
		return nil
	}

	if err := s.Store.Users().ClearMFA(ctx, userID); err != nil {
		return err
	}

	s.Audit.Record(ctx, u.Username, domain.AuditMFADisabled, domain.AuditOutcomeSuccess, "")
	return nil
}
