package service

import (
	"context"
	"fmt"
	"time"

	"github.com/binsight/auth/internal/auth/domain"
	"github.com/binsight/auth/internal/auth/store"
	"github.com/binsight/auth/pkg/cryptox"
	"github.com/binsight/auth/pkg/idx"
)

// UserService handles admin-facing account management. Authorization is the
// caller's concern; this layer only enforces data invariants.
type UserService struct {
	Store store.Store
	Audit *AuditService
	Clock func() time.Time
}

func (s *UserService) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}

// CreateUser provisions a new account with the given role. The password is
// hashed here; the caller never sees or stores the plaintext beyond the
// request that carried it.
func (s *UserService) CreateUser(ctx context.Context, actor, username, password string, role domain.Role) (domain.User, error) {
	if !role.Valid() {
		return domain.User{}, domain.ErrUnknownRole
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return domain.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now().UTC()
	u := domain.User{
		ID:           idx.New().String(),
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.Store.Users().CreateUser(ctx, u); err != nil {
		return domain.User{}, err
	}

	s.Audit.Record(ctx, actor, domain.AuditUserCreated, domain.AuditOutcomeSuccess,
		fmt.Sprintf("username=%s role=%s", username, role))
	return u, nil
}

// GetUser returns a single account by id.
func (s *UserService) GetUser(ctx context.Context, userID string) (domain.User, error) {
	return s.Store.Users().GetUserByID(ctx, userID)
}

// ListUsers returns all accounts, newest first, with secrets masked.
func (s *UserService) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.Store.Users().ListUsers(ctx)
}

// DeleteUser removes an account. Outstanding login challenges cascade at
// the database level; already-minted session tokens stay valid until they
// expire, which is why the TTL is kept short.
func (s *UserService) DeleteUser(ctx context.Context, actor, userID string) error {
	var username string
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		u, err := tx.Users().GetUserByID(ctx, userID)
		if err != nil {
			return err
		}
		username = u.Username
		return tx.Users().DeleteUser(ctx, userID)
	})
	if err != nil {
		return err
	}

	s.Audit.Record(ctx, actor, domain.AuditUserDeleted, domain.AuditOutcomeSuccess,
		fmt.Sprintf("username=%s", username))
	return nil
}

// ChangePassword re-verifies the current password before accepting the new
// one, so a hijacked session alone cannot rotate the credential.
func (s *UserService) ChangePassword(ctx context.Context, userID, current, next string) error {
	u, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := cryptox.VerifyPassword(current, u.PasswordHash); err != nil {
		s.Audit.Record(ctx, u.Username, domain.AuditPasswordChanged, domain.AuditOutcomeFailure, "current password mismatch")
		return ErrInvalidCredentials
	}

	hash, err := cryptox.HashPassword(next)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.Store.Users().UpdatePasswordHash(ctx, userID, hash); err != nil {
		return err
	}

	s.Audit.Record(ctx, u.Username, domain.AuditPasswordChanged, domain.AuditOutcomeSuccess, "")
	return nil
}
