package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/binsight/auth/internal/auth/domain"
	"github.com/binsight/auth/internal/auth/store"
	"github.com/binsight/auth/pkg/cryptox"
	"github.com/binsight/auth/pkg/idx"
	"github.com/binsight/auth/pkg/slogx"
)

// DefaultAdminUsername is the account seeded into an empty database.
const DefaultAdminUsername = "admin"

// BootstrapService seeds the first admin account so a fresh deployment is
// reachable without out-of-band database surgery.
type BootstrapService struct {
	Store store.Store
	Audit *AuditService
	Clock func() time.Time
}

func (s *BootstrapService) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}

// EnsureAdmin creates the default admin with a random password when the
// user table is empty. The generated password is printed to the process
// log exactly once; it is not recoverable afterwards.
func (s *BootstrapService) EnsureAdmin(ctx context.Context) error {
	empty, err := s.Store.Users().IsEmpty(ctx)
	if err != nil {
		return fmt.Errorf("failed to inspect user table: %w", err)
	}
	if !empty {
		return nil
	}

	password, err := cryptox.GeneratePassword()
	if err != nil {
		return fmt.Errorf("failed to generate admin password: %w", err)
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	now := s.now().UTC()
	u := domain.User{
		ID:           idx.New().String(),
		Username:     DefaultAdminUsername,
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.Store.Users().CreateUser(ctx, u); err != nil {
		// Another replica won the race; its admin works fine.
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil
		}
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	slogx.FromContext(ctx).Warn("bootstrap admin created, change the password immediately",
		slog.String("username", DefaultAdminUsername),
		slog.String("password", password),
	)

	s.Audit.Record(ctx, DefaultAdminUsername, domain.AuditBootstrapComplete, domain.AuditOutcomeSuccess, "")
	return nil
}
