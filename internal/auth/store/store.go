package store

import (
	"context"
	"errors"
	"time"

	"github.com/binsight/auth/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite today,
// postgres if the fleet outgrows it) implement this. Sub-repositories keep
// concerns tidy and testable.
type Store interface {
	Users() Users
	MFAChallenges() MFAChallenges
	AuditEvents() AuditEvents

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction: rolled back if fn returns
	// an error, committed otherwise. The recommended way to do multi-step
	// atomic operations.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos plus Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

// Users persists user identities and their MFA fields. Every operation is
// a single statement, so per-key updates are atomic at the database level.
type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByUsername is used during password login.
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by app via ULID).
	CreateUser(ctx context.Context, u domain.User) error

	// ListUsers returns all users ordered by creation (newest first).
	// Password hashes and MFA secrets are not populated.
	ListUsers(ctx context.Context) ([]domain.User, error)

	// UpdatePasswordHash sets the password_hash and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, userID string, newHash string) error

	// DeleteUser removes the user; challenges cascade per schema.
	DeleteUser(ctx context.Context, userID string) error

	// IsEmpty returns true if there are no users.
	IsEmpty(ctx context.Context) (bool, error)

	// SetPendingMFASecret stores a fresh pending secret, clearing any
	// enabled timestamp and resetting the attempt counter. Used both for
	// first enrollment and for re-rolls.
	SetPendingMFASecret(ctx context.Context, userID string, secret string) error

	// IncrementMFAAttempts bumps the pending-confirmation failure counter
	// and returns the new value.
	IncrementMFAAttempts(ctx context.Context, userID string) (int, error)

	// ConfirmMFA flips a pending enrollment to enabled. The update is
	// guarded on the pending state, so of N concurrent confirms exactly
	// one observes confirmed=true.
	ConfirmMFA(ctx context.Context, userID string, at time.Time) (confirmed bool, err error)

	// ClearMFA removes the secret and enabled timestamp, returning the
	// user to the disabled state. A no-op when already disabled.
	ClearMFA(ctx context.Context, userID string) error
}

// MFAChallenges persists pending login challenges: a password has been
// verified but the second factor is still outstanding.
type MFAChallenges interface {
	// CreateChallenge stores a new login challenge.
	CreateChallenge(ctx context.Context, c domain.MFAChallenge) error

	// GetChallengeByTokenHash returns a not-yet-expired challenge.
	GetChallengeByTokenHash(ctx context.Context, hash string) (domain.MFAChallenge, error)

	// IncrementChallengeAttempts bumps the failed-code counter and returns
	// the updated challenge.
	IncrementChallengeAttempts(ctx context.Context, hash string) (domain.MFAChallenge, error)

	// DeleteChallenge removes a challenge (redeemed or abandoned).
	DeleteChallenge(ctx context.Context, hash string) error

	// DeleteExpiredChallenges is housekeeping.
	DeleteExpiredChallenges(ctx context.Context) error
}

// AuditEvents is append-only: there is deliberately no update or delete.
type AuditEvents interface {
	// AppendAuditEvent writes one immutable event.
	AppendAuditEvent(ctx context.Context, e domain.AuditEvent) error

	// ListAuditEvents returns events newest first, optionally filtered by
	// actor. limit <= 0 applies the default cap.
	ListAuditEvents(ctx context.Context, actor string, limit int) ([]domain.AuditEvent, error)
}
