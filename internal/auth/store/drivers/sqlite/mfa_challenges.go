package sqlite

import (
	"context"
	"time"

	"github.com/binsight/auth/internal/auth/domain"
)

type mfaChallengesRepo struct {
	q dbtx
}

func (r *mfaChallengesRepo) CreateChallenge(ctx context.Context, c domain.MFAChallenge) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO mfa_challenges (id, token_hash, user_id, attempts, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.TokenHash, c.UserID, c.Attempts, c.CreatedAt.UTC(), c.ExpiresAt.UTC())
	return mapConstraint(err)
}

func (r *mfaChallengesRepo) GetChallengeByTokenHash(ctx context.Context, hash string) (domain.MFAChallenge, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT id, token_hash, user_id, attempts, created_at, expires_at
		 FROM mfa_challenges
		 WHERE token_hash = ? AND expires_at > ?`,
		hash, time.Now().UTC())

	var c domain.MFAChallenge
	if err := row.Scan(&c.ID, &c.TokenHash, &c.UserID, &c.Attempts, &c.CreatedAt, &c.ExpiresAt); err != nil {
		return domain.MFAChallenge{}, mapNotFound(err)
	}
	return c, nil
}

func (r *mfaChallengesRepo) IncrementChallengeAttempts(ctx context.Context, hash string) (domain.MFAChallenge, error) {
	row := r.q.QueryRowContext(ctx,
		`UPDATE mfa_challenges SET attempts = attempts + 1
		 WHERE token_hash = ?
		 RETURNING id, token_hash, user_id, attempts, created_at, expires_at`,
		hash)

	var c domain.MFAChallenge
	if err := row.Scan(&c.ID, &c.TokenHash, &c.UserID, &c.Attempts, &c.CreatedAt, &c.ExpiresAt); err != nil {
		return domain.MFAChallenge{}, mapNotFound(err)
	}
	return c, nil
}

func (r *mfaChallengesRepo) DeleteChallenge(ctx context.Context, hash string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM mfa_challenges WHERE token_hash = ?`, hash)
	return err
}

func (r *mfaChallengesRepo) DeleteExpiredChallenges(ctx context.Context) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM mfa_challenges WHERE expires_at <= ?`, time.Now().UTC())
	return err
}
