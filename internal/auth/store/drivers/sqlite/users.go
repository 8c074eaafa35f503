package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/binsight/auth/internal/auth/domain"
)

type usersRepo struct {
	q dbtx
}

const userColumns = `id, username, password_hash, role, mfa_secret, mfa_enabled, mfa_attempts, created_at, updated_at`

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *usersRepo) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	return scanUser(row)
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	now := time.Now().UTC()
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO users (id, username, password_hash, role, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.PasswordHash, u.Role.String(), now, now)
	return mapConstraint(err)
}

func (r *usersRepo) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, username, role, mfa_secret, mfa_enabled, created_at, updated_at
		 FROM users ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var (
			u       domain.User
			role    string
			secret  sql.NullString
			enabled sql.NullTime
		)
		if err := rows.Scan(&u.ID, &u.Username, &role, &secret, &enabled, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		u.Role = domain.Role(role)
		// Listings report state, not secret material.
		if secret.Valid && secret.String != "" {
			masked := ""
			u.MFASecret = &masked
		}
		if enabled.Valid {
			t := enabled.Time
			u.MFAEnabled = &t
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID string, newHash string) error {
	return r.exec(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		newHash, time.Now().UTC(), userID)
}

func (r *usersRepo) DeleteUser(ctx context.Context, userID string) error {
	return r.exec(ctx, `DELETE FROM users WHERE id = ?`, userID)
}

func (r *usersRepo) IsEmpty(ctx context.Context) (bool, error) {
	var count int64
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return false, err
	}
	return count == 0, nil
}

func (r *usersRepo) SetPendingMFASecret(ctx context.Context, userID string, secret string) error {
	return r.exec(ctx,
		`UPDATE users
		 SET mfa_secret = ?, mfa_enabled = NULL, mfa_attempts = 0, updated_at = ?
		 WHERE id = ?`,
		secret, time.Now().UTC(), userID)
}

func (r *usersRepo) IncrementMFAAttempts(ctx context.Context, userID string) (int, error) {
	var attempts int
	err := r.q.QueryRowContext(ctx,
		`UPDATE users SET mfa_attempts = mfa_attempts + 1, updated_at = ?
		 WHERE id = ?
		 RETURNING mfa_attempts`,
		time.Now().UTC(), userID).Scan(&attempts)
	if err != nil {
		return 0, mapNotFound(err)
	}
	return attempts, nil
}

// ConfirmMFA is guarded on the pending state so concurrent confirms cannot
// double-transition: the row count tells the caller whether it won.
func (r *usersRepo) ConfirmMFA(ctx context.Context, userID string, at time.Time) (bool, error) {
	res, err := r.q.ExecContext(ctx,
		`UPDATE users SET mfa_enabled = ?, mfa_attempts = 0, updated_at = ?
		 WHERE id = ? AND mfa_secret IS NOT NULL AND mfa_enabled IS NULL`,
		at.UTC(), time.Now().UTC(), userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *usersRepo) ClearMFA(ctx context.Context, userID string) error {
	return r.exec(ctx,
		`UPDATE users
		 SET mfa_secret = NULL, mfa_enabled = NULL, mfa_attempts = 0, updated_at = ?
		 WHERE id = ?`,
		time.Now().UTC(), userID)
}

// exec runs a keyed statement and maps "no such row" onto ErrNotFound.
func (r *usersRepo) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return mapNotFound(sql.ErrNoRows)
	}
	return nil
}

func scanUser(row *sql.Row) (domain.User, error) {
	var (
		u       domain.User
		role    string
		secret  sql.NullString
		enabled sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &role,
		&secret, &enabled, &u.MFAAttempts, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}

	u.Role = domain.Role(role)
	if secret.Valid {
		s := secret.String
		u.MFASecret = &s
	}
	if enabled.Valid {
		t := enabled.Time
		u.MFAEnabled = &t
	}
	return u, nil
}
