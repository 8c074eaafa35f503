package sqlite

import (
	"context"

	"github.com/binsight/auth/internal/auth/domain"
)

type auditEventsRepo struct {
	q dbtx
}

// defaultAuditLimit caps unbounded listings.
const defaultAuditLimit = 100

func (r *auditEventsRepo) AppendAuditEvent(ctx context.Context, e domain.AuditEvent) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO audit_events (id, at, actor, kind, outcome, detail)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.At.UTC(), e.Actor, e.Kind, e.Outcome, e.Detail)
	return err
}

func (r *auditEventsRepo) ListAuditEvents(ctx context.Context, actor string, limit int) ([]domain.AuditEvent, error) {
	if limit <= 0 {
		limit = defaultAuditLimit
	}

	query := `SELECT id, at, actor, kind, outcome, detail FROM audit_events`
	args := []any{}
	if actor != "" {
		query += ` WHERE actor = ?`
		args = append(args, actor)
	}
	query += ` ORDER BY at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.AuditEvent
	for rows.Next() {
		var e domain.AuditEvent
		if err := rows.Scan(&e.ID, &e.At, &e.Actor, &e.Kind, &e.Outcome, &e.Detail); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
