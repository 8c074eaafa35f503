package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/binsight/auth/internal/auth/domain"
	"github.com/binsight/auth/internal/auth/store"
	"github.com/binsight/auth/pkg/idx"
	"github.com/binsight/auth/pkg/slogx"
)

// AuditService appends security-relevant events. Recording never fails the
// caller: an auth decision must not depend on audit-log availability, so a
// storage failure is written to the process log and swallowed.
type AuditService struct {
	Store store.Store
	Clock func() time.Time
}

func (s *AuditService) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}

// Record appends one immutable event. actor is the username, or
// domain.AuditActorAnonymous when the failure happened before any identity
// was established.
func (s *AuditService) Record(ctx context.Context, actor, kind, outcome, detail string) {
	if actor == "" {
		actor = domain.AuditActorAnonymous
	}

	e := domain.AuditEvent{
		ID:      idx.New().String(),
		At:      s.now().UTC(),
		Actor:   actor,
		Kind:    kind,
		Outcome: outcome,
		Detail:  detail,
	}

	if err := s.Store.AuditEvents().AppendAuditEvent(ctx, e); err != nil {
		// Fallback sink: the event still lands somewhere an operator can
		// reconstruct a timeline from.
		slogx.FromContext(ctx).Error("audit append failed",
			slog.Any("err", err),
			slog.String("actor", e.Actor),
			slog.String("kind", e.Kind),
			slog.String("outcome", e.Outcome),
		)
	}
}

// List returns recorded events newest first, optionally filtered by actor.
func (s *AuditService) List(ctx context.Context, actor string, limit int) ([]domain.AuditEvent, error) {
	return s.Store.AuditEvents().ListAuditEvents(ctx, actor, limit)
}
