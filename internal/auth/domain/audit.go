package domain

import "time"

// Audit event kinds recorded by the core. Append-only: events are never
// mutated or deleted once written.
const (
	AuditLoginSuccess      = "login_success"
	AuditLoginFailure      = "login_failure"
	AuditMFAChallenged     = "mfa_challenged"
	AuditMFAVerified       = "mfa_verified"
	AuditMFAFailed         = "mfa_failed"
	AuditMFAEnrollStarted  = "mfa_enroll_started"
	AuditMFAEnrollConfirm  = "mfa_enroll_confirmed"
	AuditMFAEnrollFailed   = "mfa_enroll_failed"
	AuditMFAEnrollDiscard  = "mfa_enroll_discarded"
	AuditMFADisabled       = "mfa_disabled"
	AuditLockout           = "lockout"
	AuditUserCreated       = "user_created"
	AuditUserDeleted       = "user_deleted"
	AuditPasswordChanged   = "password_changed"
	AuditBootstrapComplete = "bootstrap_completed"
)

// AuditActorAnonymous is recorded when a failure happens before any
// identity could be established.
const AuditActorAnonymous = "anonymous"

const (
	AuditOutcomeSuccess = "success"
	AuditOutcomeFailure = "failure"
)

type AuditEvent struct {
	ID      string    `json:"id"`
	At      time.Time `json:"at"`
	Actor   string    `json:"actor"` // username or "anonymous"
	Kind    string    `json:"kind"`
	Outcome string    `json:"outcome"`
	Detail  string    `json:"detail,omitempty"`
}
