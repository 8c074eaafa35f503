package domain

import "time"

// MFAState is derived from the MFA columns on the user record rather than
// stored separately, so the state machine cannot drift from the data:
// no secret means Disabled, a secret without the enabled timestamp means
// PendingEnrollment, and both together mean Enabled.
type MFAState string

const (
	MFADisabled MFAState = "disabled"
	MFAPending  MFAState = "pending_enrollment"
	MFAEnabled  MFAState = "enabled"
)

type User struct {
	ID           string
	Username     string
	PasswordHash string // argon2id PHC encoded
	Role         Role
	MFASecret    *string    // TOTP secret (nullable, base32 encoded)
	MFAEnabled   *time.Time // Timestamp when MFA was confirmed (nullable)
	MFAAttempts  int        // Consecutive failed confirmations of a pending secret
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// MFAState derives the enrollment state from the stored MFA fields. Only
// nil means "no secret": listings mask the secret value but keep the
// pointer so the state stays derivable.
func (u User) MFAState() MFAState {
	switch {
	case u.MFASecret == nil:
		return MFADisabled
	case u.MFAEnabled == nil:
		return MFAPending
	default:
		return MFAEnabled
	}
}
