package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/binsight/auth/internal/auth/domain"
	"github.com/binsight/auth/internal/auth/store"
	"github.com/binsight/auth/internal/auth/store/drivers/sqlite"
	"github.com/binsight/auth/pkg/cryptox"
	"github.com/binsight/auth/pkg/idx"
	"github.com/binsight/auth/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

// testSecret is the RFC 6238 appendix B shared secret ("12345678901234567890"
// base32 encoded), handy because codes for it are stable and documented.
const testSecret = "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"

func TestMain(m *testing.M) {
	pepperPath := filepath.Join(os.TempDir(), "service-test-pepper")
	cryptox.SetPepperPath(pepperPath)

	os.Remove(pepperPath)
	defer os.Remove(pepperPath)

	os.Exit(m.Run())
}

// harness wires the full service stack onto an in-memory database.
type harness struct {
	store   store.Store
	keys    *jwtx.KeyPair
	lockout *Lockout

	audit     *AuditService
	tokens    *TokenService
	login     *LoginService
	mfa       *MFAService
	guard     *GuardService
	users     *UserService
	bootstrap *BootstrapService
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	keys, err := jwtx.NewEphemeralKeyPair("test-issuer")
	require.NoError(t, err)

	lockout := NewLockout()
	audit := &AuditService{Store: st}
	tokens := &TokenService{Keys: keys, Issuer: "test-issuer", AccessTTL: time.Hour}

	return &harness{
		store:   st,
		keys:    keys,
		lockout: lockout,
		audit:   audit,
		tokens:  tokens,
		login: &LoginService{
			Store:   st,
			Tokens:  tokens,
			Audit:   audit,
			Lockout: lockout,
		},
		mfa: &MFAService{
			Store:  st,
			Audit:  audit,
			Issuer: "BinSight",
		},
		guard: &GuardService{
			Tokens:  tokens,
			Lockout: lockout,
		},
		users: &UserService{
			Store: st,
			Audit: audit,
		},
		bootstrap: &BootstrapService{
			Store: st,
			Audit: audit,
		},
	}
}

// seedUser inserts a user with a hashed password and no MFA.
func (h *harness) seedUser(t *testing.T, username, password string, role domain.Role) domain.User {
	t.Helper()

	hash, err := cryptox.HashPassword(password)
	require.NoError(t, err)

	now := time.Now().UTC()
	u := domain.User{
		ID:           idx.New().String(),
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, h.store.Users().CreateUser(context.Background(), u))
	return u
}

// enableMFA flips the user straight to the enabled state with testSecret.
func (h *harness) enableMFA(t *testing.T, userID string) {
	t.Helper()

	ctx := context.Background()
	require.NoError(t, h.store.Users().SetPendingMFASecret(ctx, userID, testSecret))

	confirmed, err := h.store.Users().ConfirmMFA(ctx, userID, time.Now().UTC())
	require.NoError(t, err)
	require.True(t, confirmed)
}

// auditKinds returns the kinds of all recorded events for the actor, oldest
// first, so tests can assert on the shape of the trail.
func (h *harness) auditKinds(t *testing.T, actor string) []string {
	t.Helper()

	events, err := h.audit.List(context.Background(), actor, 0)
	require.NoError(t, err)

	kinds := make([]string, 0, len(events))
	for i := len(events) - 1; i >= 0; i-- {
		kinds = append(kinds, events[i].Kind)
	}
	return kinds
}
