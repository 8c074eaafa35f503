package service

import (
	"context"
	"testing"
	"time"

	"github.com/binsight/auth/internal/auth/domain"
	"github.com/stretchr/testify/require"
)

func TestAuthorize_DecisionTable(t *testing.T) {
	h := newHarness(t)
	u := h.seedUser(t, "heidi", "s3cret-pw", domain.RoleManager)

	partial, err := h.tokens.Mint(u, false)
	require.NoError(t, err)
	full, err := h.tokens.Mint(u, true)
	require.NoError(t, err)

	tests := []struct {
		name       string
		token      string
		required   domain.Role
		requireMFA bool
		wantErr    error
	}{
		{"garbage token", "not-a-jwt", domain.RoleViewer, false, ErrUnauthenticated},
		{"empty token", "", domain.RoleViewer, false, ErrUnauthenticated},
		{"role below required", full.AccessToken, domain.RoleAdmin, false, ErrInsufficientRole},
		{"exact role admitted", full.AccessToken, domain.RoleManager, false, nil},
		{"higher role admitted", full.AccessToken, domain.RoleViewer, false, nil},
		{"mfa required but unsatisfied", partial.AccessToken, domain.RoleViewer, true, ErrMFARequired},
		{"mfa required and satisfied", full.AccessToken, domain.RoleViewer, true, nil},
		{"role checked before mfa", partial.AccessToken, domain.RoleAdmin, true, ErrInsufficientRole},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := h.guard.Authorize(tt.token, tt.required, tt.requireMFA)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, u.ID, p.UserID)
			require.Equal(t, "heidi", p.Username)
			require.Equal(t, domain.RoleManager, p.Role)
		})
	}
}

func TestAuthorize_ExpiredToken(t *testing.T) {
	h := newHarness(t)
	u := h.seedUser(t, "heidi", "s3cret-pw", domain.RoleManager)

	token, err := h.tokens.Mint(u, true)
	require.NoError(t, err)

	// Move the verification clock past the TTL.
	h.keys.WithClock(func() time.Time { return time.Now().Add(2 * time.Hour) })

	_, err = h.guard.Authorize(token.AccessToken, domain.RoleViewer, false)
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestAuthorize_ForeignKeyRejected(t *testing.T) {
	h := newHarness(t)

	// A token from a different process keypair never validates here; a key
	// rotation (restart) therefore invalidates every outstanding session.
	other := newHarness(t)
	stranger := other.seedUser(t, "heidi", "s3cret-pw", domain.RoleAdmin)
	foreign, err := other.tokens.Mint(stranger, true)
	require.NoError(t, err)

	_, err = h.guard.Authorize(foreign.AccessToken, domain.RoleViewer, false)
	require.ErrorIs(t, err, ErrUnauthenticated)
}

// A manager without MFA logs in with a password alone and can reach
// manager-level endpoints, but anything demanding a completed second
// factor stays closed until they enroll.
func TestAuthorize_PasswordOnlyManagerFlow(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.seedUser(t, "alice", "s3cret-pw", domain.RoleManager)

	token, challenge, err := h.login.Login(ctx, "alice", "s3cret-pw")
	require.NoError(t, err)
	require.Nil(t, challenge)
	require.True(t, token.MFASatisfied, "no factors pending, so the session is fully satisfied")

	// Viewer-level read access: admitted.
	p, err := h.guard.Authorize(token.AccessToken, domain.RoleViewer, false)
	require.NoError(t, err)
	require.Equal(t, domain.RoleManager, p.Role)

	// Manager-level access: admitted.
	_, err = h.guard.Authorize(token.AccessToken, domain.RoleManager, false)
	require.NoError(t, err)

	// Admin-level access: refused on role, not on MFA.
	_, err = h.guard.Authorize(token.AccessToken, domain.RoleAdmin, false)
	require.ErrorIs(t, err, ErrInsufficientRole)
}
