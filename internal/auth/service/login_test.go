package service

import (
	"context"
	"testing"
	"time"

	"github.com/binsight/auth/internal/auth/domain"
	"github.com/binsight/auth/pkg/cryptox"
	"github.com/binsight/auth/pkg/idx"
	"github.com/binsight/auth/pkg/totpx"
	"github.com/stretchr/testify/require"
)

func TestLogin_PasswordOnly(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.seedUser(t, "carol", "s3cret-pw", domain.RoleViewer)

	token, challenge, err := h.login.Login(ctx, "carol", "s3cret-pw")
	require.NoError(t, err)
	require.Nil(t, challenge)
	require.NotNil(t, token)
	require.NotEmpty(t, token.AccessToken)
	require.Equal(t, "Bearer", token.TokenType)
	require.Equal(t, domain.RoleViewer, token.Role)

	// No second factor configured: the session satisfied everything.
	require.True(t, token.MFASatisfied)

	claims, err := h.keys.Verify(token.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "carol", claims.Username)
	require.True(t, claims.MFASatisfied)

	require.Contains(t, h.auditKinds(t, "carol"), domain.AuditLoginSuccess)
}

func TestLogin_InvalidCredentialsAreUniform(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.seedUser(t, "carol", "s3cret-pw", domain.RoleViewer)

	t.Run("unknown username", func(t *testing.T) {
		token, challenge, err := h.login.Login(ctx, "nobody", "whatever")
		require.ErrorIs(t, err, ErrInvalidCredentials)
		require.Nil(t, token)
		require.Nil(t, challenge)
	})

	t.Run("wrong password", func(t *testing.T) {
		token, challenge, err := h.login.Login(ctx, "carol", "wrong-pw")
		require.ErrorIs(t, err, ErrInvalidCredentials)
		require.Nil(t, token)
		require.Nil(t, challenge)
	})

	t.Run("unknown user failures are logged anonymously", func(t *testing.T) {
		kinds := h.auditKinds(t, domain.AuditActorAnonymous)
		require.Contains(t, kinds, domain.AuditLoginFailure)
	})
}

func TestLogin_MFAEnabledReturnsChallenge(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	u := h.seedUser(t, "dave", "s3cret-pw", domain.RoleManager)
	h.enableMFA(t, u.ID)

	token, challenge, err := h.login.Login(ctx, "dave", "s3cret-pw")
	require.NoError(t, err)
	require.Nil(t, token, "no session token before the second factor")
	require.NotNil(t, challenge)
	require.True(t, challenge.MFARequired)
	require.NotEmpty(t, challenge.MFAToken)

	require.Contains(t, h.auditKinds(t, "dave"), domain.AuditMFAChallenged)
}

func TestCompleteMFA_ValidCode(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	u := h.seedUser(t, "dave", "s3cret-pw", domain.RoleManager)
	h.enableMFA(t, u.ID)

	_, challenge, err := h.login.Login(ctx, "dave", "s3cret-pw")
	require.NoError(t, err)

	code, err := totpx.GenerateCode(testSecret, time.Now())
	require.NoError(t, err)

	token, err := h.login.CompleteMFA(ctx, challenge.MFAToken, code)
	require.NoError(t, err)
	require.NotNil(t, token)
	require.True(t, token.MFASatisfied)

	kinds := h.auditKinds(t, "dave")
	require.Contains(t, kinds, domain.AuditMFAVerified)
	require.Contains(t, kinds, domain.AuditLoginSuccess)

	t.Run("challenge is single use", func(t *testing.T) {
		_, err := h.login.CompleteMFA(ctx, challenge.MFAToken, code)
		require.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestCompleteMFA_WrongCode(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	u := h.seedUser(t, "dave", "s3cret-pw", domain.RoleManager)
	h.enableMFA(t, u.ID)

	_, challenge, err := h.login.Login(ctx, "dave", "s3cret-pw")
	require.NoError(t, err)

	_, err = h.login.CompleteMFA(ctx, challenge.MFAToken, "000000")
	require.ErrorIs(t, err, ErrMFAInvalidCode)

	require.Contains(t, h.auditKinds(t, "dave"), domain.AuditMFAFailed)

	t.Run("challenge survives a single wrong code", func(t *testing.T) {
		code, err := totpx.GenerateCode(testSecret, time.Now())
		require.NoError(t, err)

		token, err := h.login.CompleteMFA(ctx, challenge.MFAToken, code)
		require.NoError(t, err)
		require.NotNil(t, token)
	})
}

func TestCompleteMFA_UnknownToken(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	_, err := h.login.CompleteMFA(ctx, "not-a-real-token", "123456")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestCompleteMFA_ExpiredChallenge(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	u := h.seedUser(t, "dave", "s3cret-pw", domain.RoleManager)
	h.enableMFA(t, u.ID)

	opaque, err := cryptox.GenerateToken(cryptox.TokenSize256)
	require.NoError(t, err)

	now := time.Now().UTC()
	expired := domain.MFAChallenge{
		ID:        idx.New().String(),
		TokenHash: cryptox.FingerprintToken(opaque),
		UserID:    u.ID,
		CreatedAt: now.Add(-10 * time.Minute),
		ExpiresAt: now.Add(-5 * time.Minute),
	}
	require.NoError(t, h.store.MFAChallenges().CreateChallenge(ctx, expired))

	code, err := totpx.GenerateCode(testSecret, now)
	require.NoError(t, err)

	// Expired challenges are invisible, same as never existing.
	_, err = h.login.CompleteMFA(ctx, opaque, code)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestLogin_LockoutAfterRepeatedFailures(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.seedUser(t, "carol", "s3cret-pw", domain.RoleViewer)

	for range DefaultLockoutThreshold {
		_, _, err := h.login.Login(ctx, "carol", "wrong-pw")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}

	// Correct password no longer helps during the cool-down.
	_, _, err := h.login.Login(ctx, "carol", "s3cret-pw")
	require.ErrorIs(t, err, ErrLockedOut)

	require.Contains(t, h.auditKinds(t, "carol"), domain.AuditLockout)
}

func TestLogin_SuccessResetsFailureStreak(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.seedUser(t, "carol", "s3cret-pw", domain.RoleViewer)

	for range DefaultLockoutThreshold - 1 {
		_, _, err := h.login.Login(ctx, "carol", "wrong-pw")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}

	_, _, err := h.login.Login(ctx, "carol", "s3cret-pw")
	require.NoError(t, err)

	// The streak restarted; a few more failures stay below the threshold.
	for range DefaultLockoutThreshold - 1 {
		_, _, err := h.login.Login(ctx, "carol", "wrong-pw")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}

	_, _, err = h.login.Login(ctx, "carol", "s3cret-pw")
	require.NoError(t, err)
}
