package jwtx

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignAndVerifyRoundTrip(t *testing.T) {
	t.Parallel()

	kp, err := NewEphemeralKeyPair("binsight-auth")
	require.NoError(t, err)

	now := time.Now().UTC()
	claims := NewSessionClaims("user-1", "alice", "manager", true, time.Hour, kp.Issuer(), now)

	token, err := kp.Sign(claims)
	require.NoError(t, err)

	got, err := kp.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", got.Subject)
	require.Equal(t, "alice", got.Username)
	require.Equal(t, "manager", got.Role)
	require.True(t, got.MFASatisfied)
	require.NotEmpty(t, got.ID)
}

func TestVerifyRejectsForeignKey(t *testing.T) {
	t.Parallel()

	a, err := NewEphemeralKeyPair("binsight-auth")
	require.NoError(t, err)
	b, err := NewEphemeralKeyPair("binsight-auth")
	require.NoError(t, err)

	token, err := a.Sign(NewSessionClaims("u", "alice", "viewer", false, time.Hour, "binsight-auth", time.Now()))
	require.NoError(t, err)

	_, err = b.Verify(token)
	require.ErrorIs(t, err, ErrInvalidSig)
}

func TestVerifyRejectsTamperedPayload(t *testing.T) {
	t.Parallel()

	kp, err := NewEphemeralKeyPair("binsight-auth")
	require.NoError(t, err)

	token, err := kp.Sign(NewSessionClaims("u", "alice", "viewer", false, time.Hour, kp.Issuer(), time.Now()))
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	// Swap the payload for one from another token, keeping the signature.
	other, err := kp.Sign(NewSessionClaims("u", "alice", "admin", true, time.Hour, kp.Issuer(), time.Now()))
	require.NoError(t, err)
	forged := parts[0] + "." + strings.Split(other, ".")[1] + "." + parts[2]

	_, err = kp.Verify(forged)
	require.ErrorIs(t, err, ErrInvalidSig)
}

func TestVerifyRejectsExpired(t *testing.T) {
	t.Parallel()

	kp, err := NewEphemeralKeyPair("binsight-auth")
	require.NoError(t, err)

	issued := time.Now().UTC()
	token, err := kp.Sign(NewSessionClaims("u", "alice", "viewer", true, time.Hour, kp.Issuer(), issued))
	require.NoError(t, err)

	kp.WithClock(func() time.Time { return issued.Add(2 * time.Hour) })
	_, err = kp.Verify(token)
	require.ErrorIs(t, err, ErrExpired)
}

func TestVerifyRejectsWrongIssuer(t *testing.T) {
	t.Parallel()

	kp, err := NewEphemeralKeyPair("binsight-auth")
	require.NoError(t, err)

	token, err := kp.Sign(NewSessionClaims("u", "alice", "viewer", true, time.Hour, "someone-else", time.Now()))
	require.NoError(t, err)

	_, err = kp.Verify(token)
	require.ErrorIs(t, err, ErrIssuer)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	t.Parallel()

	kp, err := NewEphemeralKeyPair("binsight-auth")
	require.NoError(t, err)

	_, err = kp.Verify("not.a.jwt")
	require.ErrorIs(t, err, ErrMalformed)
}
