package auth

import (
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, subject string, expiresAt time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("backend-only-secret"))
	require.NoError(t, err)
	return token
}

func TestSessionClaims(t *testing.T) {
	t.Parallel()

	expiry := time.Now().Add(time.Hour).Truncate(time.Second)
	session := NewSession(signedToken(t, "client@example.com", expiry))

	require.True(t, session.Authenticated())
	require.Equal(t, "client@example.com", session.Subject())
	require.Equal(t, expiry.Unix(), session.ExpiresAt().Unix())
}

func TestSessionExpired(t *testing.T) {
	t.Parallel()

	session := NewSession(signedToken(t, "client@example.com", time.Now().Add(-time.Minute)))
	require.False(t, session.Authenticated())
	// Token is still carried; the backend decides what an expired token means.
	require.NotEmpty(t, session.Token())
}

func TestSessionEmptyAndClear(t *testing.T) {
	t.Parallel()

	session := NewSession("")
	require.False(t, session.Authenticated())
	require.Empty(t, session.Subject())

	session.SetToken(signedToken(t, "client@example.com", time.Now().Add(time.Hour)))
	require.True(t, session.Authenticated())

	session.Clear()
	require.False(t, session.Authenticated())
	require.Empty(t, session.Token())
}

func TestSessionOpaqueTokenCountsAsLive(t *testing.T) {
	t.Parallel()

	session := NewSession("not-a-jwt")
	require.True(t, session.Authenticated())
	require.Empty(t, session.Subject())
	require.True(t, session.ExpiresAt().IsZero())
}
