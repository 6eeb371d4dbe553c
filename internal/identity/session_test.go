package identity

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessions_IssueAndVerify(t *testing.T) {
	s, err := NewSessions("secret", time.Hour)
	require.NoError(t, err)

	token, err := s.Issue("jane@example.com")
	require.NoError(t, err)

	email, err := s.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", email)
}

func TestSessions_IssueRequiresEmail(t *testing.T) {
	s, err := NewSessions("secret", time.Hour)
	require.NoError(t, err)
	_, err = s.Issue("")
	assert.Error(t, err)
}

func TestSessions_Rejects(t *testing.T) {
	s, err := NewSessions("secret", time.Hour)
	require.NoError(t, err)
	other, err := NewSessions("other-secret", time.Hour)
	require.NoError(t, err)

	foreign, err := other.Issue("jane@example.com")
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		Email:            "jane@example.com",
		RegisteredClaims: jwt.RegisteredClaims{Issuer: issuer, ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := map[string]string{
		"garbage":      "not-a-token",
		"wrong secret": foreign,
		"alg none":     unsigned,
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := s.Verify(token)
			assert.ErrorIs(t, err, ErrInvalidSession)
		})
	}
}

func TestSessions_Expiry(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	s, err := NewSessions("secret", time.Hour)
	require.NoError(t, err)
	s.now = func() time.Time { return now }

	token, err := s.Issue("jane@example.com")
	require.NoError(t, err)

	now = now.Add(59 * time.Minute)
	_, err = s.Verify(token)
	assert.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = s.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestNewSessions_RandomSecret(t *testing.T) {
	a, err := NewSessions("", 0)
	require.NoError(t, err)
	b, err := NewSessions("", 0)
	require.NoError(t, err)

	assert.Equal(t, DefaultSessionTTL, a.TTL())

	token, err := a.Issue("jane@example.com")
	require.NoError(t, err)
	_, err = b.Verify(token)
	assert.Error(t, err, "random secrets differ between instances")
}

func TestUserContext(t *testing.T) {
	assert.Empty(t, UserFromContext(context.Background()))
	ctx := WithUser(context.Background(), "jane@example.com")
	assert.Equal(t, "jane@example.com", UserFromContext(ctx))
}
