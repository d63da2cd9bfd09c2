package jwtutil

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerify_Success(t *testing.T) {
	t.Parallel()

	m := NewManager("super-secret", time.Hour)
	tok, err := m.Issue(42)
	require.NoError(t, err)

	userID, err := m.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, uint(42), userID)
}

func TestVerify_ExpiredAfterTTL(t *testing.T) {
	t.Parallel()

	issuedAt := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m := NewManager("secret", time.Hour)
	m.now = func() time.Time { return issuedAt }

	tok, err := m.Issue(7)
	require.NoError(t, err)

	m.now = func() time.Time { return issuedAt.Add(59 * time.Minute) }
	_, err = m.Verify(tok)
	require.NoError(t, err)

	m.now = func() time.Time { return issuedAt.Add(time.Hour + time.Second) }
	_, err = m.Verify(tok)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerify_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := NewManager("right-secret", time.Hour).Issue(1)
	require.NoError(t, err)

	_, err = NewManager("wrong-secret", time.Hour).Verify(tok)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerify_Malformed(t *testing.T) {
	t.Parallel()

	m := NewManager("k", time.Hour)
	for _, raw := range []string{"", "not.a.jwt", "abc"} {
		_, err := m.Verify(raw)
		assert.ErrorIs(t, err, ErrTokenInvalid, raw)
	}
}

func TestVerify_RejectsNoneAlgorithm(t *testing.T) {
	t.Parallel()

	claims := Claims{
		UserID: 1,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewManager("k", time.Hour).Verify(tok)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestEmptySecret_FailsClosed(t *testing.T) {
	t.Parallel()

	m := NewManager("", time.Hour)
	assert.ErrorIs(t, m.CanIssue(), ErrSecretMissing)
	assert.NoError(t, NewManager("k", time.Hour).CanIssue())
	_, err := m.Issue(1)
	assert.ErrorIs(t, err, ErrSecretMissing)

	signed, err := NewManager("other", time.Hour).Issue(1)
	require.NoError(t, err)
	_, err = m.Verify(signed)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestNewManager_DefaultTTL(t *testing.T) {
	t.Parallel()

	assert.Equal(t, DefaultTTL, NewManager("k", 0).TTL())
}
