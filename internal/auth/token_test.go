package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestOpaqueTokenHashIsStable(t *testing.T) {
	raw, hash, err := NewOpaqueToken()
	require.NoError(t, err)
	assert.Equal(t, hash, HashToken(raw))
	assert.Len(t, hash, 64)
}

func TestNumericCodeShape(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := NewNumericCode(6)
		require.NoError(t, err)
		require.Len(t, code, 6)
		assert.Empty(t, strings.Trim(code, "0123456789"))
	}
}

func TestTokenSignerRoundTrip(t *testing.T) {
	s := NewTokenSigner(testSecret, "civicconnect")
	tok, err := s.Sign(7, "citizen", "opaque-session", time.Now().Add(time.Hour))
	require.NoError(t, err)

	got, err := s.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "opaque-session", got)
}

func TestTokenSignerRejectsTamperedAndExpired(t *testing.T) {
	s := NewTokenSigner(testSecret, "civicconnect")
	other := NewTokenSigner("ffffffffffffffffffffffffffffffff", "civicconnect")

	tok, err := other.Sign(7, "admin", "x", time.Now().Add(time.Hour))
	require.NoError(t, err)
	_, err = s.Parse(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := s.Sign(7, "citizen", "x", time.Now().Add(-time.Minute))
	require.NoError(t, err)
	_, err = s.Parse(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenSignerRejectsNoneAlgorithm(t *testing.T) {
	s := NewTokenSigner(testSecret, "civicconnect")
	claims := jwt.RegisteredClaims{ID: "x", Issuer: "civicconnect", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = s.Parse(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
