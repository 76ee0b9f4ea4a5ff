package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "unit-test-signing-secret"

func TestNewAccessTokenRoundTrip(t *testing.T) {
	access, err := NewAccessToken(testSecret, 42, "citizen@example.com", "citizen", 15)
	require.NoError(t, err)
	require.NotEmpty(t, access.Token)
	assert.WithinDuration(t, time.Now().UTC().Add(15*time.Minute), access.Exp, 5*time.Second)

	status, claims := VerifyAccessToken(testSecret, access.Token)
	assert.Equal(t, TokenValid, status)
	assert.Equal(t, uint64(42), claims.UserID)
	assert.Equal(t, "citizen@example.com", claims.Email)
	assert.Equal(t, "citizen", claims.Role)
}

func TestVerifyAccessTokenExpired(t *testing.T) {
	access, err := NewAccessToken(testSecret, 7, "u@example.com", "manager", -5)
	require.NoError(t, err)

	status, claims := VerifyAccessToken(testSecret, access.Token)
	assert.Equal(t, TokenExpired, status)
	assert.Zero(t, claims.UserID)
}

func TestVerifyAccessTokenWrongSecret(t *testing.T) {
	access, err := NewAccessToken(testSecret, 7, "u@example.com", "manager", 15)
	require.NoError(t, err)

	status, _ := VerifyAccessToken("a-different-secret", access.Token)
	assert.Equal(t, TokenInvalid, status)
}

func TestVerifyAccessTokenTampered(t *testing.T) {
	access, err := NewAccessToken(testSecret, 7, "u@example.com", "manager", 15)
	require.NoError(t, err)

	// Flip a character in the payload segment; the signature no longer
	// matches so the token must be rejected outright.
	parts := strings.Split(access.Token, ".")
	require.Len(t, parts, 3)
	payload := []byte(parts[1])
	if payload[0] == 'A' {
		payload[0] = 'B'
	} else {
		payload[0] = 'A'
	}
	tampered := parts[0] + "." + string(payload) + "." + parts[2]

	status, _ := VerifyAccessToken(testSecret, tampered)
	assert.Equal(t, TokenInvalid, status)
}

func TestVerifyAccessTokenExpiredAndTampered(t *testing.T) {
	// An expired token whose signature was also tampered with must report
	// TokenInvalid, not TokenExpired.
	access, err := NewAccessToken(testSecret, 7, "u@example.com", "manager", -5)
	require.NoError(t, err)

	parts := strings.Split(access.Token, ".")
	require.Len(t, parts, 3)
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("x", len(parts[2]))

	status, _ := VerifyAccessToken(testSecret, tampered)
	assert.Equal(t, TokenInvalid, status)
}

func TestVerifyAccessTokenGarbage(t *testing.T) {
	for _, raw := range []string{"", "garbage", "a.b", "a.b.c"} {
		status, _ := VerifyAccessToken(testSecret, raw)
		assert.Equal(t, TokenInvalid, status, "input %q", raw)
	}
}

func TestVerifyAccessTokenRejectsUnsignedAlg(t *testing.T) {
	tok := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": float64(42),
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	raw, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	status, _ := VerifyAccessToken(testSecret, raw)
	assert.Equal(t, TokenInvalid, status)
}

func TestNewRefreshTokenUniqueness(t *testing.T) {
	r1, err := NewRefreshToken(30)
	require.NoError(t, err)
	r2, err := NewRefreshToken(30)
	require.NoError(t, err)

	assert.Len(t, r1.Raw, 64) // 32 random bytes hex encoded
	assert.NotEqual(t, r1.Raw, r2.Raw)
	assert.WithinDuration(t, time.Now().UTC().Add(30*24*time.Hour), r1.Exp, 5*time.Second)
}
