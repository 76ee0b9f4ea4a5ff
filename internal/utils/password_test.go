package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("s3cret-password", bcrypt.MinCost)
	require.NoError(t, err)
	require.NotEmpty(t, hash)
	assert.NotEqual(t, "s3cret-password", hash)

	assert.True(t, VerifyPassword(hash, "s3cret-password"))
	assert.False(t, VerifyPassword(hash, "wrong-password"))
}

func TestHashPasswordIsSalted(t *testing.T) {
	h1, err := HashPassword("same-input", bcrypt.MinCost)
	require.NoError(t, err)
	h2, err := HashPassword("same-input", bcrypt.MinCost)
	require.NoError(t, err)

	// Different salts mean different digests, yet both verify.
	assert.NotEqual(t, h1, h2)
	assert.True(t, VerifyPassword(h1, "same-input"))
	assert.True(t, VerifyPassword(h2, "same-input"))
}

func TestLongPasswordsTruncateConsistently(t *testing.T) {
	long := strings.Repeat("a", 100)
	hash, err := HashPassword(long, bcrypt.MinCost)
	require.NoError(t, err)

	// Only the first 72 bytes matter, so any password sharing that prefix
	// verifies against the same digest.
	assert.True(t, VerifyPassword(hash, long))
	assert.True(t, VerifyPassword(hash, strings.Repeat("a", 72)))
	assert.True(t, VerifyPassword(hash, strings.Repeat("a", 72)+"different-tail"))
	assert.False(t, VerifyPassword(hash, strings.Repeat("a", 71)))
}

func TestVerifyPasswordMalformedHash(t *testing.T) {
	assert.False(t, VerifyPassword("not-a-bcrypt-digest", "anything"))
	assert.False(t, VerifyPassword("", "anything"))
}
