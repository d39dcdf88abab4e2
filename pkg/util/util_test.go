package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveAPIKey(t *testing.T) {
	t.Run("legacy md5 without secret", func(t *testing.T) {
		// md5("bob")
		assert.Equal(t, "9f9d51bc70ef21ca5c14f307980a29d8", DeriveAPIKey("", "bob"))
	})

	t.Run("hmac with secret", func(t *testing.T) {
		key := DeriveAPIKey("pepper", "bob")
		assert.Len(t, key, 64)
		assert.Equal(t, key, DeriveAPIKey("pepper", "bob"))
		assert.NotEqual(t, key, DeriveAPIKey("salt", "bob"))
		assert.NotEqual(t, key, DeriveAPIKey("pepper", "alice"))
	})
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)

	assert.True(t, CheckPassword("s3cret", hash))
	assert.False(t, CheckPassword("wrong", hash))
	assert.False(t, CheckPassword("s3cret", ""))
}

func TestSecureCompare(t *testing.T) {
	assert.True(t, SecureCompare("abc", "abc"))
	assert.False(t, SecureCompare("abc", "abd"))
	assert.False(t, SecureCompare("abc", "ab"))
}

func TestGenerateUUID(t *testing.T) {
	id := GenerateUUID()
	assert.Len(t, id, 32)
	assert.NotContains(t, id, "-")
	assert.NotEqual(t, id, GenerateUUID())
}
