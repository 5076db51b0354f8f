package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse battery staple", hash)

	assert.True(t, CheckPassword(hash, "correct horse battery staple"))
	assert.False(t, CheckPassword(hash, "wrong password"))
	assert.False(t, CheckPassword("not a bcrypt hash", "anything"))
}

func TestTokenRoundTrip(t *testing.T) {
	tokens := NewTokens("test-secret", time.Hour)

	raw, err := tokens.Sign(42)
	require.NoError(t, err)

	userID, err := tokens.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)
}

func TestTokenWrongSecret(t *testing.T) {
	raw, err := NewTokens("secret-a", time.Hour).Sign(7)
	require.NoError(t, err)

	_, err = NewTokens("secret-b", time.Hour).Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenExpiry(t *testing.T) {
	tokens := NewTokens("test-secret", time.Minute)
	base := time.Now()
	tokens.now = func() time.Time { return base }

	raw, err := tokens.Sign(7)
	require.NoError(t, err)

	_, err = tokens.Verify(raw)
	require.NoError(t, err)

	tokens.now = func() time.Time { return base.Add(2 * time.Minute) }
	_, err = tokens.Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenGarbage(t *testing.T) {
	tokens := NewTokens("test-secret", time.Hour)
	for _, raw := range []string{"", "garbage", "a.b.c"} {
		_, err := tokens.Verify(raw)
		assert.ErrorIs(t, err, ErrInvalidToken, "input %q", raw)
	}
}
