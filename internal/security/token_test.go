package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	token, err := GenerateAccessToken("secret", "user-1", "sess-1", "device-1", "user", time.Minute)
	require.NoError(t, err)

	claims, err := ParseAccessToken(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "sess-1", claims.SessionID)
	assert.Equal(t, "device-1", claims.DeviceID)
	assert.Equal(t, "user", claims.Role)
}

func TestParseAccessTokenRejectsWrongSecret(t *testing.T) {
	token, err := GenerateAccessToken("secret", "user-1", "sess-1", "", "user", time.Minute)
	require.NoError(t, err)

	_, err = ParseAccessToken(token, "other-secret")
	assert.Error(t, err)
}

func TestParseAccessTokenRejectsExpired(t *testing.T) {
	token, err := GenerateAccessToken("secret", "user-1", "sess-1", "", "user", -time.Minute)
	require.NoError(t, err)

	_, err = ParseAccessToken(token, "secret")
	assert.Error(t, err)
}

func TestRefreshTokenHashMatches(t *testing.T) {
	token, hash, err := GenerateRefreshToken()
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, hash, HashRefreshToken(token))

	other, _, err := GenerateRefreshToken()
	require.NoError(t, err)
	assert.NotEqual(t, token, other)
}

func TestRefreshTokenMatches(t *testing.T) {
	token, hash, err := GenerateRefreshToken()
	require.NoError(t, err)

	assert.True(t, RefreshTokenMatches(token, hash))
	assert.False(t, RefreshTokenMatches("forged-token", hash))
	assert.False(t, RefreshTokenMatches(token, []byte("short")))
}
