package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessToken_RoundTrip(t *testing.T) {
	t.Parallel()

	signed, err := SignAccessToken("secret", "user-1", "jti-1", "Clerk", time.Minute)
	require.NoError(t, err)

	claims, err := ParseAccessToken(signed, "secret")
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID())
	assert.Equal(t, "jti-1", claims.TokenID())
	assert.Equal(t, "Clerk", claims.Role)
}

func TestAccessToken_WrongSecret(t *testing.T) {
	t.Parallel()

	signed, err := SignAccessToken("secret", "user-1", "jti-1", "Clerk", time.Minute)
	require.NoError(t, err)

	_, err = ParseAccessToken(signed, "other-secret")
	assert.Error(t, err)
}

func TestAccessToken_Expired(t *testing.T) {
	t.Parallel()

	signed, err := SignAccessToken("secret", "user-1", "jti-1", "Clerk", -time.Minute)
	require.NoError(t, err)

	_, err = ParseAccessToken(signed, "secret")
	assert.Error(t, err)
}

func TestRefreshToken_RoundTrip(t *testing.T) {
	t.Parallel()

	signed, err := SignRefreshToken("refresh-secret", "user-1", "rid-1", time.Hour)
	require.NoError(t, err)

	claims, err := ParseRefreshToken(signed, "refresh-secret")
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "rid-1", claims.ID)
}

func TestRefreshToken_RejectsAccessToken(t *testing.T) {
	t.Parallel()

	// An access token signed with the refresh secret still lacks typ=refresh.
	signed, err := SignAccessToken("shared-secret", "user-1", "jti-1", "Clerk", time.Minute)
	require.NoError(t, err)

	_, err = ParseRefreshToken(signed, "shared-secret")
	assert.Error(t, err)
}

func TestParse_Garbage(t *testing.T) {
	t.Parallel()

	_, err := ParseAccessToken("not-a-jwt", "secret")
	assert.Error(t, err)
	_, err = ParseRefreshToken("", "secret")
	assert.Error(t, err)
}
