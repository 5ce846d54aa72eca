package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/Dosada05/club-challenges/models"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerify(t *testing.T) {
	m := NewTokenManager("secret", 0)
	assert.Equal(t, DefaultTokenTTL, m.TTL())

	token, expiresAt, err := m.Issue(&models.User{ID: 42, Email: "ada@example.com"})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(DefaultTokenTTL), expiresAt, time.Minute)

	id, err := m.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, 42, id.UserID)
	assert.Equal(t, "ada@example.com", id.Email)
	assert.NotEmpty(t, id.TokenID)
	assert.WithinDuration(t, expiresAt, id.ExpiresAt, time.Second)
}

func TestVerifyRejects(t *testing.T) {
	m := NewTokenManager("secret", time.Hour)
	valid, _, err := m.Issue(&models.User{ID: 1, Email: "a@b.co"})
	require.NoError(t, err)

	expired := NewTokenManager("secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expiredToken, _, err := expired.Issue(&models.User{ID: 1, Email: "a@b.co"})
	require.NoError(t, err)

	forged, _, err := NewTokenManager("other-secret", time.Hour).Issue(&models.User{ID: 1, Email: "a@b.co"})
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"userId": 1, "exp": time.Now().Add(time.Hour).Unix()})
	noneToken, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	parts := strings.Split(valid, ".")
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]

	tests := map[string]string{
		"empty":          "",
		"garbage":        "not-a-token",
		"expired":        expiredToken,
		"wrong secret":   forged,
		"alg none":       noneToken,
		"tampered claim": tampered,
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			id, err := m.Verify(token)
			assert.Nil(t, id)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("password123")
	require.NoError(t, err)
	assert.NotEqual(t, "password123", hash)

	ok, err := CheckPasswordHash("password123", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = CheckPasswordHash("password124", hash)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = CheckPasswordHash("password123", "not-a-bcrypt-hash")
	assert.Error(t, err)

	again, err := HashPassword("password123")
	require.NoError(t, err)
	assert.NotEqual(t, hash, again, "hashes are salted")
}
