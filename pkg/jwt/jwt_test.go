package jwt

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	svc := NewService("secret", time.Minute, time.Hour)
	id := uuid.New()

	token, err := svc.GenerateAccessToken(id, "host@example.com", "host")
	require.NoError(t, err)

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, id, claims.UserID)
	assert.Equal(t, "host", claims.Username)
}

func TestAccessTokenRejectsOtherSecret(t *testing.T) {
	token, err := NewService("a", time.Minute, time.Hour).GenerateAccessToken(uuid.New(), "x@y.z", "x")
	require.NoError(t, err)

	_, err = NewService("b", time.Minute, time.Hour).ValidateAccessToken(token)
	require.Error(t, err)
}

func TestExpiredAccessToken(t *testing.T) {
	svc := NewService("secret", -time.Minute, time.Hour)
	token, err := svc.GenerateAccessToken(uuid.New(), "x@y.z", "x")
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(token)
	require.Error(t, err)
}

func TestRefreshTokenIsNotAnAccessToken(t *testing.T) {
	svc := NewService("secret", time.Minute, time.Hour)
	id := uuid.New()

	refresh, err := svc.GenerateRefreshToken(id)
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(refresh)
	require.Error(t, err)

	got, err := svc.ValidateRefreshToken(refresh)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestAccessTokenIsNotARefreshToken(t *testing.T) {
	svc := NewService("secret", time.Minute, time.Hour)

	access, err := svc.GenerateAccessToken(uuid.New(), "x@y.z", "x")
	require.NoError(t, err)

	_, err = svc.ValidateRefreshToken(access)
	require.Error(t, err)
}

func TestForeignIssuerIsRejected(t *testing.T) {
	svc := NewService("secret", time.Minute, time.Hour)

	claims := Claims{
		UserID:   uuid.New(),
		Email:    "x@y.z",
		Username: "x",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(token)
	require.Error(t, err)
}

func TestTokensAreUnique(t *testing.T) {
	svc := NewService("secret", time.Minute, time.Hour)
	id := uuid.New()

	first, err := svc.GenerateAccessToken(id, "x@y.z", "x")
	require.NoError(t, err)
	second, err := svc.GenerateAccessToken(id, "x@y.z", "x")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}
