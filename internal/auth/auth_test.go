package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medtrack/internal/auth"
	"medtrack/internal/model"
)

const secret = "test-secret"

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := auth.HashPassword("hunter22")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter22", hash)
	assert.True(t, auth.CheckPassword(hash, "hunter22"))
	assert.False(t, auth.CheckPassword(hash, "hunter23"))
}

func TestTokenRoundTrip(t *testing.T) {
	id := auth.Identity{Email: "doc@example.com", Role: model.RoleDoctor, Name: "Grey"}
	tok, err := auth.MakeToken(id, secret, time.Hour)
	require.NoError(t, err)

	got, err := auth.ParseToken(tok, secret)
	require.NoError(t, err)
	assert.Equal(t, id, got)
	assert.True(t, got.IsDoctor())
	assert.False(t, got.IsPatient())
}

func TestTokenWrongSecret(t *testing.T) {
	tok, _ := auth.MakeToken(auth.Identity{Email: "a@b.c", Role: model.RolePatient}, secret, time.Hour)
	_, err := auth.ParseToken(tok, "other")
	assert.Error(t, err)
}

func TestTokenExpired(t *testing.T) {
	tok, _ := auth.MakeToken(auth.Identity{Email: "a@b.c", Role: model.RolePatient}, secret, -time.Minute)
	_, err := auth.ParseToken(tok, secret)
	assert.Error(t, err)
}

func TestTokenAlgNone(t *testing.T) {
	c := auth.Claims{
		Role:             model.RoleDoctor,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "a@b.c", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, c).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = auth.ParseToken(tok, secret)
	assert.Error(t, err)
}

func TestTokenUnknownRole(t *testing.T) {
	c := auth.Claims{
		Role:             model.Role("admin"),
		RegisteredClaims: jwt.RegisteredClaims{Subject: "a@b.c", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
	require.NoError(t, err)
	_, err = auth.ParseToken(tok, secret)
	assert.ErrorIs(t, err, auth.ErrBadToken)
}

func TestTokenGarbage(t *testing.T) {
	_, err := auth.ParseToken("not.a.token", secret)
	assert.Error(t, err)
}
