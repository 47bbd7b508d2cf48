package auth

import (
	"testing"
	"time"

	"cinebook-cli/model"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signed(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)
	return token
}

func TestParse_ReadsRoleAndExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token := signed(t, jwt.MapClaims{"sub": "42", "role": "member", "exp": exp.Unix()})

	claims, err := Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, model.RoleMember, claims.Role)
	assert.True(t, claims.ExpiresAt.Equal(exp))
	assert.False(t, claims.Expired(time.Now()))
	assert.True(t, Usable(token, time.Now()))
}

func TestUsable_ExpiredToken(t *testing.T) {
	token := signed(t, jwt.MapClaims{"sub": "42", "exp": time.Now().Add(-time.Minute).Unix()})

	assert.False(t, Usable(token, time.Now()))
}

func TestUsable_OpaqueAndEmpty(t *testing.T) {
	assert.True(t, Usable("abc123", time.Now()))
	assert.False(t, Usable("  ", time.Now()))

	claims, err := Parse("abc123")
	require.NoError(t, err)
	assert.True(t, claims.Opaque)
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse("a.b.c")
	assert.Error(t, err)
	assert.False(t, Usable("a.b.c", time.Now()))
}
