package token

import (
	"testing"
	"time"

	accessDomain "github.com/davicafu/hexacrud/internal/access/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWT_RoundTrip(t *testing.T) {
	svc, err := NewJWTService("secret")
	require.NoError(t, err)
	exp := time.Now().Add(time.Hour).Truncate(time.Second)

	tok, err := svc.Issue(accessDomain.Claims{Subject: "abc", Identifier: "600111222", ExpiresAt: exp})
	require.NoError(t, err)

	claims, err := svc.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "abc", claims.Subject)
	assert.Equal(t, "600111222", claims.Identifier)
	assert.True(t, exp.Equal(claims.ExpiresAt))
}

func TestJWT_Rejects(t *testing.T) {
	svc, err := NewJWTService("secret")
	require.NoError(t, err)
	other, err := NewJWTService("other")
	require.NoError(t, err)

	expired, err := svc.Issue(accessDomain.Claims{Subject: "abc", ExpiresAt: time.Now().Add(-time.Minute)})
	require.NoError(t, err)
	foreign, err := other.Issue(accessDomain.Claims{Subject: "abc", ExpiresAt: time.Now().Add(time.Hour)})
	require.NoError(t, err)
	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"_id": "abc"}).SignedString([]byte("secret"))
	require.NoError(t, err)
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"_id": "abc", "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, tok := range map[string]string{
		"expired": expired,
		"foreign": foreign,
		"no exp":  noExp,
		"none":    none,
		"garbage": "not.a.token",
	} {
		_, err := svc.Verify(tok)
		assert.ErrorIs(t, err, accessDomain.ErrInvalidToken, name)
	}
}

func TestNewJWTService_EmptySecret(t *testing.T) {
	_, err := NewJWTService("")
	assert.Error(t, err)
}
