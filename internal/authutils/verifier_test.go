package authutils

import (
	"context"
	"testing"
	"time"

	"moral-torture-machine/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestJWTVerifier_RoundTrip(t *testing.T) {
	v, err := NewJWTVerifier("secret", zap.NewNop())
	require.NoError(t, err)

	token, err := v.IssueToken("ops", []string{models.RoleAdmin}, time.Hour)
	require.NoError(t, err)

	claims, err := v.VerifyToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.Subject)
	assert.True(t, claims.HasRole(models.RoleAdmin))
}

func TestJWTVerifier_Rejects(t *testing.T) {
	v, err := NewJWTVerifier("secret", nil)
	require.NoError(t, err)
	other, err := NewJWTVerifier("other-secret", nil)
	require.NoError(t, err)
	ctx := context.Background()

	expired, err := v.IssueToken("ops", nil, -time.Minute)
	require.NoError(t, err)
	_, err = v.VerifyToken(ctx, expired)
	assert.ErrorIs(t, err, models.ErrTokenExpired)

	_, err = v.VerifyToken(ctx, "not-a-jwt")
	assert.ErrorIs(t, err, models.ErrTokenMalformed)

	foreign, err := other.IssueToken("ops", nil, time.Hour)
	require.NoError(t, err)
	_, err = v.VerifyToken(ctx, foreign)
	assert.ErrorIs(t, err, models.ErrTokenInvalid)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "ops", "iss": issuer}).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = v.VerifyToken(ctx, noExp)
	assert.ErrorIs(t, err, models.ErrTokenInvalid)

	_, err = v.IssueToken("", nil, time.Hour)
	assert.Error(t, err)
}

func TestNewJWTVerifier_EmptySecret(t *testing.T) {
	_, err := NewJWTVerifier("", nil)
	assert.Error(t, err)
}
