package security

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestDeriveSigningKey(t *testing.T) {
	a, err := DeriveSigningKey("device-secret")
	require.NoError(t, err)
	require.Len(t, a, 32)

	b, err := DeriveSigningKey("device-secret")
	require.NoError(t, err)
	require.Equal(t, a, b)

	c, err := DeriveSigningKey("other-secret")
	require.NoError(t, err)
	require.NotEqual(t, a, c)

	_, err = DeriveSigningKey("")
	require.ErrorIs(t, err, ErrEmptySecret)
}

func TestJWTService_RoundTrip(t *testing.T) {
	svc, err := NewJWTService("device-secret", time.Hour)
	require.NoError(t, err)

	token, err := svc.GenerateToken("pixel-7")
	require.NoError(t, err)

	claims, err := svc.ParseToken(token)
	require.NoError(t, err)
	require.Equal(t, "pixel-7", claims.DeviceID)
	require.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt, 5*time.Second)
}

func TestJWTService_RejectsOtherSecret(t *testing.T) {
	issuer, err := NewJWTService("secret-a", time.Hour)
	require.NoError(t, err)
	verifier, err := NewJWTService("secret-b", time.Hour)
	require.NoError(t, err)

	token, err := issuer.GenerateToken("pixel-7")
	require.NoError(t, err)

	_, err = verifier.ParseToken(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTService_RejectsExpired(t *testing.T) {
	svc, err := NewJWTService("device-secret", -time.Minute)
	require.NoError(t, err)

	token, err := svc.GenerateToken("pixel-7")
	require.NoError(t, err)

	_, err = svc.ParseToken(token)
	require.ErrorIs(t, err, ErrInvalidToken)
	require.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestJWTService_RejectsMissingSubject(t *testing.T) {
	svc, err := NewJWTService("device-secret", time.Hour)
	require.NoError(t, err)

	token, err := svc.GenerateToken("")
	require.NoError(t, err)

	_, err = svc.ParseToken(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTService_RejectsGarbage(t *testing.T) {
	svc, err := NewJWTService("device-secret", time.Hour)
	require.NoError(t, err)

	_, err = svc.ParseToken("not.a.token")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewJWTService_EmptySecret(t *testing.T) {
	_, err := NewJWTService("", time.Hour)
	require.ErrorIs(t, err, ErrEmptySecret)
}
