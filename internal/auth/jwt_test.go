package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timbercraft/orchestrator/internal/auth"
)

func TestJWTService_GenerateAndValidateToken(t *testing.T) {
	svc := auth.NewJWTService(auth.JWTConfig{
		SigningKey: "test-secret-key-for-testing-only",
		Issuer:     "orchestrator",
		Audience:   "orchestrator-ops",
	})

	token, expiresAt, err := svc.GenerateToken("ops@example.com", auth.RoleAdmin, 0)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(auth.DefaultTokenExpiry), expiresAt, 5*time.Second)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", claims.Subject)
	assert.Equal(t, "orchestrator", claims.Issuer)
	assert.True(t, claims.IsAdmin())
}

func TestJWTService_NonAdminRole(t *testing.T) {
	svc := auth.NewJWTService(auth.JWTConfig{SigningKey: "test-key"})

	token, _, err := svc.GenerateToken("viewer", "viewer", time.Minute)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.False(t, claims.IsAdmin())
}

func TestJWTService_InvalidToken(t *testing.T) {
	svc := auth.NewJWTService(auth.JWTConfig{SigningKey: "test-secret-key-for-testing-only"})

	tests := []struct {
		name  string
		token string
	}{
		{"empty token", ""},
		{"malformed token", "not.a.valid.jwt"},
		{"invalid base64", "xxx.yyy.zzz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ValidateToken(tt.token)
			assert.ErrorIs(t, err, auth.ErrInvalidToken)
		})
	}
}

func TestJWTService_WrongSigningKey(t *testing.T) {
	svc1 := auth.NewJWTService(auth.JWTConfig{SigningKey: "key-one"})
	token, _, err := svc1.GenerateToken("ops", auth.RoleAdmin, time.Minute)
	require.NoError(t, err)

	svc2 := auth.NewJWTService(auth.JWTConfig{SigningKey: "key-two"})
	_, err = svc2.ValidateToken(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestJWTService_WrongIssuerAndAudience(t *testing.T) {
	issuer := auth.NewJWTService(auth.JWTConfig{SigningKey: "k", Issuer: "one", Audience: "aud"})
	token, _, err := issuer.GenerateToken("ops", auth.RoleAdmin, time.Minute)
	require.NoError(t, err)

	_, err = auth.NewJWTService(auth.JWTConfig{SigningKey: "k", Issuer: "two", Audience: "aud"}).ValidateToken(token)
	assert.Error(t, err)

	_, err = auth.NewJWTService(auth.JWTConfig{SigningKey: "k", Issuer: "one", Audience: "other"}).ValidateToken(token)
	assert.Error(t, err)

	// Validators without issuer/audience accept any.
	_, err = auth.NewJWTService(auth.JWTConfig{SigningKey: "k"}).ValidateToken(token)
	assert.NoError(t, err)
}

func TestJWTService_Expired(t *testing.T) {
	key := []byte("test-key")
	claims := auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
		Role: auth.RoleAdmin,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	require.NoError(t, err)

	_, err = auth.NewJWTService(auth.JWTConfig{SigningKey: string(key)}).ValidateToken(token)
	assert.ErrorIs(t, err, auth.ErrTokenExpired)
}

func TestJWTService_ExpiryRequired(t *testing.T) {
	key := []byte("test-key")
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{Role: auth.RoleAdmin}).SignedString(key)
	require.NoError(t, err)

	_, err = auth.NewJWTService(auth.JWTConfig{SigningKey: string(key)}).ValidateToken(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}
