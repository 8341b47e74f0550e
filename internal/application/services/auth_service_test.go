package services

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/geominder/core/internal/domain/entities"
	"github.com/geominder/core/internal/infrastructure/config"
	"github.com/geominder/core/internal/infrastructure/logger"
)

func newAuthService(t *testing.T, password string) *AuthService {
	t.Helper()

	hash := ""
	if password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
		require.NoError(t, err)
		hash = string(hashed)
	}

	return NewAuthService(
		config.JWTConfig{Secret: "test-secret", ExpiresIn: time.Hour, Issuer: "geominder-test"},
		config.AuthConfig{PasswordHash: hash, Subject: "device"},
		nil,
		logger.NewNop(),
	)
}

func TestAuthService_LoginAndState(t *testing.T) {
	svc := newAuthService(t, "hunter2")
	ctx := context.Background()

	assert.Equal(t, entities.AuthStateUnauthenticated, svc.AuthState(ctx))

	resp, err := svc.Login(ctx, "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, int64(3600), resp.ExpiresIn)

	authed := WithToken(ctx, resp.AccessToken)
	assert.Equal(t, entities.AuthStateAuthenticated, svc.AuthState(authed))

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "device", claims.Subject)
	assert.NotEmpty(t, claims.TokenID)
}

func TestAuthService_WrongPassword(t *testing.T) {
	svc := newAuthService(t, "hunter2")

	_, err := svc.Login(context.Background(), "nope")

	assert.ErrorIs(t, err, entities.ErrInvalidPassword)
	assert.True(t, IsAuthError(err))
}

func TestAuthService_LoginDisabledWithoutHash(t *testing.T) {
	svc := newAuthService(t, "")

	_, err := svc.Login(context.Background(), "anything")

	assert.ErrorIs(t, err, entities.ErrUnauthorized)
}

func TestAuthService_LogoutRevokesToken(t *testing.T) {
	svc := newAuthService(t, "hunter2")
	resp, err := svc.Login(context.Background(), "hunter2")
	require.NoError(t, err)
	ctx := WithToken(context.Background(), resp.AccessToken)

	require.NoError(t, svc.Logout(ctx))

	assert.Equal(t, entities.AuthStateUnauthenticated, svc.AuthState(ctx))
	_, err = svc.ValidateToken(resp.AccessToken)
	assert.ErrorIs(t, err, entities.ErrUnauthorized)

	other, err := svc.IssueToken("device")
	require.NoError(t, err)
	assert.Equal(t, entities.AuthStateAuthenticated, svc.AuthState(WithToken(context.Background(), other)))
}

func TestAuthService_LogoutWithoutToken(t *testing.T) {
	svc := newAuthService(t, "hunter2")

	assert.ErrorIs(t, svc.Logout(context.Background()), entities.ErrUnauthorized)
}

func TestAuthService_RejectsForeignTokens(t *testing.T) {
	svc := newAuthService(t, "hunter2")

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ID:        "x",
		Issuer:    "geominder-test",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := foreign.SignedString([]byte("other-secret"))
	require.NoError(t, err)

	_, err = svc.ValidateToken(signed)
	assert.ErrorIs(t, err, entities.ErrUnauthorized)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ID:        "y",
		Issuer:    "geominder-test",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	})
	signed, err = expired.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = svc.ValidateToken(signed)
	assert.ErrorIs(t, err, entities.ErrUnauthorized)
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)

	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("hunter2")))
}
