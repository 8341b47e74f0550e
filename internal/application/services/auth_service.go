package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/geominder/core/internal/domain/entities"
	"github.com/geominder/core/internal/infrastructure/config"
	"github.com/geominder/core/internal/infrastructure/logger"
	"github.com/geominder/core/internal/ports"
)

type tokenContextKey struct{}

// WithToken returns a context carrying the caller's bearer token.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenContextKey{}, token)
}

// TokenFromContext returns the bearer token stored by WithToken.
func TokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenContextKey{}).(string)
	return token, ok && token != ""
}

// HashPassword returns the bcrypt hash to configure as auth.password_hash.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// AuthService signs the device owner in with a password and issues JWTs.
// Logged out tokens are revoked by id until they expire.
type AuthService struct {
	jwtConfig  config.JWTConfig
	authConfig config.AuthConfig
	metrics    *Metrics
	logger     *logger.Logger

	mu      sync.Mutex
	revoked map[string]time.Time
}

var _ ports.Authenticator = (*AuthService)(nil)

// NewAuthService creates a new auth service. metrics may be nil.
func NewAuthService(jwtConfig config.JWTConfig, authConfig config.AuthConfig, metrics *Metrics, log *logger.Logger) *AuthService {
	return &AuthService{
		jwtConfig:  jwtConfig,
		authConfig: authConfig,
		metrics:    metrics,
		logger:     log.WithComponent("auth"),
		revoked:    make(map[string]time.Time),
	}
}

// Login checks the password against the configured hash and returns a token
func (s *AuthService) Login(ctx context.Context, password string) (*ports.AuthResponse, error) {
	if s.authConfig.PasswordHash == "" {
		s.metrics.incAuthAttempt(OutcomeFailure)
		s.logger.Warn("Login attempt while no password hash is configured")
		return nil, fmt.Errorf("login disabled: %w", entities.ErrUnauthorized)
	}

	err := bcrypt.CompareHashAndPassword([]byte(s.authConfig.PasswordHash), []byte(password))
	if err != nil {
		s.metrics.incAuthAttempt(OutcomeFailure)
		s.logger.Warnw("Login attempt with invalid password", "subject", s.authConfig.Subject)
		return nil, entities.ErrInvalidPassword
	}

	token, err := s.IssueToken(s.authConfig.Subject)
	if err != nil {
		return nil, err
	}

	s.metrics.incAuthAttempt(OutcomeSuccess)
	s.logger.Infow("Signed in", "subject", s.authConfig.Subject)

	return &ports.AuthResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.jwtConfig.ExpiresIn.Seconds()),
	}, nil
}

// Logout revokes the token carried by ctx
func (s *AuthService) Logout(ctx context.Context) error {
	token, ok := TokenFromContext(ctx)
	if !ok {
		return entities.ErrUnauthorized
	}

	claims, err := s.parse(token)
	if err != nil {
		return err
	}

	expiresAt := time.Now().Add(s.jwtConfig.ExpiresIn)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for id, exp := range s.revoked {
		if exp.Before(now) {
			delete(s.revoked, id)
		}
	}
	s.revoked[claims.ID] = expiresAt

	s.logger.Infow("Signed out", "subject", claims.Subject)
	return nil
}

// AuthState reports whether ctx carries a valid, unrevoked token.
func (s *AuthService) AuthState(ctx context.Context) entities.AuthState {
	token, ok := TokenFromContext(ctx)
	if !ok {
		return entities.AuthStateUnauthenticated
	}
	if _, err := s.ValidateToken(token); err != nil {
		return entities.AuthStateUnauthenticated
	}
	return entities.AuthStateAuthenticated
}

// ValidateToken validates a JWT token and returns claims
func (s *AuthService) ValidateToken(tokenString string) (*ports.Claims, error) {
	claims, err := s.parse(tokenString)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	_, revoked := s.revoked[claims.ID]
	s.mu.Unlock()
	if revoked {
		return nil, fmt.Errorf("token revoked: %w", entities.ErrUnauthorized)
	}

	return &ports.Claims{
		Subject: claims.Subject,
		TokenID: claims.ID,
	}, nil
}

// IssueToken signs a new access token for subject
func (s *AuthService) IssueToken(subject string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   subject,
		Issuer:    s.jwtConfig.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.jwtConfig.ExpiresIn)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.jwtConfig.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

func (s *AuthService) parse(tokenString string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtConfig.Secret), nil
	}, jwt.WithIssuer(s.jwtConfig.Issuer))
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w: %w", entities.ErrUnauthorized, err)
	}
	if !token.Valid || claims.ID == "" {
		return nil, fmt.Errorf("invalid token claims: %w", entities.ErrUnauthorized)
	}

	return claims, nil
}

// IsAuthError reports whether err means the caller is not signed in.
func IsAuthError(err error) bool {
	return errors.Is(err, entities.ErrUnauthorized) || errors.Is(err, entities.ErrInvalidPassword)
}
