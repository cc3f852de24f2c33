package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/vncsmyrnk/livepoll/internal/core/domain"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
)

const (
	presenterSubject = "presenter"
	defaultTokenTTL  = 12 * time.Hour
)

type AuthService struct {
	presenterKey string
	jwtSecret    []byte
	ttl          time.Duration
	clock        Clock
}

func NewAuthService(presenterKey, jwtSecret string, ttl time.Duration, clock Clock) ports.AuthService {
	if presenterKey != "" && jwtSecret == "" {
		slog.Warn("JWT_SECRET not set, presenter tokens are signed with the presenter key")
		jwtSecret = presenterKey
	}
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}

	return &AuthService{
		presenterKey: presenterKey,
		jwtSecret:    []byte(jwtSecret),
		ttl:          ttl,
		clock:        clock,
	}
}

// Enabled is false when no presenter key is configured; presenter routes are
// then left open.
func (s *AuthService) Enabled() bool {
	return s.presenterKey != ""
}

func (s *AuthService) LoginPresenter(ctx context.Context, key string) (string, error) {
	if !s.Enabled() || subtle.ConstantTimeCompare([]byte(key), []byte(s.presenterKey)) != 1 {
		return "", domain.ErrUnauthorized
	}

	token, err := s.generateAccessToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate access token: %w", err)
	}
	return token, nil
}

func (s *AuthService) VerifyAccessToken(token string) error {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return s.jwtSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.clock.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}

	if sub, _ := claims.GetSubject(); sub != presenterSubject {
		return fmt.Errorf("%w: %v", domain.ErrUnauthorized, errors.New("token subject is not the presenter"))
	}
	return nil
}

func (s *AuthService) generateAccessToken() (string, error) {
	now := s.clock.now()
	claims := jwt.MapClaims{
		"sub": presenterSubject,
		"exp": now.Add(s.ttl).Unix(),
		"iat": now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}
