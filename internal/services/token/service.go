package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mcoot/realmkeeper/internal/dependencies/clock"
	"github.com/mcoot/realmkeeper/internal/dependencies/ids"
)

// ErrInvalidToken covers every reason a bearer token is rejected
var ErrInvalidToken = errors.New("invalid or expired token")

// Config holds configuration for the token service
type Config struct {
	Secret   []byte
	Issuer   string
	Lifetime time.Duration
}

// DefaultConfig returns default token configuration (without a secret)
func DefaultConfig() Config {
	return Config{
		Issuer:   "realmkeeper",
		Lifetime: 24 * time.Hour,
	}
}

// Token is a signed access token and its expiry
type Token struct {
	Value     string
	Subject   string
	ExpiresAt time.Time
}

// Service issues and verifies HS256 JWTs whose subject is a username
type Service struct {
	cfg   Config
	clock clock.Clock
	ids   ids.Generator
}

// New creates a token service. The secret must be set.
func New(cfg Config, clock clock.Clock, ids ids.Generator) (*Service, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("token secret must not be empty")
	}
	defaults := DefaultConfig()
	if cfg.Issuer == "" {
		cfg.Issuer = defaults.Issuer
	}
	if cfg.Lifetime <= 0 {
		cfg.Lifetime = defaults.Lifetime
	}
	return &Service{cfg: cfg, clock: clock, ids: ids}, nil
}

// Issue signs a fresh token for the subject
func (s *Service) Issue(subject string) (*Token, error) {
	now := s.clock.Now()
	exp := now.Add(s.cfg.Lifetime)
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    s.cfg.Issuer,
		ID:        s.ids.New(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.Secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &Token{Value: signed, Subject: subject, ExpiresAt: exp}, nil
}

// Verify checks signature, issuer and expiry and returns the subject
func (s *Service) Verify(raw string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return s.cfg.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims.Subject, nil
}
