// Package users owns the credential registry and the login / refresh /
// verify lifecycle of the token pair.
package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/trackvault/internal/common"
	"github.com/dmitrijs2005/trackvault/internal/server/auth"
)

type TokenPair struct {
	AccessToken  string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

// RevocationStore remembers consumed refresh tokens by jti. Optional; with
// no store a refresh token stays usable until it expires.
//
// Consume marks jti as used for ttl and reports whether this call was the
// first to do so. It must be atomic across concurrent callers.
type RevocationStore interface {
	Consume(ctx context.Context, jti string, ttl time.Duration) (bool, error)
}

type Options struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Revocations   RevocationStore
}

type Service struct {
	registry      *Registry
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	revocations   RevocationStore
}

func NewService(registry *Registry, opts Options) *Service {
	return &Service{
		registry:      registry,
		accessSecret:  opts.AccessSecret,
		refreshSecret: opts.RefreshSecret,
		accessTTL:     opts.AccessTTL,
		refreshTTL:    opts.RefreshTTL,
		revocations:   opts.Revocations,
	}
}

func (s *Service) issue(username string) (*TokenPair, error) {
	access, err := auth.GenerateToken(username, s.accessSecret, s.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: sign access token: %w", common.ErrorInternal, err)
	}
	refresh, err := auth.GenerateToken(username, s.refreshSecret, s.refreshTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: sign refresh token: %w", common.ErrorInternal, err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *Service) Login(ctx context.Context, username, password string) (*TokenPair, error) {
	if !s.registry.Authenticate(username, password) {
		return nil, common.ErrInvalidCredentials
	}
	return s.issue(username)
}

// Refresh exchanges a valid refresh token for a new pair. The user must
// still be in the registry.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := auth.ParseToken(refreshToken, s.refreshSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidOrExpiredToken, err)
	}

	if _, ok := s.registry.Lookup(claims.Username); !ok {
		return nil, common.ErrInvalidToken
	}

	if s.revocations != nil && claims.ID != "" {
		ttl := time.Until(claims.ExpiresAt.Time)
		if ttl < time.Second {
			ttl = time.Second
		}
		first, err := s.revocations.Consume(ctx, claims.ID, ttl)
		if err != nil {
			return nil, fmt.Errorf("%w: consume refresh token: %w", common.ErrorInternal, err)
		}
		if !first {
			return nil, common.ErrInvalidOrExpiredToken
		}
	}

	return s.issue(claims.Username)
}

// Verify returns the username carried by a valid access token.
func (s *Service) Verify(ctx context.Context, accessToken string) (string, error) {
	username, err := auth.GetUsernameFromToken(accessToken, s.accessSecret)
	if err != nil {
		if errors.Is(err, common.ErrTokenExpired) {
			return "", common.ErrTokenExpired
		}
		return "", common.ErrInvalidToken
	}
	return username, nil
}
