package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/pubike/pubike/libs/auth"
)

// Service is the in-process identity provider.
type Service struct {
	signer TokenSigner
	jwks   *auth.JWKSClient
	appID  string
	ttl    time.Duration
	clock  clockwork.Clock
	logger *slog.Logger
}

type ServiceConfig struct {
	AppID    string
	TokenTTL time.Duration
	// JWKS, when set, verifies externally issued RS256 tokens carrying a kid.
	JWKS  *auth.JWKSClient
	Clock clockwork.Clock
}

func NewService(signer TokenSigner, logger *slog.Logger, cfg ServiceConfig) *Service {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return &Service{
		signer: signer,
		jwks:   cfg.JWKS,
		appID:  cfg.AppID,
		ttl:    cfg.TokenTTL,
		clock:  cfg.Clock,
		logger: logger,
	}
}

func (s *Service) SignInAnonymously(_ context.Context) (Identity, error) {
	return s.issue(uuid.NewString(), auth.ProviderAnonymous)
}

// SignInWithToken accepts tokens signed by this service or, if configured, by
// the external issuer behind the JWKS endpoint. The subject is preserved.
func (s *Service) SignInWithToken(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrInvalidToken
	}
	claims, err := s.verify(ctx, token)
	if err != nil {
		s.logger.Debug("token sign-in rejected", "err", err)
		return Identity{}, ErrInvalidToken
	}
	if s.appID != "" && claims.AppID != "" && claims.AppID != s.appID {
		return Identity{}, ErrInvalidToken
	}
	provider := claims.Provider
	if provider == "" {
		provider = auth.ProviderCustom
	}
	return s.issue(claims.Sub, provider)
}

func (s *Service) verify(ctx context.Context, token string) (*auth.Claims, error) {
	claims, err := s.verifySignature(ctx, token)
	if err != nil {
		return nil, err
	}
	if claims.Expired(s.clock.Now()) {
		return nil, auth.ErrInvalidToken
	}
	return claims, nil
}

func (s *Service) verifySignature(ctx context.Context, token string) (*auth.Claims, error) {
	claims, err := s.signer.Verify(token)
	if err == nil {
		return claims, nil
	}
	if s.jwks == nil {
		return nil, err
	}
	header, herr := auth.ParseHeader(token)
	if herr != nil || header.Kid == "" {
		return nil, err
	}
	return s.jwks.Verify(ctx, token)
}

func (s *Service) issue(uid, provider string) (Identity, error) {
	now := s.clock.Now()
	token, err := s.signer.Sign(auth.Claims{
		Sub:      uid,
		AppID:    s.appID,
		Provider: provider,
		Iat:      now.Unix(),
		Exp:      now.Add(s.ttl).Unix(),
	})
	if err != nil {
		return Identity{}, fmt.Errorf("sign id token: %w", err)
	}
	return Identity{UID: uid, IDToken: token, Provider: provider}, nil
}

// IsInvalidToken reports whether err is a rejected credential rather than a
// transport or signing failure.
func IsInvalidToken(err error) bool {
	return errors.Is(err, ErrInvalidToken)
}
