package services

import (
	"context"
	"errors"
	"time"

	"consultapp/internal/models"

	"go.uber.org/zap"
)

// AuthService runs the session lifecycle: exchange an issuer credential for a
// session token, and end it again.
type AuthService interface {
	Login(ctx context.Context, credential string) (*LoginResult, error)
	// Logout always succeeds from the caller's point of view
	Logout(ctx context.Context, sessionToken string)
	Profile(subject *models.Subject) (*models.UserProfile, error)
}

type LoginResult struct {
	Token   *models.SessionToken
	Subject *models.Subject
}

type authService struct {
	verifier CredentialVerifier
	sessions SessionService
	lifetime time.Duration
	logger   *zap.Logger
}

func NewAuthService(verifier CredentialVerifier, sessions SessionService, lifetime time.Duration, logger *zap.Logger) AuthService {
	if lifetime <= 0 {
		lifetime = DefaultSessionLifetime
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &authService{
		verifier: verifier,
		sessions: sessions,
		lifetime: lifetime,
		logger:   logger,
	}
}

func (s *authService) Login(ctx context.Context, credential string) (*LoginResult, error) {
	subject, err := s.verifier.Verify(ctx, credential)
	if err != nil {
		return nil, err
	}

	token, err := s.sessions.Mint(ctx, subject, s.lifetime)
	if err != nil {
		return nil, err
	}

	s.logger.Info("session created", zap.String("uid", subject.ID))
	return &LoginResult{Token: token, Subject: subject}, nil
}

func (s *authService) Logout(ctx context.Context, sessionToken string) {
	if sessionToken == "" {
		return
	}

	subject, err := s.sessions.Resolve(ctx, sessionToken)
	if err != nil {
		// expired or already revoked, nothing to invalidate
		s.logger.Debug("logout with unresolvable session", zap.Error(err))
		return
	}

	if err := s.sessions.Revoke(ctx, subject.ID); err != nil {
		if errors.Is(err, models.ErrRevocationUnavailable) {
			s.logger.Warn("session revocation unavailable; copied tokens stay valid until expiry",
				zap.String("uid", subject.ID), zap.Error(err))
			return
		}
		s.logger.Warn("session revocation failed", zap.String("uid", subject.ID), zap.Error(err))
		return
	}
	s.logger.Info("session revoked", zap.String("uid", subject.ID))
}

func (s *authService) Profile(subject *models.Subject) (*models.UserProfile, error) {
	if subject == nil || subject.ID == "" {
		return nil, models.ErrNoSession
	}
	profile := &models.UserProfile{
		UID:   subject.ID,
		Email: subject.Email,
	}
	if subject.Claims.Provider != "" {
		provider := subject.Claims.Provider
		profile.Provider = &provider
	}
	return profile, nil
}
