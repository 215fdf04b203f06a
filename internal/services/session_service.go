package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"consultapp/internal/metrics"
	"consultapp/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultSessionLifetime = 7 * 24 * time.Hour

	sessionIssuer   = "consultapp"
	sessionAudience = "consultapp-session"
)

// SessionService mints and resolves the session token carried in the cookie.
// Tokens are signed locally and resolved without contacting the issuer; the
// only remote call on resolve is the revocation cut-off lookup.
type SessionService interface {
	Mint(ctx context.Context, subject *models.Subject, lifetime time.Duration) (*models.SessionToken, error)
	Resolve(ctx context.Context, token string) (*models.Subject, error)
	Revoke(ctx context.Context, subjectID string) error
}

// RevocationStore keeps the per-subject "tokens issued at or before" mark.
type RevocationStore interface {
	SetRevokedBefore(ctx context.Context, subjectID string, at time.Time, ttl time.Duration) error
	GetRevokedBefore(ctx context.Context, subjectID string) (time.Time, bool, error)
}

type SessionConfig struct {
	Secret      []byte
	MaxLifetime time.Duration
	Timeout     time.Duration
	Now         func() time.Time
}

type sessionService struct {
	secret      []byte
	maxLifetime time.Duration
	timeout     time.Duration
	now         func() time.Time
	revocations RevocationStore
	parser      *jwt.Parser
	metrics     metrics.Recorder
	logger      *zap.Logger
}

// SessionClaims is the payload of a session token. IssuedAtMillis carries
// iat at millisecond precision for the revocation check.
type SessionClaims struct {
	Email          *string  `json:"email,omitempty"`
	Roles          []string `json:"roles,omitempty"`
	IssuedAtMillis int64    `json:"iat_ms,omitempty"`
	jwt.RegisteredClaims
}

// NewSessionService builds the codec. revocations may be nil, in which case
// Revoke reports models.ErrRevocationUnavailable.
func NewSessionService(cfg SessionConfig, revocations RevocationStore, recorder metrics.Recorder, logger *zap.Logger) SessionService {
	if cfg.MaxLifetime <= 0 {
		cfg.MaxLifetime = DefaultSessionLifetime
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if recorder == nil {
		recorder = metrics.Nop
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &sessionService{
		secret:      cfg.Secret,
		maxLifetime: cfg.MaxLifetime,
		timeout:     cfg.Timeout,
		now:         cfg.Now,
		revocations: revocations,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(sessionIssuer),
			jwt.WithAudience(sessionAudience),
			jwt.WithExpirationRequired(),
			jwt.WithTimeFunc(cfg.Now),
		),
		metrics: recorder,
		logger:  logger,
	}
}

func (s *sessionService) Mint(ctx context.Context, subject *models.Subject, lifetime time.Duration) (*models.SessionToken, error) {
	if subject == nil || subject.ID == "" {
		return nil, models.ErrInvalidCredential
	}
	if lifetime <= 0 || lifetime > s.maxLifetime {
		lifetime = s.maxLifetime
	}

	now := s.now().Truncate(time.Millisecond)
	expiresAt := now.Add(lifetime)
	claims := SessionClaims{
		Email: subject.Email,
		Roles: subject.Claims.Roles,

		IssuedAtMillis: now.UnixMilli(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    sessionIssuer,
			Subject:   subject.ID,
			Audience:  jwt.ClaimStrings{sessionAudience},
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign session token: %w", err)
	}
	s.metrics.RecordSession("minted")

	return &models.SessionToken{
		Value:     signed,
		SubjectID: subject.ID,
		IssuedAt:  now,
		ExpiresAt: expiresAt,
	}, nil
}

func (s *sessionService) Resolve(ctx context.Context, token string) (*models.Subject, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		s.metrics.RecordSession("missing")
		return nil, models.ErrNoSession
	}

	claims := &SessionClaims{}
	parsed, err := s.parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil || !parsed.Valid || claims.Subject == "" || claims.IssuedAt == nil {
		s.logger.Debug("session token rejected", zap.Error(err))
		s.metrics.RecordSession("invalid")
		return nil, models.ErrNoSession
	}

	if s.revocations != nil {
		ctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		cutoff, found, err := s.revocations.GetRevokedBefore(ctx, claims.Subject)
		if err != nil {
			s.metrics.RecordSession("unavailable")
			return nil, fmt.Errorf("%w: revocation lookup: %w", models.ErrUnavailable, err)
		}
		if found && !issuedAt(claims).After(cutoff) {
			s.metrics.RecordSession("revoked")
			return nil, models.ErrNoSession
		}
	}

	s.metrics.RecordSession("resolved")
	return &models.Subject{
		ID:     claims.Subject,
		Email:  claims.Email,
		Claims: models.Claims{Roles: claims.Roles},
	}, nil
}

func (s *sessionService) Revoke(ctx context.Context, subjectID string) error {
	if s.revocations == nil {
		return models.ErrRevocationUnavailable
	}
	if subjectID == "" {
		return models.ErrNoSession
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cutoff := s.now().Truncate(time.Millisecond)
	if err := s.revocations.SetRevokedBefore(ctx, subjectID, cutoff, s.maxLifetime); err != nil {
		s.metrics.RecordSession("revoke_failed")
		return fmt.Errorf("%w: %w", models.ErrRevocationUnavailable, err)
	}
	s.metrics.RecordSession("revoked_all")
	return nil
}

func issuedAt(claims *SessionClaims) time.Time {
	if claims.IssuedAtMillis > 0 {
		return time.UnixMilli(claims.IssuedAtMillis)
	}
	return claims.IssuedAt.Time
}
