package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"consultapp/internal/models"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const (
	DefaultJWKSURL   = "https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com"
	maxSubjectLength = 128
)

// CredentialVerifier checks a bearer credential from the identity issuer
type CredentialVerifier interface {
	Verify(ctx context.Context, credential string) (*models.Subject, error)
}

type IDTokenConfig struct {
	ProjectID string
	// Issuer defaults to https://securetoken.google.com/<ProjectID>
	Issuer string
	// Audience defaults to ProjectID
	Audience string
	Timeout  time.Duration
	Now      func() time.Time
}

type idTokenVerifier struct {
	keyFunc jwt.Keyfunc
	parser  *jwt.Parser
	timeout time.Duration
	logger  *zap.Logger
}

// idTokenClaims is the issuer's wire shape. Roles arrive as either a string
// or a list depending on how the custom claim was set.
type idTokenClaims struct {
	Email         *string `json:"email,omitempty"`
	EmailVerified bool    `json:"email_verified,omitempty"`
	Roles         any     `json:"roles,omitempty"`
	Role          any     `json:"role,omitempty"`
	Firebase      struct {
		SignInProvider string `json:"sign_in_provider,omitempty"`
	} `json:"firebase"`
	jwt.RegisteredClaims
}

func NewIDTokenVerifier(keyFunc jwt.Keyfunc, cfg IDTokenConfig, logger *zap.Logger) CredentialVerifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	issuer := cfg.Issuer
	if issuer == "" {
		issuer = "https://securetoken.google.com/" + cfg.ProjectID
	}
	audience := cfg.Audience
	if audience == "" {
		audience = cfg.ProjectID
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if cfg.Now != nil {
		opts = append(opts, jwt.WithTimeFunc(cfg.Now))
	}

	return &idTokenVerifier{
		keyFunc: keyFunc,
		parser:  jwt.NewParser(opts...),
		timeout: timeout,
		logger:  logger,
	}
}

// NewJWKS fetches the issuer's signing keys and keeps them refreshed until ctx is done
func NewJWKS(ctx context.Context, jwksURL string, timeout time.Duration, logger *zap.Logger) (*keyfunc.JWKS, error) {
	if jwksURL == "" {
		jwksURL = DefaultJWKSURL
	}
	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
		Ctx:               ctx,
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  5 * time.Minute,
		RefreshTimeout:    timeout,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			logger.Warn("jwks refresh failed", zap.String("url", jwksURL), zap.Error(err))
		},
	})
	if err != nil {
		return nil, fmt.Errorf("load jwks from %s: %w", jwksURL, err)
	}
	return jwks, nil
}

type verifyResult struct {
	subject *models.Subject
	err     error
}

func (v *idTokenVerifier) Verify(ctx context.Context, credential string) (*models.Subject, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return nil, models.ErrInvalidCredential
	}

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	// key lookup may hit the network on an unknown kid
	done := make(chan verifyResult, 1)
	go func() {
		subject, err := v.verify(credential)
		done <- verifyResult{subject: subject, err: err}
	}()

	select {
	case <-ctx.Done():
		v.logger.Warn("credential verification timed out", zap.Error(ctx.Err()))
		return nil, fmt.Errorf("%w: identity issuer: %w", models.ErrUnavailable, ctx.Err())
	case res := <-done:
		if res.err != nil {
			v.logger.Debug("credential rejected", zap.Error(res.err))
			return nil, models.ErrInvalidCredential
		}
		return res.subject, nil
	}
}

func (v *idTokenVerifier) verify(credential string) (*models.Subject, error) {
	claims := &idTokenClaims{}
	token, err := v.parser.ParseWithClaims(credential, claims, v.keyFunc)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("token not valid")
	}
	if claims.Subject == "" || len(claims.Subject) > maxSubjectLength {
		return nil, errors.New("subject missing or too long")
	}

	email := claims.Email
	if email != nil && strings.TrimSpace(*email) == "" {
		email = nil
	}

	roles := normalizeRoles(claims.Roles)
	if len(roles) == 0 {
		roles = normalizeRoles(claims.Role)
	}

	return &models.Subject{
		ID:    claims.Subject,
		Email: email,
		Claims: models.Claims{
			Roles:         roles,
			EmailVerified: claims.EmailVerified,
			Provider:      claims.Firebase.SignInProvider,
		},
	}, nil
}

// normalizeRoles accepts a string or a list of strings and drops everything else
func normalizeRoles(raw any) []string {
	switch v := raw.(type) {
	case string:
		if s := strings.TrimSpace(v); s != "" {
			return []string{s}
		}
	case []any:
		roles := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				roles = append(roles, strings.TrimSpace(s))
			}
		}
		if len(roles) > 0 {
			return roles
		}
	case []string:
		return v
	}
	return nil
}
