package middleware

import (
	"context"
	"errors"
	"net/http"

	"consultapp/internal/common"
	"consultapp/internal/models"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// SessionResolver turns a session token into a subject
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (*models.Subject, error)
}

// GuardConfig describes which paths require a session and how to reject.
// Page prefixes redirect to the login page; API prefixes answer 401.
type GuardConfig struct {
	CookieName    string
	LoginPath     string
	RedirectParam string
	PagePrefixes  []string
	APIPrefixes   []string
}

func DefaultGuardConfig(cookieName string) GuardConfig {
	return GuardConfig{
		CookieName:    cookieName,
		LoginPath:     "/login",
		RedirectParam: "from",
		PagePrefixes:  []string{"/admin"},
		APIPrefixes:   []string{"/api/tenant", "/api/admin", "/api/me"},
	}
}

type routeKind int

const (
	routeOpen routeKind = iota
	routePage
	routeAPI
)

func (cfg GuardConfig) classify(path string) routeKind {
	for _, prefix := range cfg.PagePrefixes {
		if common.IsUnderPrefix(path, prefix) {
			return routePage
		}
	}
	for _, prefix := range cfg.APIPrefixes {
		if common.IsUnderPrefix(path, prefix) {
			return routeAPI
		}
	}
	return routeOpen
}

// SessionGuard lets open paths through untouched and requires a resolvable
// session cookie on protected ones. The resolved subject is attached to both
// the echo context and the request context.
func SessionGuard(resolver SessionResolver, cfg GuardConfig, logger *zap.Logger) echo.MiddlewareFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			kind := cfg.classify(path)
			if kind == routeOpen {
				return next(c)
			}

			var token string
			if cookie, err := c.Cookie(cfg.CookieName); err == nil {
				token = cookie.Value
			}

			subject, err := resolver.Resolve(c.Request().Context(), token)
			if err != nil {
				if errors.Is(err, models.ErrUnavailable) {
					logger.Warn("session resolution unavailable", zap.String("path", path), zap.Error(err))
					return c.JSON(http.StatusServiceUnavailable,
						common.CreateErrorResponse("UNAVAILABLE", "Service temporarily unavailable", nil))
				}
				if kind == routePage {
					return c.Redirect(http.StatusFound, common.LoginRedirectURL(cfg.LoginPath, cfg.RedirectParam, path))
				}
				return common.SendUnauthorizedError(c)
			}

			c.Set(common.EchoSubjectKey, subject)
			c.SetRequest(c.Request().WithContext(common.ContextWithSubject(c.Request().Context(), subject)))
			return next(c)
		}
	}
}

// SubjectFrom returns the subject the guard attached, if any
func SubjectFrom(c echo.Context) *models.Subject {
	if subject, ok := c.Get(common.EchoSubjectKey).(*models.Subject); ok && subject != nil {
		return subject
	}
	subject, _ := common.GetSubjectFromContext(c.Request().Context())
	return subject
}
