package handlers

import (
	"net/http"
	"strings"
	"time"

	"consultapp/internal/middleware"
	"consultapp/internal/models"
	"consultapp/internal/services"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// CookieConfig controls the session cookie written on login
type CookieConfig struct {
	Name   string
	Secure bool
	MaxAge time.Duration
}

// AuthHandlers handles the session lifecycle endpoints
type AuthHandlers struct {
	authService services.AuthService
	cookie      CookieConfig
	logger      *zap.Logger
}

// NewAuthHandlers creates a new auth handlers instance
func NewAuthHandlers(authService services.AuthService, cookie CookieConfig, logger *zap.Logger) *AuthHandlers {
	if cookie.MaxAge <= 0 {
		cookie.MaxAge = services.DefaultSessionLifetime
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandlers{
		authService: authService,
		cookie:      cookie,
		logger:      logger,
	}
}

// Login exchanges an ID token for a session cookie
// @Summary Create session
// @Tags session
// @Accept json
// @Produce json
// @Param request body models.SessionRequest true "ID token"
// @Success 200 {object} models.SessionResponse
// @Failure 400 {object} common.ErrorResponse
// @Failure 401 {object} common.ErrorResponse
// @Router /api/session [post]
func (h *AuthHandlers) Login(c echo.Context) error {
	var req models.SessionRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, h.logger, models.NewValidationError("idToken", "invalid request body"))
	}
	if strings.TrimSpace(req.IDToken) == "" {
		return respondError(c, h.logger, models.NewValidationError("idToken", "is required"))
	}

	result, err := h.authService.Login(c.Request().Context(), req.IDToken)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	c.SetCookie(&http.Cookie{
		Name:     h.cookie.Name,
		Value:    result.Token.Value,
		Path:     "/",
		MaxAge:   int(result.Token.ExpiresAt.Sub(result.Token.IssuedAt).Seconds()),
		Expires:  result.Token.ExpiresAt,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteStrictMode,
	})

	return c.JSON(http.StatusOK, models.SessionResponse{
		OK:    true,
		UID:   result.Subject.ID,
		Email: result.Subject.Email,
	})
}

// Logout clears the cookie and revokes the subject's sessions. It always succeeds.
// @Summary End session
// @Tags session
// @Produce json
// @Success 200 {object} map[string]bool
// @Router /api/session [delete]
func (h *AuthHandlers) Logout(c echo.Context) error {
	if cookie, err := c.Cookie(h.cookie.Name); err == nil {
		h.authService.Logout(c.Request().Context(), cookie.Value)
	}

	c.SetCookie(&http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteStrictMode,
	})
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}

// Me returns the profile of the signed-in user
// @Summary Current user
// @Tags session
// @Produce json
// @Success 200 {object} models.UserProfile
// @Failure 401 {object} common.ErrorResponse
// @Router /api/me [get]
func (h *AuthHandlers) Me(c echo.Context) error {
	profile, err := h.authService.Profile(middleware.SubjectFrom(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, profile)
}
