package handlers

import (
	"net/http"
	"strings"

	"consultapp/internal/middleware"
	"consultapp/internal/models"
	"consultapp/internal/services"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// PublicHandlers serves the anonymous landing page view and the owner dashboard
type PublicHandlers struct {
	tenantService services.TenantService
	authService   services.AuthService
	publicURL     string
	logger        *zap.Logger
}

func NewPublicHandlers(tenantService services.TenantService, authService services.AuthService, publicURL string, logger *zap.Logger) *PublicHandlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PublicHandlers{
		tenantService: tenantService,
		authService:   authService,
		publicURL:     strings.TrimSuffix(publicURL, "/"),
		logger:        logger,
	}
}

// GetPublicTenant returns the landing page of a tenant. No session needed.
// @Summary Public landing page
// @Tags public
// @Produce json
// @Param tenantId path string true "Tenant slug"
// @Success 200 {object} models.PublicTenant
// @Failure 404 {object} common.ErrorResponse
// @Router /api/public/{tenantId} [get]
func (h *PublicHandlers) GetPublicTenant(c echo.Context) error {
	view, err := h.tenantService.GetPublic(c.Request().Context(), c.Param("tenantId"))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	if view == nil {
		return respondError(c, h.logger, models.ErrNotFound)
	}
	c.Response().Header().Set("Cache-Control", "public, max-age=30")
	return c.JSON(http.StatusOK, view)
}

// DashboardResponse is what the admin home page renders
type DashboardResponse struct {
	Profile    *models.UserProfile `json:"profile"`
	Tenant     *models.Tenant      `json:"tenant"`
	LandingURL *string             `json:"landingUrl"`
}

// Dashboard returns the signed-in owner's profile and tenant
// @Summary Owner dashboard
// @Tags admin
// @Produce json
// @Success 200 {object} DashboardResponse
// @Failure 302 "redirect to login"
// @Router /admin [get]
func (h *PublicHandlers) Dashboard(c echo.Context) error {
	subject := middleware.SubjectFrom(c)

	profile, err := h.authService.Profile(subject)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	tenant, err := h.tenantService.GetByOwner(c.Request().Context(), subject)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	resp := DashboardResponse{Profile: profile, Tenant: tenant}
	if tenant != nil && h.publicURL != "" {
		url := h.publicURL + "/in/" + tenant.TenantID
		resp.LandingURL = &url
	}
	return c.JSON(http.StatusOK, resp)
}
