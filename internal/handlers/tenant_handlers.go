package handlers

import (
	"errors"
	"net/http"
	"strings"

	"consultapp/internal/middleware"
	"consultapp/internal/models"
	"consultapp/internal/services"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// TenantHandlers handles the owner-facing tenant endpoints
type TenantHandlers struct {
	tenantService services.TenantService
	logger        *zap.Logger
}

// NewTenantHandlers creates a new tenant handlers instance
func NewTenantHandlers(tenantService services.TenantService, logger *zap.Logger) *TenantHandlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TenantHandlers{
		tenantService: tenantService,
		logger:        logger,
	}
}

// CreateTenantRequest represents the tenant creation request payload
type CreateTenantRequest struct {
	TenantID     string              `json:"tenantId"`
	DisplayName  string              `json:"displayName"`
	Theme        *models.ThemeConfig `json:"theme"`
	Links        []models.TenantLink `json:"links,omitempty"`
	PrevTenantID *string             `json:"prevTenantId,omitempty"`
}

// DeleteTenantRequest accepts the id from the body or the query string
type DeleteTenantRequest struct {
	TenantID string `json:"tenantId" query:"tenantId"`
}

type tenantResponse struct {
	OK     bool           `json:"ok,omitempty"`
	Tenant *models.Tenant `json:"tenant"`
}

// GetTenant returns the tenant at ?tenantId, or the caller's own tenant
// @Summary Get tenant
// @Tags tenant
// @Produce json
// @Param tenantId query string false "Tenant slug"
// @Success 200 {object} tenantResponse
// @Failure 401 {object} common.ErrorResponse
// @Failure 403 {object} common.ErrorResponse
// @Router /api/tenant [get]
func (h *TenantHandlers) GetTenant(c echo.Context) error {
	ctx := c.Request().Context()
	subject := middleware.SubjectFrom(c)

	var (
		tenant *models.Tenant
		err    error
	)
	if tenantID := c.QueryParam("tenantId"); tenantID != "" {
		tenant, err = h.tenantService.GetBySlug(ctx, subject, tenantID)
	} else {
		tenant, err = h.tenantService.GetByOwner(ctx, subject)
	}
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, tenantResponse{Tenant: tenant})
}

// CreateTenant creates the caller's tenant. A prevTenantId different from
// tenantId moves the existing page to the new slug.
// @Summary Create tenant
// @Tags tenant
// @Accept json
// @Produce json
// @Param request body CreateTenantRequest true "Tenant"
// @Success 200 {object} tenantResponse
// @Failure 400 {object} common.ErrorResponse
// @Failure 409 {object} common.ErrorResponse
// @Router /api/tenant [post]
func (h *TenantHandlers) CreateTenant(c echo.Context) error {
	ctx := c.Request().Context()
	subject := middleware.SubjectFrom(c)

	var req CreateTenantRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, h.logger, models.NewValidationError("body", "invalid request body"))
	}
	switch {
	case strings.TrimSpace(req.TenantID) == "":
		return respondError(c, h.logger, models.NewValidationError("tenantId", "is required"))
	case strings.TrimSpace(req.DisplayName) == "":
		return respondError(c, h.logger, models.NewValidationError("displayName", "is required"))
	case req.Theme == nil:
		return respondError(c, h.logger, models.NewValidationError("theme", "is required"))
	}

	if req.PrevTenantID != nil && strings.TrimSpace(*req.PrevTenantID) != "" && *req.PrevTenantID != req.TenantID {
		links := req.Links
		if links == nil {
			links = []models.TenantLink{}
		}
		tenant, err := h.tenantService.Update(ctx, subject, &services.UpdateTenantRequest{
			TenantID:     req.TenantID,
			PrevTenantID: req.PrevTenantID,
			DisplayName:  &req.DisplayName,
			Theme:        req.Theme,
			Links:        links,
		})
		if err == nil {
			return c.JSON(http.StatusOK, tenantResponse{OK: true, Tenant: tenant})
		}
		if !errors.Is(err, models.ErrNotFound) {
			return respondError(c, h.logger, err)
		}
		// previous page is gone, plain create
	}

	tenant, err := h.tenantService.Create(ctx, subject, &services.CreateTenantRequest{
		TenantID:    req.TenantID,
		DisplayName: req.DisplayName,
		Theme:       req.Theme,
		Links:       req.Links,
	})
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, tenantResponse{OK: true, Tenant: tenant})
}

// UpdateTenant applies a partial update
// @Summary Update tenant
// @Tags tenant
// @Accept json
// @Produce json
// @Param request body services.UpdateTenantRequest true "Changes"
// @Success 200 {object} tenantResponse
// @Failure 400 {object} common.ErrorResponse
// @Failure 403 {object} common.ErrorResponse
// @Failure 404 {object} common.ErrorResponse
// @Failure 409 {object} common.ErrorResponse
// @Router /api/tenant [put]
func (h *TenantHandlers) UpdateTenant(c echo.Context) error {
	var req services.UpdateTenantRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, h.logger, models.NewValidationError("body", "invalid request body"))
	}
	if strings.TrimSpace(req.TenantID) == "" {
		return respondError(c, h.logger, models.NewValidationError("tenantId", "is required"))
	}

	tenant, err := h.tenantService.Update(c.Request().Context(), middleware.SubjectFrom(c), &req)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, tenantResponse{OK: true, Tenant: tenant})
}

// DeleteTenant removes the caller's tenant
// @Summary Delete tenant
// @Tags tenant
// @Accept json
// @Produce json
// @Param request body DeleteTenantRequest true "Tenant id"
// @Success 200 {object} map[string]bool
// @Failure 403 {object} common.ErrorResponse
// @Router /api/tenant [delete]
func (h *TenantHandlers) DeleteTenant(c echo.Context) error {
	var req DeleteTenantRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, h.logger, models.NewValidationError("body", "invalid request body"))
	}
	if strings.TrimSpace(req.TenantID) == "" {
		return respondError(c, h.logger, models.NewValidationError("tenantId", "is required"))
	}

	if err := h.tenantService.Remove(c.Request().Context(), middleware.SubjectFrom(c), req.TenantID); err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}

// GetTheme returns display name and theme of one of the caller's tenants
// @Summary Get tenant theme
// @Tags theme
// @Produce json
// @Param tenantId query string true "Tenant slug"
// @Success 200 {object} map[string]services.TenantTheme
// @Router /api/admin/tenant-theme [get]
func (h *TenantHandlers) GetTheme(c echo.Context) error {
	tenantID := c.QueryParam("tenantId")
	if strings.TrimSpace(tenantID) == "" {
		return respondError(c, h.logger, models.NewValidationError("tenantId", "is required"))
	}

	theme, err := h.tenantService.GetTheme(c.Request().Context(), middleware.SubjectFrom(c), tenantID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, map[string]*services.TenantTheme{"theme": theme})
}

type themeUpdateResponse struct {
	OK    bool                  `json:"ok"`
	Theme *services.TenantTheme `json:"theme"`
}

// UpdateTheme saves display name and theme, creating the tenant if needed
// @Summary Update tenant theme
// @Tags theme
// @Accept json
// @Produce json
// @Param request body services.UpdateThemeRequest true "Theme"
// @Success 200 {object} themeUpdateResponse
// @Failure 400 {object} common.ErrorResponse
// @Failure 409 {object} common.ErrorResponse
// @Router /api/admin/tenant-theme [post]
func (h *TenantHandlers) UpdateTheme(c echo.Context) error {
	var req services.UpdateThemeRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, h.logger, models.NewValidationError("body", "invalid request body"))
	}
	switch {
	case strings.TrimSpace(req.TenantID) == "":
		return respondError(c, h.logger, models.NewValidationError("tenantId", "is required"))
	case strings.TrimSpace(req.DisplayName) == "":
		return respondError(c, h.logger, models.NewValidationError("displayName", "is required"))
	case req.Theme == nil:
		return respondError(c, h.logger, models.NewValidationError("theme", "is required"))
	}

	theme, err := h.tenantService.UpdateTheme(c.Request().Context(), middleware.SubjectFrom(c), &req)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, themeUpdateResponse{OK: true, Theme: theme})
}
