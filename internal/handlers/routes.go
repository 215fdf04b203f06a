package handlers

import (
	"net/http"

	"consultapp/internal/middleware"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"
)

// Router groups every handler the server exposes
type Router struct {
	Auth    *AuthHandlers
	Tenants *TenantHandlers
	Public  *PublicHandlers
	Health  *HealthHandlers
	// Metrics is optional
	Metrics http.Handler
	Version string
}

// Register mounts all routes on e. The session guard must already be
// installed on e; it decides per path whether a session is required.
// Trailing slashes are stripped before routing.
func (r *Router) Register(e *echo.Echo) {
	e.Pre(echoMiddleware.RemoveTrailingSlash())

	e.GET("/health", r.Health.HealthCheck)
	e.GET("/health/ready", r.Health.ReadinessCheck)
	if r.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(r.Metrics))
	}
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	e.GET("/in/:tenantId", r.Public.GetPublicTenant)
	e.GET("/admin", r.Public.Dashboard)

	api := e.Group("/api")
	api.Use(middleware.VersionHeader(r.Version))

	api.POST("/session", r.Auth.Login)
	api.DELETE("/session", r.Auth.Logout)
	api.GET("/me", r.Auth.Me)

	api.GET("/public/:tenantId", r.Public.GetPublicTenant)

	api.GET("/tenant", r.Tenants.GetTenant)
	api.POST("/tenant", r.Tenants.CreateTenant)
	api.PUT("/tenant", r.Tenants.UpdateTenant)
	api.DELETE("/tenant", r.Tenants.DeleteTenant)

	api.GET("/admin/tenant-theme", r.Tenants.GetTheme)
	api.POST("/admin/tenant-theme", r.Tenants.UpdateTheme)
}
