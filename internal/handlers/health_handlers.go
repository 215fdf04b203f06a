package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Pinger is anything with a connectivity probe
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandlers handles health check and monitoring endpoints
type HealthHandlers struct {
	checks  map[string]Pinger
	timeout time.Duration
	version string
	started time.Time
	logger  *zap.Logger
}

// NewHealthHandlers creates a new health handlers instance. Nil checks are skipped.
func NewHealthHandlers(checks map[string]Pinger, version string, logger *zap.Logger) *HealthHandlers {
	active := make(map[string]Pinger, len(checks))
	for name, check := range checks {
		if check != nil {
			active[name] = check
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthHandlers{
		checks:  active,
		timeout: 2 * time.Second,
		version: version,
		started: time.Now(),
		logger:  logger,
	}
}

// HealthStatus represents the overall health status
type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Services  map[string]string `json:"services,omitempty"`
	Uptime    string            `json:"uptime"`
	Version   string            `json:"version"`
}

// HealthCheck is the liveness probe
// @Summary Liveness
// @Tags health
// @Produce json
// @Success 200 {object} HealthStatus
// @Router /health [get]
func (h *HealthHandlers) HealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, &HealthStatus{
		Status:    "alive",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(h.started).Round(time.Second).String(),
		Version:   h.version,
	})
}

// ReadinessCheck probes every dependency in parallel
// @Summary Readiness
// @Tags health
// @Produce json
// @Success 200 {object} HealthStatus
// @Failure 503 {object} HealthStatus
// @Router /health/ready [get]
func (h *HealthHandlers) ReadinessCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	var mu sync.Mutex
	services := make(map[string]string, len(h.checks))
	// independent probes; one failure must not cancel the others
	var g errgroup.Group
	for name, check := range h.checks {
		g.Go(func() error {
			status := "healthy"
			err := check.Ping(ctx)
			if err != nil {
				status = "unhealthy"
				h.logger.Warn("readiness probe failed", zap.String("service", name), zap.Error(err))
			}
			mu.Lock()
			services[name] = status
			mu.Unlock()
			return err
		})
	}
	err := g.Wait()

	health := &HealthStatus{
		Status:    "ready",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Services:  services,
		Uptime:    time.Since(h.started).Round(time.Second).String(),
		Version:   h.version,
	}
	if err != nil {
		health.Status = "not_ready"
		return c.JSON(http.StatusServiceUnavailable, health)
	}
	return c.JSON(http.StatusOK, health)
}
