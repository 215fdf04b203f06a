package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	_ "consultapp/docs"
	"consultapp/internal/caching"
	"consultapp/internal/config"
	"consultapp/internal/handlers"
	"consultapp/internal/jobs"
	"consultapp/internal/logger"
	"consultapp/internal/metrics"
	"consultapp/internal/middleware"
	"consultapp/internal/repositories"
	"consultapp/internal/services"
	"consultapp/pkg/database"
)

const version = "1.0.0"

func main() {
	configPath := flag.String("config", os.Getenv("CONSULTAPP_CONFIG"), "path to a TOML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	zl, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, zl); err != nil {
		zl.Fatal("server exited", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, zl *zap.Logger) error {
	// Database
	if cfg.Database.Migrate {
		if err := database.RunMigrations(ctx, cfg.Database.URL); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
	}
	pool, err := database.NewPool(ctx, database.PoolConfig{DSN: cfg.Database.URL, MaxConns: cfg.Database.MaxConns})
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer pool.Close()

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewCollector(registry)

	// Redis: revocation marks and the shared public cache level
	var (
		revocations services.RevocationStore
		sharedCache caching.Store
		redisPinger handlers.Pinger
	)
	if cfg.Redis.Addr != "" {
		client, err := caching.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		cacheSvc := caching.NewRedisCacheService(client, zl.Named("redis"))
		defer func() { _ = cacheSvc.Close() }()
		revocations, sharedCache, redisPinger = cacheSvc, cacheSvc, cacheSvc
	} else {
		zl.Warn("redis not configured; logout cannot revoke copied session tokens")
	}

	local, err := caching.NewLocalCache(cfg.Cache.LocalMaxBytes)
	if err != nil {
		return fmt.Errorf("local cache: %w", err)
	}
	defer local.Close()
	publicCache := caching.NewPublicTenantCache(caching.NewTieredCache(local, sharedCache, cfg.Cache.PublicTTL), cfg.Cache.PublicTTL)

	// MinIO archive for reconciled duplicates
	var archive services.ArchiveService
	if cfg.Minio.Endpoint != "" {
		client, err := services.NewMinioClient(cfg.Minio.Endpoint, cfg.Minio.AccessKey, cfg.Minio.SecretKey, cfg.Minio.UseSSL)
		if err != nil {
			return fmt.Errorf("minio: %w", err)
		}
		archive = services.NewArchiveService(client, cfg.Minio.Bucket)
		if err := archive.EnsureBucketExists(ctx); err != nil {
			zl.Warn("archive bucket unavailable", zap.String("bucket", cfg.Minio.Bucket), zap.Error(err))
		}
	}

	// Identity issuer keys
	jwks, err := services.NewJWKS(ctx, cfg.Identity.JWKSURL, cfg.Timeouts.Issuer, zl.Named("jwks"))
	if err != nil {
		return err
	}
	defer jwks.EndBackground()

	verifier := services.NewIDTokenVerifier(jwks.Keyfunc, services.IDTokenConfig{
		ProjectID: cfg.Identity.ProjectID,
		Issuer:    cfg.Identity.Issuer,
		Audience:  cfg.Identity.Audience,
		Timeout:   cfg.Timeouts.Issuer,
	}, zl.Named("verifier"))
	sessions := services.NewSessionService(services.SessionConfig{
		Secret:      []byte(cfg.Session.Secret),
		MaxLifetime: cfg.Session.Lifetime,
		Timeout:     cfg.Timeouts.Store,
	}, revocations, recorder, zl.Named("session"))
	authSvc := services.NewAuthService(verifier, sessions, cfg.Session.Lifetime, zl.Named("auth"))

	tenantSvc := services.NewTenantService(repositories.NewTenantRepo(pool), services.TenantServiceOptions{
		StoreTimeout: cfg.Timeouts.Store,
		PublicCache:  publicCache,
		Archive:      archive,
		Metrics:      recorder,
		Logger:       zl.Named("tenants"),
	})

	// Background jobs
	scheduler, err := jobs.NewJobScheduler(tenantSvc, jobs.SchedulerConfig{
		ReconcileInterval: cfg.Jobs.ReconcileInterval,
	}, zl.Named("jobs"))
	if err != nil {
		return err
	}
	scheduler.Start()
	defer func() {
		if err := scheduler.Stop(); err != nil {
			zl.Warn("scheduler shutdown", zap.Error(err))
		}
	}()

	// HTTP
	e := echo.New()
	e.HideBanner = true
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.RequestID())
	e.Use(middleware.RequestIDContext())
	e.Use(middleware.RequestLogger(zl.Named("http")))
	e.Use(middleware.SessionGuard(sessions, middleware.DefaultGuardConfig(cfg.Session.CookieName), zl.Named("guard")))

	router := &handlers.Router{
		Auth: handlers.NewAuthHandlers(authSvc, handlers.CookieConfig{
			Name:   cfg.Session.CookieName,
			Secure: cfg.Session.SecureCookie,
			MaxAge: cfg.Session.Lifetime,
		}, zl),
		Tenants: handlers.NewTenantHandlers(tenantSvc, zl),
		Public:  handlers.NewPublicHandlers(tenantSvc, authSvc, cfg.Server.PublicURL, zl),
		Health: handlers.NewHealthHandlers(map[string]handlers.Pinger{
			"database": pool,
			"redis":    redisPinger,
		}, version, zl),
		Metrics: metrics.Handler(registry),
		Version: version,
	}
	router.Register(e)

	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		zl.Info("starting server", zap.String("addr", addr), zap.String("version", version))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zl.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
