// Package api wires together all HTTP routes for the portal backend.
//
// Route grouping philosophy:
//   - Session, navigation, and SSO routes (/api/v1/) require a verified
//     identity token: the SPA always calls them with the user's bearer token.
//   - Webhook routes (/api/v1/webhooks/) authenticate with service keys so
//     the back office can push status changes without a user session.
//   - Login-flow routes (/api/v1/auth/, OIDC deployments only) are
//     unauthenticated: they exist to get the caller a token.
//   - Probes (/healthz, /readyz) and /version are unauthenticated.
package api

import (
	"context"
	"database/sql"
	"log"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hcm-portal/hcm-portal/internal/audit"
	"github.com/hcm-portal/hcm-portal/internal/auth/oidc"
	"github.com/hcm-portal/hcm-portal/internal/backoffice"
	"github.com/hcm-portal/hcm-portal/internal/config"
	"github.com/hcm-portal/hcm-portal/internal/db/repositories"
	"github.com/hcm-portal/hcm-portal/internal/middleware"
	"github.com/hcm-portal/hcm-portal/internal/nav"
	"github.com/hcm-portal/hcm-portal/internal/session"
)

// BackgroundServices holds references to background goroutines and resources
// that must be stopped during graceful shutdown. The caller (cmd/server) is
// responsible for calling Shutdown() when the process receives a termination
// signal.
type BackgroundServices struct {
	rateLimiters []*middleware.RateLimiter
	cache        *session.RedisCache
	shipper      audit.Shipper
	stopWatcher  func() error
}

// Shutdown stops all background goroutines and closes held connections. It
// should be called after the HTTP server has been shut down so that in-flight
// requests are drained first.
func (bg *BackgroundServices) Shutdown() {
	slog.Info("stopping background services")
	if bg.stopWatcher != nil {
		if err := bg.stopWatcher(); err != nil {
			slog.Warn("failed to stop config watcher", "error", err)
		}
	}
	for _, rl := range bg.rateLimiters {
		rl.Stop()
	}
	if bg.shipper != nil {
		if err := bg.shipper.Close(); err != nil {
			slog.Warn("failed to close audit shippers", "error", err)
		}
	}
	if bg.cache != nil {
		if err := bg.cache.Close(); err != nil {
			slog.Warn("failed to close snapshot cache", "error", err)
		}
	}
	slog.Info("all background services stopped")
}

// NewRouter creates and configures the Gin router. configPath, when
// non-empty, enables hot reload of the SSO system fallback table.
func NewRouter(cfg *config.Config, db *sql.DB, configPath string) (*gin.Engine, *BackgroundServices) {
	router := gin.New()
	bg := &BackgroundServices{}

	// Initialize repositories
	preferenceRepo := repositories.NewPreferenceRepository(db)
	serviceKeyRepo := repositories.NewServiceKeyRepository(db)
	auditRepo := repositories.NewAuditRepository(db)

	// Audit recorder: DB write is authoritative, shippers are best-effort.
	var shipper audit.Shipper
	if cfg.Audit.Enabled {
		ms, err := audit.NewMultiShipper(shipperConfigs(cfg.Audit.Shippers))
		if err != nil {
			log.Fatalf("Failed to initialize audit shippers: %v", err)
		}
		shipper = ms
		bg.shipper = ms
	}
	recorder := audit.NewRecorder(auditRepo, shipper)

	// Upstream back-office client
	boClient := backoffice.NewClient(&cfg.BackOffice)

	// Snapshot cache (optional)
	var cache session.SnapshotCache
	if cfg.Redis.Enabled {
		redisCache, err := session.NewRedisCache(context.Background(), &cfg.Redis)
		if err != nil {
			log.Fatalf("Failed to initialize snapshot cache: %v", err)
		}
		cache = redisCache
		bg.cache = redisCache
		log.Printf("Snapshot cache connected: %s", cfg.Redis.Addr)
	}

	// Session bootstrap state machine
	manager := session.NewManager(boClient, preferenceRepo, cache, recorder, cfg.Portal)

	// SSO command executor with hot-reloadable fallback table
	executor := nav.NewExecutor(boClient, cfg.BackOffice.Systems)
	if configPath != "" {
		stop, err := config.WatchSSOSystems(configPath, executor.SetSystems)
		if err != nil {
			slog.Warn("SSO system hot reload disabled", "error", err)
		} else {
			bg.stopWatcher = stop
		}
	}

	// Token verifier: OIDC in production, HS256 portal tokens in dev. With
	// OIDC the provider also backs the browser login-flow endpoints.
	var verifier middleware.TokenVerifier
	var authHandlers *AuthHandlers
	if cfg.Auth.OIDC.Enabled {
		provider, err := oidc.NewProvider(&cfg.Auth.OIDC)
		if err != nil {
			log.Fatalf("Failed to initialize OIDC provider: %v", err)
		}
		verifier = middleware.TokenVerifierFunc(provider.VerifyIDToken)
		authHandlers = NewAuthHandlers(provider, cfg)
		log.Printf("OIDC token verification enabled: %s", cfg.Auth.OIDC.IssuerURL)
	} else {
		verifier = middleware.DevJWTVerifier()
		log.Println("WARNING: OIDC disabled, using dev-mode portal tokens")
	}

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware(middleware.APISecurityHeadersConfig()))
	router.Use(middleware.MetricsMiddleware())
	router.Use(LoggerMiddleware(cfg))
	router.Use(CORSMiddleware(cfg))

	// Probes
	router.GET("/healthz", healthCheckHandler(db))
	router.GET("/readyz", readinessHandler(db, bg.cache))
	router.GET("/version", versionHandler())

	// Rate limiters
	generalRateLimiter := middleware.NewRateLimiter(middleware.DefaultRateLimitConfig())
	webhookRateLimiter := middleware.NewRateLimiter(middleware.WebhookRateLimitConfig())
	bg.rateLimiters = append(bg.rateLimiters, generalRateLimiter, webhookRateLimiter)

	sessionHandlers := NewSessionHandlers(manager)
	navigationHandlers := NewNavigationHandlers(manager)
	ssoHandlers := NewSSOHandlers(manager, executor, recorder)
	webhookHandlers := NewWebhookHandlers(manager, recorder)

	apiV1 := router.Group("/api/v1")
	{
		// Login-flow routes: unauthenticated by nature (the caller has no
		// token yet), rate limited like everything else.
		if authHandlers != nil {
			authGroup := apiV1.Group("/auth")
			authGroup.Use(middleware.RateLimitMiddleware(generalRateLimiter))
			{
				authGroup.GET("/login", authHandlers.LoginURL)
				authGroup.POST("/exchange", authHandlers.Exchange)
				authGroup.GET("/logout", authHandlers.LogoutURL)
			}
		}

		// User-facing routes: bearer identity token required.
		userGroup := apiV1.Group("")
		userGroup.Use(middleware.RateLimitMiddleware(generalRateLimiter))
		userGroup.Use(middleware.AuthMiddleware(verifier))
		{
			userGroup.GET("/session/bootstrap", sessionHandlers.Bootstrap)
			userGroup.POST("/session/refresh", sessionHandlers.Refresh)
			userGroup.POST("/session/entity", sessionHandlers.SwitchEntity)
			userGroup.GET("/navigation", navigationHandlers.Get)
			userGroup.POST("/sso/:command", ssoHandlers.Execute)
		}

		// Machine routes: service key required.
		webhookGroup := apiV1.Group("/webhooks")
		webhookGroup.Use(middleware.RateLimitMiddleware(webhookRateLimiter))
		webhookGroup.Use(middleware.ServiceKeyMiddleware(serviceKeyRepo))
		{
			webhookGroup.POST("/employee-status", webhookHandlers.EmployeeStatus)
		}
	}

	return router, bg
}

// shipperConfigs converts config-file shipper settings into audit package
// configs.
func shipperConfigs(configs []config.AuditShipperConfig) []audit.ShipperConfig {
	out := make([]audit.ShipperConfig, 0, len(configs))
	for _, c := range configs {
		sc := audit.ShipperConfig{
			Enabled: c.Enabled,
			Type:    c.Type,
		}
		if c.Webhook != nil {
			sc.Webhook = &audit.WebhookConfig{
				URL:           c.Webhook.URL,
				Headers:       c.Webhook.Headers,
				Timeout:       time.Duration(c.Webhook.TimeoutSecs) * time.Second,
				BatchSize:     c.Webhook.BatchSize,
				FlushInterval: time.Duration(c.Webhook.FlushInterval) * time.Second,
			}
		}
		if c.File != nil {
			sc.File = &audit.FileConfig{
				Path:       c.File.Path,
				MaxSizeMB:  c.File.MaxSizeMB,
				MaxBackups: c.File.MaxBackups,
			}
		}
		out = append(out, sc)
	}
	return out
}
