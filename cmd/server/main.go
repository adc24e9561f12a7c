package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"go-cms-app/internal/auth"
	"go-cms-app/internal/cache"
	"go-cms-app/internal/config"
	"go-cms-app/internal/data"
	"go-cms-app/internal/handler"
	"go-cms-app/internal/logger"
	"go-cms-app/internal/middleware"
	"go-cms-app/internal/scheduler"
	"go-cms-app/internal/service"
	"go-cms-app/internal/session"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/casbin/casbin/v2"
)

// cachePurgeSchedule is how often expired public cache entries are dropped.
const cachePurgeSchedule = "@every 10m"

func main() {
	// --- Configuration Loading ---
	cfg, err := config.LoadConfig()
	if err != nil {
		// Use fmt.Printf here because the logger is not yet initialized.
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// --- Logger Initialization ---
	log := logger.New(cfg.Log, nil)

	// --- Storage and Authorization Setup ---
	var (
		store    data.Store
		sqlDB    *sql.DB
		enforcer *casbin.Enforcer
	)
	if cfg.DB.Driver == data.DriverMemory {
		log.Warn("Using the in-memory store; content is lost on restart")
		store = data.NewMemoryStore()
		enforcer, err = auth.NewMemoryEnforcer()
		if err != nil {
			log.Fatal(err, "Failed to initialize enforcer")
		}
	} else {
		log.Info("Connecting to the database...")
		db, err := data.NewDB(cfg.DB)
		if err != nil {
			log.Fatal(err, "Failed to connect to database")
		}
		defer db.Close()

		log.Info("Applying database migrations...")
		if err := data.ApplyMigrations(db); err != nil {
			log.Fatal(err, "Failed to apply migrations")
		}
		log.Info("Migrations applied successfully.")

		store = data.NewSQLStore(db)
		sqlDB = db.DB
		enforcer, err = auth.NewEnforcer(cfg.DB.Driver, cfg.DB.DSN)
		if err != nil {
			log.Fatal(err, "Failed to initialize enforcer")
		}
	}
	auth.SeedDefaultPolicies(enforcer, cfg.Auth.Admins, log)

	// --- Authentication Setup ---
	var authenticator *auth.Authenticator
	if cfg.OIDC.IssuerURL != "" {
		authenticator, err = auth.NewAuthenticator(context.Background(), &cfg.OIDC)
		if err != nil {
			log.Fatal(err, "Failed to initialize authenticator")
		}
	} else {
		log.Warn("OIDC issuer not configured; admin login is disabled")
	}

	// --- Session Management Setup ---
	sessionManager := session.New(cfg.Session, cfg.DB.Driver, sqlDB, cfg.Server.TLS.Enabled)

	// --- Cache Initialization ---
	pageCache, err := cache.New(cfg.Cache)
	if err != nil {
		log.Fatal(err, "Failed to initialize cache")
	}
	defer pageCache.Close()

	limiter, err := middleware.NewRateLimiter(cfg.RateLimit)
	if err != nil {
		log.Fatal(err, "Failed to initialize rate limiter")
	}

	// --- Dependency Injection and Handler Initialization ---
	pageService := service.NewPageService(store, pageCache, logger.ForComponent(log, "pages"), service.Options{
		AttributionEnabled: cfg.Versioning.AttributionEnabled,
		CacheTTL:           time.Duration(cfg.Cache.TTL) * time.Second,
	})
	auditService := service.NewAuditService(store, logger.ForComponent(log, "audit"))

	handlers := handler.Handlers{
		Pages:  handler.NewPageHandler(pageService, log),
		Public: handler.NewPublicHandler(pageService),
		Audit:  handler.NewAuditHandler(auditService),
		Auth:   handler.NewAuthHandler(authenticator, sessionManager, auditService, log),
		SEO:    handler.NewSeoHandler(pageService, cfg.Server.BaseURL),
	}
	router := handler.NewRouter(handlers, sessionManager, enforcer, limiter, log)

	// --- Background Jobs ---
	jobs := scheduler.New(logger.ForComponent(log, "scheduler"))
	retention := time.Duration(cfg.Audit.RetentionDays) * 24 * time.Hour
	if err := jobs.AddAuditPrune(cfg.Audit.PruneSchedule, auditService, retention); err != nil {
		log.Fatal(err, "Failed to schedule audit pruning")
	}
	if err := jobs.AddCachePurge(cachePurgeSchedule, pageCache); err != nil {
		log.Fatal(err, "Failed to schedule cache purge")
	}
	jobs.Start()

	// --- Server Initialization and Graceful Shutdown ---
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}
	go func() {
		if cfg.Server.TLS.Enabled {
			log.Info(fmt.Sprintf("Starting HTTPS server on %s", server.Addr))
			if err := server.ListenAndServeTLS(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal(err, "Could not start HTTPS server")
			}
		} else {
			log.Info(fmt.Sprintf("Starting HTTP server on %s", server.Addr))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal(err, "Could not start HTTP server")
			}
		}
	}()
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Warn("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	jobs.Stop(ctx)
	if err := server.Shutdown(ctx); err != nil {
		log.Fatal(err, "Server forced to shutdown")
	}
	log.Info("Server exiting")
}
