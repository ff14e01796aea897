// Paperbound - Serial Fiction and Comic Publishing Platform
// Copyright 2026 Paperbound Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paperbound/paperbound

// Package main is the entry point for the Paperbound server.
//
// Paperbound is a self-hosted publishing platform for serial fiction
// and comics: authors post works chapter by chapter, readers follow
// them with bookmarks, ratings, and comments, and paid membership
// tiers gate early access to new chapters.
//
// # Startup order
//
//  1. Configuration: koanf v2 layering defaults, config file, and
//     environment variables
//  2. Database: DuckDB storage for accounts, works, chapters, and the
//     social graph
//  3. Auth: session store (memory or Badger), JWT manager, login
//     lockout, optional OIDC relying party
//  4. Authorization: Casbin RBAC enforcer with the embedded policy
//  5. Events: watermill bus (in-process gochannel, or NATS JetStream
//     when configured) with the notification fan-out router
//  6. Supervision: a suture tree running the websocket hub, event
//     router, digest scheduler, session cleanup, and HTTP server
//
// # Shutdown
//
// SIGINT/SIGTERM cancel the supervision context. The HTTP server
// drains in-flight requests (10s budget), the hub closes its clients,
// and the event bus flushes before the process exits.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	_ "github.com/paperbound/paperbound/docs" // swagger docs registration

	"github.com/paperbound/paperbound/internal/api"
	"github.com/paperbound/paperbound/internal/auth"
	"github.com/paperbound/paperbound/internal/authz"
	"github.com/paperbound/paperbound/internal/billing"
	"github.com/paperbound/paperbound/internal/config"
	"github.com/paperbound/paperbound/internal/database"
	"github.com/paperbound/paperbound/internal/digest"
	"github.com/paperbound/paperbound/internal/events"
	"github.com/paperbound/paperbound/internal/logging"
	"github.com/paperbound/paperbound/internal/media"
	"github.com/paperbound/paperbound/internal/middleware"
	"github.com/paperbound/paperbound/internal/models"
	"github.com/paperbound/paperbound/internal/supervisor"
	"github.com/paperbound/paperbound/internal/supervisor/services"
	ws "github.com/paperbound/paperbound/internal/websocket"
)

// @title Paperbound API
// @version 1.0
// @description Serial fiction and comic publishing platform.
// @license.name AGPL-3.0-or-later
// @BasePath /api/v1

//nolint:gocyclo // sequential startup wiring
func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("environment", cfg.Server.Environment).
		Str("db_path", cfg.Database.Path).
		Bool("nats", cfg.Events.NATSEnabled).
		Bool("billing", cfg.Billing.Enabled).
		Msg("Starting Paperbound")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	mediaStore, err := media.NewStore(cfg.Media)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize media storage")
	}

	// Auth stack: JWT signing, session persistence, login lockout.
	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize JWT manager")
	}

	sessionFactory, err := auth.NewSessionStoreFactory(&cfg.Security)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize session store")
	}
	defer func() {
		if err := sessionFactory.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing session store")
		}
	}()
	sessions := sessionFactory.CreateStore()

	lockout := auth.NewLockoutManager(
		auth.NewMemoryLockoutStore(),
		cfg.Security.LockoutThreshold,
		cfg.Security.LockoutDuration,
	)

	authService := auth.NewService(db, sessions, jwtManager, lockout)
	authMW := auth.NewMiddleware(jwtManager, sessions)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := ensureAdmin(ctx, db, &cfg.Security); err != nil {
		logging.Fatal().Err(err).Msg("Failed to bootstrap admin account")
	}

	var oidcClient *auth.OIDCClient
	if cfg.Security.OIDC.Enabled {
		oidcClient, err = auth.NewOIDCClient(ctx, cfg.Security.OIDC)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to initialize OIDC client")
		}
		logging.Info().Str("issuer", cfg.Security.OIDC.IssuerURL).Msg("OIDC login enabled")
	}

	enforcer, err := authz.NewEnforcer(cfg.Security.Casbin)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize RBAC enforcer")
	}
	authzMW := authz.NewMiddleware(enforcer)

	billingClient := billing.NewClient(cfg.Billing)
	if billingClient.Enabled() {
		logging.Info().Str("provider", cfg.Billing.ProviderURL).Msg("Billing provider configured")
	} else {
		logging.Info().Msg("Billing disabled; paid tiers unavailable")
	}

	// Event bus and the notification fan-out router.
	bus, err := events.NewBus(cfg.Events)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize event bus")
	}
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing event bus")
		}
	}()

	publisher := events.NewPublisher(bus.Publisher())

	eventRouter, err := events.NewRouter(cfg.Events, bus.Subscriber())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize event router")
	}

	wsHub := ws.NewHub()
	events.NewHandlers(db, wsHub).Register(eventRouter)

	scheduler := digest.NewScheduler(db, publisher, wsHub, cfg.Digest)

	// HTTP surface.
	perfMon := middleware.NewPerformanceMonitor(1000)

	handler := api.NewHandler(api.HandlerConfig{
		DB:        db,
		Config:    cfg,
		Auth:      authService,
		Media:     mediaStore,
		Billing:   billingClient,
		Publisher: publisher,
		WSHub:     wsHub,
		OIDC:      oidcClient,
		PerfMon:   perfMon,
	})

	chiMWConfig := api.DefaultChiMiddlewareConfig()
	chiMWConfig.CORSAllowedOrigins = cfg.Security.CORSOrigins
	chiMWConfig.RateLimitDisabled = cfg.Security.RateLimitDisabled
	chiMW := api.NewChiMiddleware(chiMWConfig)

	mux := api.NewRouter(handler, authMW, authzMW, chiMW).SetupChi()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       2 * time.Minute,
	}

	// Supervision tree.
	tree, err := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervision tree")
	}

	tree.AddMessagingService(services.NewWebSocketHubService(wsHub))
	tree.AddMessagingService(services.NewEventRouterService(eventRouter))
	// The scheduler always runs: it releases scheduled chapters and
	// expires lapsed subscriptions on every sweep. Digest delivery
	// itself is gated inside the scheduler by cfg.Digest.Enabled.
	tree.AddJobService(services.NewDigestSchedulerService(scheduler))
	tree.AddJobService(services.NewSessionCleanupService(sessions, time.Hour))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	lockout.StartCleanupRoutine(ctx, time.Hour)

	// Graceful shutdown on SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Shutting down")
		cancel()
	}()

	logging.Info().Str("addr", addr).Msg("Paperbound listening")

	if err := tree.Serve(ctx); err != nil && ctx.Err() == nil {
		logging.Fatal().Err(err).Msg("Supervision tree failed")
	}

	if report, err := tree.UnstoppedServiceReport(); err == nil && len(report) > 0 {
		for _, svc := range report {
			logging.Warn().Str("service", svc.Name).Msg("Service did not stop within timeout")
		}
	}

	logging.Info().Msg("Paperbound stopped")
}

// ensureAdmin creates or repairs the bootstrap admin account named in
// the configuration. A no-op when no admin credentials are configured
// or the account already holds the admin role.
func ensureAdmin(ctx context.Context, db *database.DB, sec *config.SecurityConfig) error {
	if sec.AdminUsername == "" || sec.AdminPassword == "" {
		return nil
	}

	existing, err := db.GetUserByUsername(ctx, sec.AdminUsername)
	if err != nil {
		return err
	}
	if existing != nil {
		if existing.Role != models.RoleAdmin {
			logging.Warn().Str("username", sec.AdminUsername).Msg("Promoting configured admin account")
			return db.UpdateUserRole(ctx, existing.ID, models.RoleAdmin)
		}
		return nil
	}

	if err := config.AdminPasswordPolicy().ValidateWithError(sec.AdminPassword, sec.AdminUsername); err != nil {
		return fmt.Errorf("admin password rejected: %w", err)
	}

	hash, err := auth.HashPassword(sec.AdminPassword)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	admin := &models.User{
		ID:           uuid.New().String(),
		Username:     sec.AdminUsername,
		Email:        sec.AdminEmail,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
		Tier:         models.TierPremium,
		Status:       models.UserStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := db.CreateUser(ctx, admin); err != nil {
		return err
	}

	logging.Info().Str("username", sec.AdminUsername).Msg("Bootstrap admin account created")
	return nil
}
