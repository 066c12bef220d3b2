// Copyright (c) 2026 Klokain. All rights reserved.

// Command api is the entry point for the osTicket API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect to PostgreSQL (pgxpool).
//  4. Connect to Redis.
//  5. Run database migrations (idempotent, owned tables only).
//  6. Build token service and OAuth2 provider registry.
//  7. Wire repositories, services, and HTTP handlers.
//  8. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/klokain/osticket-api/internal/api"
	"github.com/klokain/osticket-api/internal/auth"
	"github.com/klokain/osticket-api/internal/oauth2"
	"github.com/klokain/osticket-api/internal/platform/config"
	"github.com/klokain/osticket-api/internal/platform/constants"
	"github.com/klokain/osticket-api/internal/platform/migration"
	pgstore "github.com/klokain/osticket-api/internal/platform/postgres"
	redisstore "github.com/klokain/osticket-api/internal/platform/redis"
	"github.com/klokain/osticket-api/internal/platform/sec"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	rawLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Add global context to all log entries.
	log := rawLog.With(slog.String("app", constants.AppName))
	slog.SetDefault(log)

	log.Info("service_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		debugLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		log = debugLog.With(slog.String("app", constants.AppName))
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
	)

	// Root context for startup. Use a 30s deadline so misconfiguration is
	// caught quickly rather than hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// ── 3. PostgreSQL ─────────────────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	must(log, err, "connect to postgres")
	defer func() {
		log.Info("closing postgres pool")
		pool.Close()
	}()

	// ── 4. Redis ──────────────────────────────────────────────────────────
	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	must(log, err, "connect to redis")
	defer func() {
		log.Info("closing redis client")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis close error", slog.Any("error", cerr))
		}
	}()

	// ── 5. Migrations ─────────────────────────────────────────────────────
	must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

	// ── 6. Token Service & OAuth2 Providers ───────────────────────────────
	tokenService, err := sec.NewTokenService(cfg.JWTSecretKey, cfg.AccessTokenTTL(), cfg.RefreshTokenTTL())
	must(log, err, "initialize token service")

	providerRegistry := buildProviderRegistry(cfg, log)

	// ── 7. Health handlers (wired with real dependency checkers) ──────────
	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: func() error {
			return pgstore.Ping(context.Background(), pool)
		},
		CheckCache: func() error {
			return redisstore.Ping(context.Background(), rdb)
		},
	}, log)

	// ── 8. Domain Wiring ──────────────────────────────────────────────────
	staffRepository := auth.NewStaffRepository(pool)
	userRepository := auth.NewUserRepository(pool)
	apiKeyRepository := auth.NewAPIKeyRepository(pool)
	sessionRepository := auth.NewSessionRepository(pool)
	tokenRepository := auth.NewTokenRepository(pool)
	identityRepository := auth.NewExternalIdentityRepository(pool)
	stateRepository := auth.NewStateRepository(rdb)

	resolver := auth.NewResolver(tokenService, staffRepository, userRepository, apiKeyRepository, sessionRepository)
	mapper := auth.NewMapper(identityRepository, staffRepository, userRepository, cfg.AutoCreateUsersFromExternal)
	authService := auth.NewService(staffRepository, userRepository, tokenRepository, tokenService)
	authHandler := auth.NewHandler(authService, mapper, stateRepository, providerRegistry)

	// Purge expired token rows at startup and then on an hourly cadence so the
	// tracking table stays bounded.
	if err := authService.PurgeExpiredTokens(startupCtx); err != nil {
		log.Warn("token cleanup failed", slog.Any("error", err))
	}

	// ── 9. HTTP Server ────────────────────────────────────────────────────
	handlers := api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Auth:      authHandler,
	}

	serverCtx, serverCancel := context.WithCancel(context.Background())
	defer serverCancel()

	go func() {
		ticker := time.NewTicker(constants.TokenCleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-serverCtx.Done():
				return
			case <-ticker.C:
				if err := authService.PurgeExpiredTokens(serverCtx); err != nil {
					log.Warn("token cleanup failed", slog.Any("error", err))
				}
			}
		}
	}()

	server := api.NewServer(serverCtx, cfg, log, resolver, handlers)

	// ── 10. Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server startup error", slog.Any("error", err))
	}

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server stopped cleanly")
}

// buildProviderRegistry enables the OAuth2 providers selected by configuration.
//
// Redirect URLs follow the fixed callback route for each provider slug.
func buildProviderRegistry(cfg *config.Config, log *slog.Logger) *oauth2.Registry {
	redirectFor := func(provider string) string {
		base := strings.TrimRight(cfg.OAuth2RedirectBaseURL, "/")
		return base + "/api/v2/auth/oauth2/" + provider + "/callback"
	}

	var providers []oauth2.Provider

	if cfg.KeycloakEnabled {
		providers = append(providers, oauth2.NewKeycloakProvider(
			cfg.KeycloakServerURL,
			cfg.KeycloakRealm,
			cfg.KeycloakClientID,
			cfg.KeycloakClientSecret,
			redirectFor(oauth2.ProviderKeycloak),
		))
		log.Info("oauth2_provider_enabled", slog.String("provider", oauth2.ProviderKeycloak))
	}

	if cfg.MicrosoftEnabled {
		providers = append(providers, oauth2.NewMicrosoftProvider(
			cfg.MicrosoftTenantID,
			cfg.MicrosoftClientID,
			cfg.MicrosoftClientSecret,
			redirectFor(oauth2.ProviderMicrosoft),
		))
		log.Info("oauth2_provider_enabled", slog.String("provider", oauth2.ProviderMicrosoft))
	}

	return oauth2.NewRegistry(providers...)
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is intentionally limited to startup wiring. After startup, all errors
// must be returned and handled explicitly (never panic).
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
