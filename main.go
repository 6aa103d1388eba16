package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/khabaroff/storefront-admin/src/app"
	"github.com/khabaroff/storefront-admin/src/config"
	"github.com/khabaroff/storefront-admin/src/handlers"
	"github.com/khabaroff/storefront-admin/src/logging"
	"github.com/khabaroff/storefront-admin/src/middleware"
	"github.com/rs/zerolog/log"
)

const (
	serviceName = "storefront-admin"
	version     = "1.0.0"
)

func main() {
	// .env is optional; real environment variables win
	envErr := godotenv.Load()

	cfg := config.Load()

	logging.Setup(logging.Config{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Service: serviceName,
	})
	if envErr != nil {
		log.Debug().Msg("no .env file found, relying on environment")
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if os.Getenv("JWT_SECRET") == "" {
		log.Warn().Msg("JWT_SECRET not set; using a random secret, sessions will not survive a restart")
	}

	log.Info().
		Int("port", cfg.Port).
		Str("store", cfg.StoreDriver).
		Str("role_source", cfg.SessionRoleSource).
		Dur("session_ttl", cfg.SessionTTL).
		Str("log_level", cfg.LogLevel).
		Msg("starting server")

	store, err := app.OpenStore(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open credential store")
	}
	defer store.Close()

	revocations, err := app.OpenRevocations(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize session revocation")
	}
	defer revocations.Close()

	svc, err := app.NewServices(cfg, store.Repo, revocations.List)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize services")
	}

	// Seed accounts on first run (ADMIN_USERNAME/ADMIN_PASSWORD, ADMIN_SEED_FILE)
	seedCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := app.SeedAccounts(seedCtx, cfg, svc.Admins); err != nil {
		log.Error().Err(err).Msg("failed to seed admin accounts")
	}
	cancel()

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(gin.Recovery())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	checks := map[string]handlers.HealthCheck{"store": store.Health}
	if revocations.Health != nil {
		checks["redis"] = revocations.Health
	}

	loginLimiter := middleware.NewLoginRateLimiter(middleware.RateLimitConfig{
		RequestsPerMinute: cfg.LoginRatePerMinute,
		Burst:             cfg.LoginRateBurst,
	})

	handlers.Routes{
		Admin: handlers.NewAdminHandler(svc.Auth, svc.Resolver, svc.Authorizer, svc.Admins, handlers.CookieConfig{
			Secure: cfg.CookieSecure,
			Domain: cfg.CookieDomain,
		}),
		Health:       handlers.NewHealthHandler(serviceName, version, checks),
		Resolver:     svc.Resolver,
		Authorizer:   svc.Authorizer,
		LoginLimiter: loginLimiter,
	}.Register(router)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.Port).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	sig := <-sigChan

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}
	loginLimiter.Stop()

	log.Info().Msg("server shut down successfully")
}
