package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/lucci-xyz/pilot/internal/config"
	"github.com/lucci-xyz/pilot/internal/handler"
	"github.com/lucci-xyz/pilot/internal/middleware"
	"github.com/lucci-xyz/pilot/internal/model"
	"github.com/lucci-xyz/pilot/internal/service"
	"github.com/lucci-xyz/pilot/internal/store"
)

var version = "dev"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatal().Err(err).Str("level", cfg.LogLevel).Msg("invalid log level")
	}
	zerolog.SetGlobalLevel(level)

	ctx := context.Background()

	if err := runMigrations(cfg); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create database pool")
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to reach database")
	}
	log.Info().Msg("connected to database")

	pg := store.NewPostgres(pool)

	authSvc := service.NewAuthService(pg, pg, cfg.SessionDuration)
	apiKeySvc := service.NewAPIKeyService(pg)
	projectSvc := service.NewProjectService(pg, pg, pg)
	agentSvc := service.NewAgentService(pg, pg, pg)
	fundingSvc := service.NewFundingService(pg, pg, pg)
	analyticsSvc := service.NewAnalyticsService(pg, pg, pg)

	loginLimiter := middleware.NewAuthAttemptLimiter(5, 5*time.Minute, 15*time.Minute)
	apiKeyLimiter := middleware.NewAuthAttemptLimiter(10, 5*time.Minute, 15*time.Minute)
	rateLimiter := middleware.NewRateLimiter(cfg.APIRateLimitMax, time.Duration(cfg.APIRateLimitWindow)*time.Second)

	router := newRouter(cfg, pg, authSvc, apiKeySvc, projectSvc, agentSvc, fundingSvc, analyticsSvc, loginLimiter, apiKeyLimiter, rateLimiter)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Port).Str("version", version).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func runMigrations(cfg *config.Config) error {
	m, err := migrate.New("file://"+cfg.MigrationsDir, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("init migrate: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

func newRouter(
	cfg *config.Config,
	pg *store.Postgres,
	authSvc *service.AuthService,
	apiKeySvc *service.APIKeyService,
	projectSvc *service.ProjectService,
	agentSvc *service.AgentService,
	fundingSvc *service.FundingService,
	analyticsSvc *service.AnalyticsService,
	loginLimiter *middleware.AuthAttemptLimiter,
	apiKeyLimiter *middleware.AuthAttemptLimiter,
	rateLimiter *middleware.RateLimiter,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.Metrics)

	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Method(http.MethodGet, "/healthz", handler.NewHealthHandler(pg, version))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Browser form actions: form-encoded, redirect responses.
	r.Method(http.MethodPost, "/signup", handler.NewSignupHandler(authSvc, cfg.CookieSecure))
	r.Method(http.MethodPost, "/login", handler.NewLoginHandler(authSvc, loginLimiter, cfg.CookieSecure))
	r.Method(http.MethodPost, "/logout", handler.NewLogoutHandler(authSvc, cfg.CookieSecure))

	// Session-authenticated JSON API.
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RequireJSON)
		r.Use(middleware.SessionAuth(authSvc, ""))

		r.Method(http.MethodGet, "/me", handler.NewMeHandler())

		r.Method(http.MethodGet, "/projects", handler.NewListProjectsHandler(projectSvc))
		r.Method(http.MethodPost, "/projects", handler.NewCreateProjectHandler(projectSvc))
		r.Method(http.MethodGet, "/projects/{id}", handler.NewGetProjectHandler(projectSvc))
		r.Method(http.MethodPatch, "/projects/{id}", handler.NewUpdateProjectHandler(projectSvc))
		r.Method(http.MethodDelete, "/projects/{id}", handler.NewDeleteProjectHandler(projectSvc))
		r.Method(http.MethodPost, "/projects/{id}/fund", handler.NewFundProjectHandler(fundingSvc))
		r.Method(http.MethodGet, "/projects/{id}/activity", handler.NewProjectActivityHandler(analyticsSvc))
		r.Method(http.MethodGet, "/projects/{id}/agents", handler.NewListAgentsHandler(agentSvc))
		r.Method(http.MethodPost, "/projects/{id}/agents", handler.NewCreateAgentHandler(agentSvc))

		r.Method(http.MethodGet, "/agents/{id}", handler.NewGetAgentHandler(agentSvc))
		r.Method(http.MethodPatch, "/agents/{id}", handler.NewUpdateAgentHandler(agentSvc))
		r.Method(http.MethodDelete, "/agents/{id}", handler.NewDeleteAgentHandler(agentSvc))
		r.Method(http.MethodPut, "/agents/{id}/budget", handler.NewUpdateBudgetHandler(agentSvc))
		r.Method(http.MethodGet, "/agents/{id}/performance", handler.NewAgentPerformanceHandler(analyticsSvc))

		r.Method(http.MethodGet, "/keys", handler.NewListAPIKeysHandler(apiKeySvc))
		r.Method(http.MethodPost, "/keys", handler.NewCreateAPIKeyHandler(apiKeySvc))
		r.Method(http.MethodDelete, "/keys/{id}", handler.NewDeleteAPIKeyHandler(apiKeySvc))

		r.Method(http.MethodGet, "/stats", handler.NewStatsHandler(analyticsSvc))
		r.Method(http.MethodGet, "/spend-chart", handler.NewSpendChartHandler(analyticsSvc))
		r.Method(http.MethodGet, "/comparison", handler.NewComparisonHandler(analyticsSvc))
		r.Method(http.MethodGet, "/activity", handler.NewUserActivityHandler(analyticsSvc))
	})

	// API-key-authenticated machine surface.
	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.RequireJSON)
		r.Use(middleware.APIKeyAuth(apiKeySvc, apiKeyLimiter))
		r.Use(middleware.RateLimitMiddleware(rateLimiter))

		r.With(middleware.RequirePermission(model.PermissionWrite)).
			Method(http.MethodPost, "/events", handler.NewRecordSpendHandler(fundingSvc))
		r.With(middleware.RequirePermission(model.PermissionRead)).
			Method(http.MethodGet, "/usage", handler.NewKeyUsageHandler())
	})

	return r
}
