package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/tablekeep/tablekeep/internal/app"
	"github.com/tablekeep/tablekeep/internal/assignments"
	"github.com/tablekeep/tablekeep/internal/auth"
	"github.com/tablekeep/tablekeep/internal/authz"
	"github.com/tablekeep/tablekeep/internal/observability"
	"github.com/tablekeep/tablekeep/internal/platform/cache"
	"github.com/tablekeep/tablekeep/internal/platform/db"
	"github.com/tablekeep/tablekeep/internal/restaurants"
	"github.com/tablekeep/tablekeep/internal/roles"
	"github.com/tablekeep/tablekeep/internal/shared"
	"github.com/tablekeep/tablekeep/internal/users"
	"github.com/tablekeep/tablekeep/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "tablekeep_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	auditLogger := shared.NewAuditLogger(dbpool)
	metrics := observability.NewMetrics()

	authzStore := authz.NewPGStore(dbpool)
	catalog := authz.NewCatalogLoader(authzStore)
	resolver := authz.NewResolver(authzStore)
	locationResolver := authz.NewLocationResolver(resolver, authzStore)
	gate := authz.NewGate(metrics)
	authzMiddleware := authz.Middleware{Resolver: resolver, Logger: logger}

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, resolver, locationResolver, sessionManager, csrfManager, auditLogger)

	rolesService := roles.NewService(catalog)
	rolesHandler := roles.NewHandler(logger, rolesService)

	usersRepo := users.NewRepository(dbpool)
	usersService := users.NewService(usersRepo, gate, auditLogger)
	usersHandler := users.NewHandler(logger, usersService)

	restaurantsRepo := restaurants.NewRepository(dbpool)
	restaurantsService := restaurants.NewService(restaurantsRepo, gate, auditLogger)
	restaurantsHandler := restaurants.NewHandler(logger, restaurantsService)

	assignmentsRepo := assignments.NewRepository(dbpool)
	assignmentsService := assignments.NewService(assignmentsRepo, authzStore, catalog, gate, auditLogger)
	assignmentsHandler := assignments.NewHandler(logger, assignmentsService, usersService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessionManager,
		CSRFManager:        csrfManager,
		AuthzMiddleware:    authzMiddleware,
		AuthHandler:        authHandler,
		RolesHandler:       rolesHandler,
		UsersHandler:       usersHandler,
		RestaurantsHandler: restaurantsHandler,
		AssignmentsHandler: assignmentsHandler,
		JobsHandler:        jobHandler,
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
