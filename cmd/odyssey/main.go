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

	"github.com/odyssey-erp/odyssey-campus/internal/app"
	"github.com/odyssey-erp/odyssey-campus/internal/audit"
	audithttp "github.com/odyssey-erp/odyssey-campus/internal/audit/http"
	"github.com/odyssey-erp/odyssey-campus/internal/auth"
	"github.com/odyssey-erp/odyssey-campus/internal/observability"
	"github.com/odyssey-erp/odyssey-campus/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-campus/internal/platform/db"
	"github.com/odyssey-erp/odyssey-campus/internal/rbac"
	"github.com/odyssey-erp/odyssey-campus/internal/roles"
	"github.com/odyssey-erp/odyssey-campus/internal/shared"
	"github.com/odyssey-erp/odyssey-campus/internal/users"
	"github.com/odyssey-erp/odyssey-campus/jobs"
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

	// Revocation fails closed, so the API refuses to start without Redis.
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

	metrics := observability.NewMetrics()
	catalog := rbac.DefaultCatalog()

	tokens, err := auth.NewTokenIssuer(auth.TokenConfig{
		Secret:     cfg.JWTSecret,
		Issuer:     cfg.JWTIssuer,
		Audience:   cfg.JWTAudience,
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
		Leeway:     cfg.TokenLeeway,
	})
	if err != nil {
		logger.Error("init token issuer", slog.Any("error", err))
		os.Exit(1)
	}
	invalidations := auth.NewInvalidationStore(cache.NewRedisStore(redisClient, "authz:"), cfg.SessionInvalidationTTL, logger)
	auditLogger := shared.NewAuditLogger(dbpool)

	rbacMiddleware := rbac.Middleware{
		Verifier: tokens,
		Catalog:  catalog,
		Logger:   logger,
		Metrics:  metrics,
	}

	authService := auth.NewService(auth.ServiceDeps{
		Repo:          auth.NewRepository(dbpool),
		Tokens:        tokens,
		Invalidations: invalidations,
		Audit:         auditLogger,
		Metrics:       metrics,
		Logger:        logger,
	})
	authHandler := auth.NewHandler(logger, authService, rbacMiddleware, auth.CookieConfig{
		Name:   cfg.RefreshCookieName,
		Secure: cfg.IsProduction(),
	}, cfg.AuthRateLimit)

	rolesService := roles.NewService(roles.NewRepository(dbpool), catalog, invalidations, auditLogger, logger)
	rolesHandler := roles.NewHandler(logger, rolesService, rbacMiddleware)

	usersService := users.NewService(users.NewRepository(dbpool), invalidations, auditLogger, logger)
	usersHandler := users.NewHandler(logger, usersService, rbacMiddleware)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("job inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, jobClient, rbacMiddleware, logger)

	auditHandler := audithttp.NewHandler(logger, audit.NewService(audit.NewRepository(dbpool)), rbacMiddleware)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		AuthHandler:        authHandler,
		RolesHandler:       rolesHandler,
		UsersHandler:       usersHandler,
		PermissionsHandler: rbac.NewPermissionsHandler(catalog, rbacMiddleware),
		JobHandler:         jobHandler,
		AuditHandler:       auditHandler,
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
