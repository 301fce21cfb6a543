package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/stockroom-ims/stockroom/internal/app"
	"github.com/stockroom-ims/stockroom/internal/catalog"
	"github.com/stockroom-ims/stockroom/internal/docnum"
	"github.com/stockroom-ims/stockroom/internal/ledger"
	"github.com/stockroom-ims/stockroom/internal/movement"
	"github.com/stockroom-ims/stockroom/internal/observability"
	"github.com/stockroom-ims/stockroom/internal/platform/cache"
	"github.com/stockroom-ims/stockroom/internal/platform/db"
	"github.com/stockroom-ims/stockroom/internal/shared"
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

	catalogRepo := catalog.NewRepository(dbpool)
	var resolver movement.CatalogPort = catalogRepo

	redisClient, err := cache.New(ctx, cache.Config{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Warn("redis unavailable, catalog cache disabled", slog.Any("error", err))
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
		resolver = catalog.NewCachedResolver(catalogRepo, redisClient, cfg.CatalogCacheTTL)
	}

	auditLogger := shared.NewAuditLogger(dbpool)
	numbers := docnum.NewPgGenerator(dbpool)
	stockRepo := ledger.NewRepository(dbpool)

	movementRepo := movement.NewRepository(dbpool)
	movementService := movement.NewService(movementRepo, resolver, numbers, auditLogger, movement.ServiceConfig{
		RetryAttempts: cfg.MovementRetryAttempts,
	})

	metrics := observability.NewMetrics()
	movementHandler := movement.NewHandler(logger, movementService, stockRepo, metrics)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		MovementHandler: movementHandler,
		Metrics:         metrics,
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
