package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/bamul/packline-analytics/config"
	"github.com/bamul/packline-analytics/internal/bootstrap"
	"github.com/bamul/packline-analytics/internal/production/repository"
	"github.com/bamul/packline-analytics/internal/production/rollup"
	"go.uber.org/zap"
)

const serviceName = "packline-analytics"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := bootstrap.NewLogger(cfg.App.LogLevel, cfg.App.LogFormat, serviceName)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	bootstrap.SetGinMode(cfg.App.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := bootstrap.OpenDB(ctx, bootstrap.DBOptions{Config: &cfg.Database}, logger)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	redisClient := bootstrap.OpenRedis(ctx, cfg.Redis, logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	store := repository.NewSQLEventStore(db, logger.Named("store"))
	queries := bootstrap.BuildQueries(cfg, store, redisClient, logger)

	if cfg.RollupEnabled() {
		writer := rollup.NewWriter(store, db, serviceName, logger.Named("rollup"))
		scheduler, err := rollup.NewScheduler(cfg.Analytics.RollupCron, cfg.App.Location, writer, logger.Named("rollup"))
		if err != nil {
			logger.Fatal("invalid ROLLUP_CRON", zap.Error(err))
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	router := bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName:  serviceName,
		Version:      cfg.App.Version,
		Environment:  cfg.App.Environment,
		FrontendURL:  cfg.Server.FrontendURL,
		Location:     cfg.App.Location,
		Queries:      queries,
		RateLimitRPS: cfg.RateLimit.RPS,
		RateBurst:    cfg.RateLimit.Burst,
		Logger:       logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server listening",
			zap.String("addr", srv.Addr),
			zap.String("env", cfg.App.Environment),
			zap.String("timezone", cfg.App.Location.String()),
		)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown requested")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", zap.Error(err))
	}
	logger.Info("bye")
}
