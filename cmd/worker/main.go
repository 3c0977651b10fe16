package main

import (
	"context"
	"log"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/bamul/packline-analytics/config"
	"github.com/bamul/packline-analytics/internal/bootstrap"
	"github.com/bamul/packline-analytics/internal/production/domain"
	"github.com/bamul/packline-analytics/internal/production/repository"
	"github.com/bamul/packline-analytics/internal/production/rollup"
	"go.uber.org/zap"
)

const usage = "usage: worker rollup [YYYY-MM-DD] | worker migrate"

func main() {
	if len(os.Args) < 2 {
		log.Fatal(usage)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := bootstrap.NewLogger(cfg.App.LogLevel, cfg.App.LogFormat, "packline-worker")
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	switch os.Args[1] {
	case "migrate":
		db, err := bootstrap.OpenDB(ctx, bootstrap.DBOptions{Config: &cfg.Database, Migrate: true}, logger)
		if err != nil {
			logger.Fatal("migrate failed", zap.Error(err))
		}
		db.Close()
		logger.Info("schema up to date")
	case "rollup":
		day, err := rollupDay(os.Args[2:], cfg.App.Location)
		if err != nil {
			logger.Fatal("invalid day", zap.Error(err))
		}
		db, err := bootstrap.OpenDB(ctx, bootstrap.DBOptions{Config: &cfg.Database}, logger)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer db.Close()

		store := repository.NewSQLEventStore(db, logger.Named("store"))
		if _, err := rollup.NewWriter(store, db, "packline-worker", logger).Run(ctx, day); err != nil {
			logger.Fatal("rollup failed", zap.Error(err))
		}
	default:
		log.Fatalf("unknown command: %s\n%s", os.Args[1], usage)
	}
}

// rollupDay parses the optional day argument, defaulting to yesterday
func rollupDay(args []string, loc *time.Location) (domain.Range, error) {
	if len(args) == 0 {
		return rollup.PreviousDay(time.Now(), loc), nil
	}
	return domain.ParseDay(args[0], loc)
}
