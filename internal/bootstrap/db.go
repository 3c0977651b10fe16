package bootstrap

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/bamul/packline-analytics/config"
	"github.com/bamul/packline-analytics/internal/storage/postgres"
	"go.uber.org/zap"
)

type DBOptions struct {
	Config  *config.DatabaseConfig
	Migrate bool
}

func OpenDB(ctx context.Context, opt DBOptions, logger *zap.Logger) (*sql.DB, error) {
	if opt.Config == nil {
		return nil, fmt.Errorf("database config is not set")
	}

	db, err := postgres.NewConnection(ctx, opt.Config)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}

	if opt.Migrate {
		if err := postgres.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("db migrate: %w", err)
		}
	}

	logger.Info("database connected",
		zap.String("driver", opt.Config.Driver),
		zap.String("host", opt.Config.Host),
		zap.String("database", opt.Config.Name),
	)
	return db, nil
}
