package bootstrap

import (
	"github.com/bamul/packline-analytics/config"
	"github.com/bamul/packline-analytics/internal/production/repository"
	"github.com/bamul/packline-analytics/internal/production/service"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// BuildQueries wires the query service over store, cached when client is set
func BuildQueries(cfg *config.Config, store repository.EventStore, client *redis.Client, logger *zap.Logger) service.Queries {
	svc := service.NewQueryService(store, service.Options{
		Location:        cfg.App.Location,
		ListLimit:       cfg.Analytics.ListLimit,
		CapacityPerHour: cfg.Analytics.CapacityPerHour,
		Volumes:         cfg.Analytics.PacketVolumes,
		DefaultLines:    cfg.Analytics.DefaultLines,
	}, logger.Named("queries"))

	if client == nil {
		return svc
	}
	return service.NewCachedQueries(svc, client, cfg.Redis.CacheTTL, cfg.App.Location, logger.Named("cache"))
}
