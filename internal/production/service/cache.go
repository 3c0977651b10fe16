package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bamul/packline-analytics/internal/production/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const cacheKeyPrefix = "analytics:" // analytics:{YYYY-MM-DD}:{query}

var cacheRequests = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "analytics_cache_requests_total",
		Help: "Query cache lookups by result.",
	},
	[]string{"query", "result"},
)

func init() {
	prometheus.MustRegister(cacheRequests)
}

// CachedQueries serves Queries results from Redis. Keys carry the calendar
// date and expire no later than the next local midnight, so a new day
// never reads the previous day's results.
type CachedQueries struct {
	next   Queries
	client *redis.Client
	ttl    time.Duration
	loc    *time.Location
	now    func() time.Time
	group  singleflight.Group
	logger *zap.Logger
}

// NewCachedQueries wraps next with a cache of the given TTL
func NewCachedQueries(next Queries, client *redis.Client, ttl time.Duration, loc *time.Location, logger *zap.Logger) *CachedQueries {
	if loc == nil {
		loc = time.UTC
	}
	return &CachedQueries{
		next:   next,
		client: client,
		ttl:    ttl,
		loc:    loc,
		now:    time.Now,
		logger: logger,
	}
}

// WithClock replaces the clock used for day keys and TTLs
func (c *CachedQueries) WithClock(now func() time.Time) *CachedQueries {
	c.now = now
	return c
}

func (c *CachedQueries) key(day domain.Range, query string) string {
	return cacheKeyPrefix + day.Start.Format(time.DateOnly) + ":" + query
}

// cached looks up query in Redis and falls back to load. Redis failures
// are logged and never surface to the caller.
func cached[T any](ctx context.Context, c *CachedQueries, query string, load func() (T, error)) (T, error) {
	now := c.now()
	day := domain.DayOf(now, c.loc)
	key := c.key(day, query)
	label := strings.SplitN(query, ":", 2)[0]

	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var v T
		if err := json.Unmarshal(raw, &v); err == nil {
			cacheRequests.WithLabelValues(label, "hit").Inc()
			return v, nil
		}
		c.logger.Warn("discarding corrupt cache entry", zap.String("key", key))
	case errors.Is(err, redis.Nil):
	default:
		cacheRequests.WithLabelValues(label, "error").Inc()
		c.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
	}
	cacheRequests.WithLabelValues(label, "miss").Inc()

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		return load()
	})
	if err != nil {
		var zero T
		return zero, err
	}
	res := v.(T)

	ttl := min(c.ttl, day.End.Sub(now))
	if ttl <= 0 {
		return res, nil
	}
	data, err := json.Marshal(res)
	if err != nil {
		c.logger.Warn("cache encode failed", zap.String("key", key), zap.Error(err))
		return res, nil
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		c.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
	return res, nil
}

func (c *CachedQueries) ListToday(ctx context.Context, t domain.EventType) (domain.ListResult, error) {
	return cached(ctx, c, fmt.Sprintf("list:%s", t), func() (domain.ListResult, error) {
		return c.next.ListToday(ctx, t)
	})
}

func (c *CachedQueries) HourlySeries(ctx context.Context, t domain.EventType, keys []string) ([]domain.Bucket, error) {
	return cached(ctx, c, fmt.Sprintf("hourly:%s:%s", t, strings.Join(keys, ",")), func() ([]domain.Bucket, error) {
		return c.next.HourlySeries(ctx, t, keys)
	})
}

func (c *CachedQueries) DimensionSummary(ctx context.Context, t domain.EventType, dimension string) ([]domain.GroupSummary, error) {
	return cached(ctx, c, fmt.Sprintf("summary:%s:%s", t, dimension), func() ([]domain.GroupSummary, error) {
		return c.next.DimensionSummary(ctx, t, dimension)
	})
}

func (c *CachedQueries) DashboardStats(ctx context.Context) (domain.Snapshot, error) {
	return cached(ctx, c, "stats", func() (domain.Snapshot, error) {
		return c.next.DashboardStats(ctx)
	})
}

func (c *CachedQueries) LatestDerivedCount(ctx context.Context) (int64, error) {
	return cached(ctx, c, "total-packets", func() (int64, error) {
		return c.next.LatestDerivedCount(ctx)
	})
}

// Ping always reaches the store
func (c *CachedQueries) Ping(ctx context.Context) error {
	return c.next.Ping(ctx)
}
