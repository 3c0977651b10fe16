package service

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/bamul/packline-analytics/internal/production/bucketing"
	"github.com/bamul/packline-analytics/internal/production/domain"
	"github.com/bamul/packline-analytics/internal/production/metrics"
	"github.com/bamul/packline-analytics/internal/production/repository"
	"go.uber.org/zap"
)

// Queries is the read surface consumed by the HTTP layer
type Queries interface {
	ListToday(ctx context.Context, t domain.EventType) (domain.ListResult, error)
	HourlySeries(ctx context.Context, t domain.EventType, keys []string) ([]domain.Bucket, error)
	DimensionSummary(ctx context.Context, t domain.EventType, dimension string) ([]domain.GroupSummary, error)
	DashboardStats(ctx context.Context) (domain.Snapshot, error)
	LatestDerivedCount(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
}

// Options configures a QueryService
type Options struct {
	Location        *time.Location
	ListLimit       int
	CapacityPerHour int
	Volumes         metrics.VolumeTable
	// DefaultLines seeds the hourly series by line when a day has no events yet
	DefaultLines []string
	Now          func() time.Time
}

// QueryService answers every query from a single fetch of today's events
type QueryService struct {
	store  repository.EventStore
	opts   Options
	logger *zap.Logger
}

// NewQueryService creates a new QueryService
func NewQueryService(store repository.EventStore, opts Options, logger *zap.Logger) *QueryService {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.ListLimit <= 0 {
		opts.ListLimit = 1000
	}
	if opts.CapacityPerHour <= 0 {
		opts.CapacityPerHour = 150
	}
	if opts.Volumes == nil {
		opts.Volumes = metrics.DefaultVolumes()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &QueryService{store: store, opts: opts, logger: logger}
}

// Today returns the current calendar day in the configured location
func (s *QueryService) Today() domain.Range {
	return domain.DayOf(s.opts.Now(), s.opts.Location)
}

func (s *QueryService) fetchToday(ctx context.Context, t domain.EventType) ([]domain.Event, domain.Range, error) {
	day := s.Today()
	start := time.Now()
	events, err := repository.Collect(s.store.FetchEvents(ctx, domain.Filter{Type: t, Range: day}))
	if err != nil {
		return nil, day, err
	}
	s.logger.Debug("fetched events",
		zap.String("type", string(t)),
		zap.String("day", day.Start.Format(time.DateOnly)),
		zap.Int("count", len(events)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return events, day, nil
}

// ListToday returns today's events newest first, capped at ListLimit
func (s *QueryService) ListToday(ctx context.Context, t domain.EventType) (domain.ListResult, error) {
	if err := domain.CheckDimensions(t); err != nil {
		return domain.ListResult{}, err
	}

	day := s.Today()
	// one row past the cap tells us whether the list was cut
	events, err := repository.Collect(s.store.FetchEvents(ctx, domain.Filter{
		Type:  t,
		Range: day,
		Order: domain.OrderDesc,
		Limit: s.opts.ListLimit + 1,
	}))
	if err != nil {
		return domain.ListResult{}, err
	}

	res := domain.ListResult{Items: events}
	if len(events) > s.opts.ListLimit {
		res.Items = events[:s.opts.ListLimit]
		res.Truncated = true
	}
	if res.Items == nil {
		res.Items = []domain.Event{}
	}
	return res, nil
}

// HourlySeries buckets today's events by hour and the given dimensions
func (s *QueryService) HourlySeries(ctx context.Context, t domain.EventType, keys []string) ([]domain.Bucket, error) {
	if err := domain.CheckDimensions(t, keys...); err != nil {
		return nil, err
	}

	events, day, err := s.fetchToday(ctx, t)
	if err != nil {
		return nil, err
	}
	return bucketing.Hourly(events, day, keys, s.defaultKeys(keys))
}

func (s *QueryService) defaultKeys(keys []string) []domain.DimensionKey {
	if !slices.Contains(keys, domain.DimLine) {
		return nil
	}
	defaults := make([]domain.DimensionKey, 0, len(s.opts.DefaultLines))
	for _, line := range s.opts.DefaultLines {
		values := make([]*string, len(keys))
		for i, k := range keys {
			if k == domain.DimLine {
				values[i] = domain.StrPtr(line)
			}
		}
		defaults = append(defaults, domain.NewDimensionKey(keys, values))
	}
	return defaults
}

// DimensionSummary groups today's events by one dimension, largest sum first
func (s *QueryService) DimensionSummary(ctx context.Context, t domain.EventType, dimension string) ([]domain.GroupSummary, error) {
	if err := domain.CheckDimensions(t, dimension); err != nil {
		return nil, err
	}

	events, _, err := s.fetchToday(ctx, t)
	if err != nil {
		return nil, err
	}
	return bucketing.Summarize(events, dimension)
}

// DashboardStats derives all tray statistics from one fetch, so the
// fields always describe the same set of rows.
func (s *QueryService) DashboardStats(ctx context.Context) (domain.Snapshot, error) {
	events, _, err := s.fetchToday(ctx, domain.EventTray)
	if err != nil {
		return domain.Snapshot{}, err
	}
	snap, err := metrics.Derive(events, metrics.Config{
		ActiveDimension: domain.DimLine,
		CapacityPerHour: s.opts.CapacityPerHour,
		Volumes:         s.opts.Volumes,
	})
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("derive dashboard stats: %w", err)
	}
	return snap, nil
}

// LatestDerivedCount returns the derived packet count of today's most
// recent optical count window, 0 when none exists.
func (s *QueryService) LatestDerivedCount(ctx context.Context) (int64, error) {
	events, err := repository.Collect(s.store.FetchEvents(ctx, domain.Filter{
		Type:  domain.EventOpticalCount,
		Range: s.Today(),
		Order: domain.OrderDesc,
		Limit: 1,
	}))
	if err != nil {
		return 0, err
	}
	if len(events) == 0 {
		return 0, nil
	}
	return events[0].Counters[domain.CounterDerived], nil
}

func (s *QueryService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}
