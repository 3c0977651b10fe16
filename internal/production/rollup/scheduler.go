package rollup

import (
	"context"
	"fmt"
	"time"

	"github.com/bamul/packline-analytics/internal/production/domain"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultSpec runs shortly after local midnight (seconds field first)
const DefaultSpec = "0 5 0 * * *"

// Runner rolls up one day
type Runner interface {
	Run(ctx context.Context, day domain.Range) (Result, error)
}

// Scheduler runs the rollup for the previous calendar day on a cron spec
type Scheduler struct {
	cron    *cron.Cron
	runner  Runner
	loc     *time.Location
	timeout time.Duration
	logger  *zap.Logger
}

func NewScheduler(spec string, loc *time.Location, runner Runner, logger *zap.Logger) (*Scheduler, error) {
	if spec == "" {
		spec = DefaultSpec
	}
	if loc == nil {
		loc = time.UTC
	}
	s := &Scheduler{
		cron:    cron.New(cron.WithSeconds(), cron.WithLocation(loc)),
		runner:  runner,
		loc:     loc,
		timeout: 5 * time.Minute,
		logger:  logger,
	}
	if _, err := s.cron.AddFunc(spec, func() { _ = s.RunPrevious(context.Background(), time.Now()) }); err != nil {
		return nil, fmt.Errorf("failed to create rollup cron job: %w", err)
	}
	return s, nil
}

// Start begins running jobs in the background
func (s *Scheduler) Start() {
	s.logger.Info("rollup scheduler started", zap.Int("jobs", len(s.cron.Entries())))
	s.cron.Start()
}

// Stop waits for a running job to finish
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("rollup scheduler stopped")
}

// PreviousDay returns the calendar day before the one containing now
func PreviousDay(now time.Time, loc *time.Location) domain.Range {
	today := domain.DayOf(now, loc)
	return domain.DayOf(today.Start.Add(-time.Nanosecond), loc)
}

// RunPrevious rolls up the day before now
func (s *Scheduler) RunPrevious(ctx context.Context, now time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	day := PreviousDay(now, s.loc)
	if _, err := s.runner.Run(ctx, day); err != nil {
		s.logger.Error("rollup failed", zap.String("day", day.Start.Format(time.DateOnly)), zap.Error(err))
		return err
	}
	return nil
}
