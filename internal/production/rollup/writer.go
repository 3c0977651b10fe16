package rollup

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/bamul/packline-analytics/internal/production/bucketing"
	"github.com/bamul/packline-analytics/internal/production/domain"
	"github.com/bamul/packline-analytics/internal/production/repository"
	"go.uber.org/zap"
)

// target describes one daily history table
type target struct {
	table       string
	eventType   domain.EventType
	dimensions  []string
	keyColumns  []string
	sumColumn   string
	countColumn string
}

var targets = []target{
	{
		table:      "optical_history_by_machine",
		eventType:  domain.EventOpticalCount,
		dimensions: []string{domain.DimMachine},
		keyColumns: []string{"machine_id"},
		sumColumn:  "total_count",
	},
	{
		table:      "optical_history_by_assembly",
		eventType:  domain.EventOpticalCount,
		dimensions: []string{domain.DimLine},
		keyColumns: []string{"assembly_line"},
		sumColumn:  "total_count",
	},
	{
		table:       "tray_history_by_conveyor",
		eventType:   domain.EventTray,
		dimensions:  []string{domain.DimLine},
		keyColumns:  []string{"conveyor_belt_number"},
		sumColumn:   "total_identified_packets",
		countColumn: "tray_count",
	},
	{
		table:       "tray_history_by_color_type",
		eventType:   domain.EventTray,
		dimensions:  []string{domain.DimLine, domain.DimColor, domain.DimPacketType},
		keyColumns:  []string{"conveyor_belt_number", "identified_color", "type"},
		sumColumn:   "total_identified_packets",
		countColumn: "count",
	},
}

func (t target) upsertSQL() string {
	cols := append([]string{"day"}, t.keyColumns...)
	cols = append(cols, t.sumColumn)
	if t.countColumn != "" {
		cols = append(cols, t.countColumn)
	}
	cols = append(cols, "calculated_by")

	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	set := []string{fmt.Sprintf("%s = EXCLUDED.%s", t.sumColumn, t.sumColumn)}
	if t.countColumn != "" {
		set = append(set, fmt.Sprintf("%s = EXCLUDED.%s", t.countColumn, t.countColumn))
	}
	set = append(set, "calculated_by = EXCLUDED.calculated_by", "updated_at = NOW()")

	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s",
		t.table,
		strings.Join(cols, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(append([]string{"day"}, t.keyColumns...), ", "),
		strings.Join(set, ", "),
	)
}

// Writer folds one calendar day of events into the daily history tables.
// Rows are upserted on (day, key), so rerunning a day replaces its totals.
type Writer struct {
	store        repository.EventStore
	db           *sql.DB
	calculatedBy string
	logger       *zap.Logger
}

func NewWriter(store repository.EventStore, db *sql.DB, calculatedBy string, logger *zap.Logger) *Writer {
	if calculatedBy == "" {
		calculatedBy = "rollup"
	}
	return &Writer{store: store, db: db, calculatedBy: calculatedBy, logger: logger}
}

// Result counts the rows written per table
type Result map[string]int

// Run aggregates day and writes every history table in one transaction
func (w *Writer) Run(ctx context.Context, day domain.Range) (Result, error) {
	start := time.Now()

	events := make(map[domain.EventType][]domain.Event, 2)
	for _, t := range targets {
		if _, ok := events[t.eventType]; ok {
			continue
		}
		batch, err := repository.Collect(w.store.FetchEvents(ctx, domain.Filter{Type: t.eventType, Range: day}))
		if err != nil {
			return nil, fmt.Errorf("failed to fetch %s events: %w", t.eventType, err)
		}
		events[t.eventType] = batch
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin rollup transaction: %w", err)
	}
	defer tx.Rollback()

	dayArg := day.Start.Format(time.DateOnly)
	res := make(Result, len(targets))
	for _, t := range targets {
		// a single window spanning the whole day, which may be 23 or 25 hours long
		buckets, err := bucketing.Bucket(events[t.eventType], day, day.End.Sub(day.Start), t.dimensions, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to aggregate %s: %w", t.table, err)
		}

		query := t.upsertSQL()
		for _, b := range buckets {
			args := []any{dayArg}
			for _, d := range t.dimensions {
				args = append(args, nullable(b.Key.Value(d)))
			}
			args = append(args, b.Sum)
			if t.countColumn != "" {
				args = append(args, b.Count)
			}
			args = append(args, w.calculatedBy)

			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return nil, fmt.Errorf("failed to upsert %s: %w", t.table, err)
			}
		}
		res[t.table] = len(buckets)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit rollup: %w", err)
	}

	w.logger.Info("rollup completed",
		zap.String("day", dayArg),
		zap.Any("rows", res),
		zap.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}

func nullable(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}
