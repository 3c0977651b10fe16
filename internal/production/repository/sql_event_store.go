package repository

import (
	"context"
	"database/sql"
	"fmt"
	"iter"
	"slices"
	"strings"

	"github.com/bamul/packline-analytics/internal/production/domain"
	"go.uber.org/zap"
)

// tableSpec maps one event type onto its table
type tableSpec struct {
	table      string
	id         string
	occurredAt string
	quantity   string
	dimensions []column
	counters   []column
}

type column struct {
	name   string // dimension or counter name
	column string
}

var trayTable = tableSpec{
	table:      "trays",
	id:         "name",
	occurredAt: "creation",
	quantity:   "identified_packet_count",
	dimensions: []column{
		{domain.DimLine, "conveyor_belt_number"},
		{domain.DimTray, "tray_id"},
		{domain.DimColor, "identified_color"},
		{domain.DimPacketType, "type"},
	},
}

var opticalCountTable = tableSpec{
	table:      "optical_counts",
	id:         "name",
	occurredAt: "from_time",
	quantity:   "counted_packets",
	dimensions: []column{
		{domain.DimLine, "assembly_line"},
		{domain.DimMachine, "machine_id"},
	},
	counters: []column{
		{domain.CounterDerived, "derived_count"},
		{domain.CounterIncremental, "incremental_counts"},
	},
}

func specFor(t domain.EventType) (tableSpec, error) {
	switch t {
	case domain.EventTray:
		return trayTable, nil
	case domain.EventOpticalCount:
		return opticalCountTable, nil
	}
	return tableSpec{}, fmt.Errorf("%w: %q", domain.ErrUnknownEventType, t)
}

func (s tableSpec) dimensionColumn(name string) (string, bool) {
	for _, d := range s.dimensions {
		if d.name == name {
			return d.column, true
		}
	}
	return "", false
}

// SQLEventStore reads trays and optical counts from PostgreSQL
type SQLEventStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLEventStore creates a new SQLEventStore
func NewSQLEventStore(db *sql.DB, logger *zap.Logger) *SQLEventStore {
	return &SQLEventStore{db: db, logger: logger}
}

// buildQuery renders the SELECT for a filter. Only known column names are
// interpolated; all values are bound.
func buildQuery(f domain.Filter) (tableSpec, string, []interface{}, error) {
	spec, err := specFor(f.Type)
	if err != nil {
		return tableSpec{}, "", nil, err
	}

	cols := []string{spec.id, spec.occurredAt, spec.quantity}
	for _, d := range spec.dimensions {
		cols = append(cols, d.column)
	}
	for _, c := range spec.counters {
		cols = append(cols, c.column)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s WHERE %s >= $1 AND %s < $2",
		strings.Join(cols, ", "), spec.table, spec.occurredAt, spec.occurredAt)
	args := []interface{}{f.Range.Start.UTC(), f.Range.End.UTC()}
	argIndex := 3

	names := make([]string, 0, len(f.Equals))
	for name := range f.Equals {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		col, ok := spec.dimensionColumn(name)
		if !ok {
			return tableSpec{}, "", nil, fmt.Errorf("%w: %q for %s", domain.ErrUnknownDimension, name, f.Type)
		}
		fmt.Fprintf(&b, " AND CAST(%s AS TEXT) = $%d", col, argIndex)
		args = append(args, f.Equals[name])
		argIndex++
	}

	dir := "ASC"
	if f.Order == domain.OrderDesc {
		dir = "DESC"
	}
	fmt.Fprintf(&b, " ORDER BY %s %s, %s %s", spec.occurredAt, dir, spec.id, dir)

	if f.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT $%d", argIndex)
		args = append(args, f.Limit)
	}

	return spec, b.String(), args, nil
}

// FetchEvents streams the rows matching f. Rows are scanned as the caller
// ranges over the sequence.
func (s *SQLEventStore) FetchEvents(ctx context.Context, f domain.Filter) iter.Seq2[domain.Event, error] {
	return func(yield func(domain.Event, error) bool) {
		spec, query, args, err := buildQuery(f)
		if err != nil {
			yield(domain.Event{}, err)
			return
		}

		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			s.logger.Error("event query failed", zap.String("table", spec.table), zap.Error(err))
			yield(domain.Event{}, domain.StoreError("query "+spec.table, err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			e, err := spec.scan(rows, f.Type)
			if err != nil {
				yield(domain.Event{}, err)
				return
			}
			if !yield(e, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			s.logger.Error("event iteration failed", zap.String("table", spec.table), zap.Error(err))
			yield(domain.Event{}, domain.StoreError("iterate "+spec.table, err))
		}
	}
}

func (spec tableSpec) scan(rows *sql.Rows, t domain.EventType) (domain.Event, error) {
	var (
		id         string
		occurredAt sql.NullTime
		quantity   sql.NullInt64
	)
	dims := make([]sql.NullString, len(spec.dimensions))
	counters := make([]sql.NullInt64, len(spec.counters))

	dest := []interface{}{&id, &occurredAt, &quantity}
	for i := range dims {
		dest = append(dest, &dims[i])
	}
	for i := range counters {
		dest = append(dest, &counters[i])
	}

	if err := rows.Scan(dest...); err != nil {
		return domain.Event{}, domain.StoreError("scan "+spec.table, err)
	}

	if !occurredAt.Valid {
		return domain.Event{}, &domain.InvalidEventError{EventID: id, Reason: spec.occurredAt + " is null"}
	}

	e := domain.Event{
		ID:         id,
		Type:       t,
		OccurredAt: occurredAt.Time.UTC(),
		Quantity:   quantity.Int64,
		Dimensions: make(map[string]*string, len(spec.dimensions)),
	}
	for i, d := range spec.dimensions {
		if dims[i].Valid {
			e.Dimensions[d.name] = domain.StrPtr(dims[i].String)
		} else {
			e.Dimensions[d.name] = nil
		}
	}
	if len(spec.counters) > 0 {
		e.Counters = make(map[string]int64, len(spec.counters))
		for i, c := range spec.counters {
			e.Counters[c.name] = counters[i].Int64
		}
	}

	if err := e.Validate(); err != nil {
		return domain.Event{}, err
	}
	return e, nil
}

// Ping verifies the database is reachable
func (s *SQLEventStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return domain.StoreError("ping", err)
	}
	return nil
}
