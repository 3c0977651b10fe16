// Package metrics derives dashboard statistics from one day of events.
package metrics

import (
	"fmt"
	"math"
	"time"

	"github.com/bamul/packline-analytics/internal/production/domain"
)

// TotalQuantity sums the quantity of all events, 0 for an empty set
func TotalQuantity(events []domain.Event) (int64, error) {
	var total int64
	for _, e := range events {
		if err := e.Validate(); err != nil {
			return 0, err
		}
		total += e.Quantity
	}
	return total, nil
}

// ActiveDimensionCount counts distinct non-null values of dimension
func ActiveDimensionCount(events []domain.Event, dimension string) int {
	seen := make(map[string]struct{})
	for _, e := range events {
		if v := e.Dimension(dimension); v != nil {
			seen[*v] = struct{}{}
		}
	}
	return len(seen)
}

// ActiveSpanHours is the number of whole hours between the earliest and
// latest event plus one, never below one.
func ActiveSpanHours(earliest, latest time.Time) int64 {
	hours := int64(latest.Sub(earliest) / time.Hour)
	return max(hours+1, 1)
}

// CapacityUtilization is the average events per hour over the active span
// as a percentage of maxPerWindow, rounded and clamped to [0, 100].
// The divisor is the elapsed span, not 24 hours.
func CapacityUtilization(events []domain.Event, maxPerWindow int) (int, error) {
	if maxPerWindow <= 0 {
		return 0, fmt.Errorf("capacity per window must be positive, got %d", maxPerWindow)
	}
	if len(events) == 0 {
		return 0, nil
	}

	var earliest, latest time.Time
	for i, e := range events {
		if err := e.Validate(); err != nil {
			return 0, err
		}
		if i == 0 || e.OccurredAt.Before(earliest) {
			earliest = e.OccurredAt
		}
		if i == 0 || e.OccurredAt.After(latest) {
			latest = e.OccurredAt
		}
	}

	perHour := float64(len(events)) / float64(ActiveSpanHours(earliest, latest))
	pct := math.Round(perHour / float64(maxPerWindow) * 100)
	return int(min(max(pct, 0), 100)), nil
}

// VolumeTotal converts packets to liters through the volume table.
// Each event contributes volume(packetType) * quantity; unmapped or
// unknown types contribute nothing.
func VolumeTotal(events []domain.Event, table VolumeTable) (float64, error) {
	var ml int64
	for _, e := range events {
		if err := e.Validate(); err != nil {
			return 0, err
		}
		pt := e.Dimension(domain.DimPacketType)
		if pt == nil {
			continue
		}
		ml += table[*pt] * e.Quantity
	}
	return float64(ml) / 1000, nil
}

// Config parameterizes Derive
type Config struct {
	ActiveDimension string
	CapacityPerHour int
	Volumes         VolumeTable
}

// Derive computes every snapshot field from the same event set
func Derive(events []domain.Event, cfg Config) (domain.Snapshot, error) {
	total, err := TotalQuantity(events)
	if err != nil {
		return domain.Snapshot{}, err
	}
	util, err := CapacityUtilization(events, cfg.CapacityPerHour)
	if err != nil {
		return domain.Snapshot{}, err
	}
	volume, err := VolumeTotal(events, cfg.Volumes)
	if err != nil {
		return domain.Snapshot{}, err
	}

	return domain.Snapshot{
		TotalQuantity:              total,
		ActiveDimensionCount:       ActiveDimensionCount(events, cfg.ActiveDimension),
		TotalEventCount:            int64(len(events)),
		CapacityUtilizationPercent: util,
		VolumeTotalLiters:          volume,
	}, nil
}
