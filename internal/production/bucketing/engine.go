// Package bucketing folds production events into fixed-width time windows
// keyed by dimension values.
package bucketing

import (
	"fmt"
	"slices"
	"time"

	"github.com/bamul/packline-analytics/internal/production/domain"
)

// Hourly buckets events of one calendar day into one-hour windows
func Hourly(events []domain.Event, day domain.Range, keys []string, defaults []domain.DimensionKey) ([]domain.Bucket, error) {
	return Bucket(events, day, time.Hour, keys, defaults)
}

// Bucket groups events into windows of width anchored at day.Start.
//
// Every window of the day is emitted for every dimension key observed in
// events, with zero buckets where nothing was folded in. When no events
// carry a key, defaults are used instead. With no dimension names the
// series has a single empty key. The result is ordered by window start,
// then by key.
//
// A malformed event or one outside the day fails the whole call.
func Bucket(events []domain.Event, day domain.Range, width time.Duration, keys []string, defaults []domain.DimensionKey) ([]domain.Bucket, error) {
	if width <= 0 {
		return nil, fmt.Errorf("window width must be positive, got %s", width)
	}
	if !day.Start.Before(day.End) {
		return nil, fmt.Errorf("empty day range %s..%s", day.Start, day.End)
	}

	starts := windowStarts(day, width)

	type slot struct {
		window int
		key    string
	}
	acc := make(map[slot]*domain.Bucket)
	seen := make(map[string]domain.DimensionKey)

	for _, e := range events {
		if err := e.Validate(); err != nil {
			return nil, err
		}
		if !day.Contains(e.OccurredAt) {
			return nil, &domain.InvalidEventError{
				EventID: e.ID,
				Reason:  fmt.Sprintf("occurredAt %s outside %s..%s", e.OccurredAt.Format(time.RFC3339Nano), day.Start.Format(time.RFC3339), day.End.Format(time.RFC3339)),
			}
		}

		w := int(e.OccurredAt.Sub(day.Start) / width)
		k := domain.ProjectKey(e, keys)
		id := k.ID()
		if _, ok := seen[id]; !ok {
			seen[id] = k
		}

		s := slot{window: w, key: id}
		b, ok := acc[s]
		if !ok {
			b = &domain.Bucket{}
			acc[s] = b
		}
		b.Count++
		b.Sum += e.Quantity
	}

	keySet := seriesKeys(seen, keys, defaults)

	out := make([]domain.Bucket, 0, len(starts)*len(keySet))
	for w, start := range starts {
		label := start.In(day.Start.Location()).Format("15:04")
		for _, k := range keySet {
			b := domain.Bucket{WindowStart: start, Hour: label, Key: k}
			if folded, ok := acc[slot{window: w, key: k.ID()}]; ok {
				b.Count = folded.Count
				b.Sum = folded.Sum
			}
			out = append(out, b)
		}
	}
	return out, nil
}

func windowStarts(day domain.Range, width time.Duration) []time.Time {
	var starts []time.Time
	for t := day.Start; t.Before(day.End); t = t.Add(width) {
		starts = append(starts, t)
	}
	return starts
}

func seriesKeys(seen map[string]domain.DimensionKey, names []string, defaults []domain.DimensionKey) []domain.DimensionKey {
	if len(names) == 0 {
		return []domain.DimensionKey{domain.NewDimensionKey(nil, nil)}
	}

	var keys []domain.DimensionKey
	if len(seen) > 0 {
		keys = make([]domain.DimensionKey, 0, len(seen))
		for _, k := range seen {
			keys = append(keys, k)
		}
	} else {
		dedup := make(map[string]bool, len(defaults))
		for _, d := range defaults {
			values := make([]*string, len(names))
			for i, n := range names {
				values[i] = d.Value(n)
			}
			k := domain.NewDimensionKey(names, values)
			if dedup[k.ID()] {
				continue
			}
			dedup[k.ID()] = true
			keys = append(keys, k)
		}
	}

	slices.SortFunc(keys, func(a, b domain.DimensionKey) int { return a.Compare(b) })
	return keys
}
