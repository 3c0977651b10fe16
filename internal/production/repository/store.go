package repository

import (
	"context"
	"iter"

	"github.com/bamul/packline-analytics/internal/production/domain"
)

// EventStore exposes raw production events as a lazy, filtered sequence.
// Implementations must be safe for concurrent use.
type EventStore interface {
	FetchEvents(ctx context.Context, f domain.Filter) iter.Seq2[domain.Event, error]
	Ping(ctx context.Context) error
}

// Collect drains a fetch into a slice. The first error aborts the
// collection and nothing collected so far is returned.
func Collect(seq iter.Seq2[domain.Event, error]) ([]domain.Event, error) {
	var events []domain.Event
	for e, err := range seq {
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, nil
}
