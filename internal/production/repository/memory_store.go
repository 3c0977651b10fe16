package repository

import (
	"cmp"
	"context"
	"iter"
	"slices"
	"sync"

	"github.com/bamul/packline-analytics/internal/production/domain"
)

// MemoryStore keeps events in process. Each fetch works on its own copy
// of the matching events.
type MemoryStore struct {
	mu      sync.RWMutex
	events  []domain.Event
	pingErr error
}

// NewMemoryStore creates a MemoryStore holding events
func NewMemoryStore(events ...domain.Event) *MemoryStore {
	return &MemoryStore{events: slices.Clone(events)}
}

// Add appends events to the store
func (m *MemoryStore) Add(events ...domain.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, events...)
}

// SetUnavailable makes every fetch and ping fail with err
func (m *MemoryStore) SetUnavailable(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingErr = err
}

func (m *MemoryStore) FetchEvents(ctx context.Context, f domain.Filter) iter.Seq2[domain.Event, error] {
	return func(yield func(domain.Event, error) bool) {
		names := make([]string, 0, len(f.Equals))
		for n := range f.Equals {
			names = append(names, n)
		}
		if err := domain.CheckDimensions(f.Type, names...); err != nil {
			yield(domain.Event{}, err)
			return
		}

		matched, err := m.snapshot(f)
		if err != nil {
			yield(domain.Event{}, err)
			return
		}

		for _, e := range matched {
			if err := ctx.Err(); err != nil {
				yield(domain.Event{}, domain.StoreError("fetch", err))
				return
			}
			if err := e.Validate(); err != nil {
				yield(domain.Event{}, err)
				return
			}
			if !yield(e, nil) {
				return
			}
		}
	}
}

func (m *MemoryStore) snapshot(f domain.Filter) ([]domain.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.pingErr != nil {
		return nil, domain.StoreError("fetch", m.pingErr)
	}

	var matched []domain.Event
	for _, e := range m.events {
		if f.Matches(e) {
			matched = append(matched, e)
		}
	}

	slices.SortStableFunc(matched, func(a, b domain.Event) int {
		c := a.OccurredAt.Compare(b.OccurredAt)
		if c == 0 {
			c = cmp.Compare(a.ID, b.ID)
		}
		if f.Order == domain.OrderDesc {
			return -c
		}
		return c
	})

	if f.Limit > 0 && len(matched) > f.Limit {
		matched = matched[:f.Limit]
	}
	return matched, nil
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.pingErr != nil {
		return domain.StoreError("ping", m.pingErr)
	}
	return nil
}
