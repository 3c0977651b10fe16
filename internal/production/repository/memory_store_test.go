package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bamul/packline-analytics/internal/production/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memTray(id string, at time.Duration, line string) domain.Event {
	return domain.Event{
		ID:         id,
		Type:       domain.EventTray,
		OccurredAt: day.Start.Add(at),
		Dimensions: map[string]*string{domain.DimLine: domain.StrPtr(line)},
		Quantity:   1,
	}
}

func TestMemoryStore_FilterOrderLimit(t *testing.T) {
	store := NewMemoryStore(
		memTray("a", time.Hour, "1"),
		memTray("b", 3*time.Hour, "2"),
		memTray("c", 2*time.Hour, "1"),
		memTray("yesterday", -time.Minute, "1"),
		memTray("tomorrow", 24*time.Hour, "1"),
	)
	ctx := context.Background()

	events, err := Collect(store.FetchEvents(ctx, domain.Filter{Type: domain.EventTray, Range: day}))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c", "b"}, ids(events))

	events, err = Collect(store.FetchEvents(ctx, domain.Filter{Type: domain.EventTray, Range: day, Order: domain.OrderDesc, Limit: 2}))
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, ids(events))

	events, err = Collect(store.FetchEvents(ctx, domain.Filter{Type: domain.EventTray, Range: day, Equals: map[string]string{domain.DimLine: "1"}}))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, ids(events))

	events, err = Collect(store.FetchEvents(ctx, domain.Filter{Type: domain.EventOpticalCount, Range: day}))
	require.NoError(t, err)
	assert.Empty(t, events)

	_, err = Collect(store.FetchEvents(ctx, domain.Filter{Type: domain.EventOpticalCount, Range: day, Equals: map[string]string{domain.DimColor: "red"}}))
	assert.ErrorIs(t, err, domain.ErrUnknownDimension)
}

func TestMemoryStore_Unavailable(t *testing.T) {
	store := NewMemoryStore(memTray("a", time.Hour, "1"))
	store.SetUnavailable(errors.New("maintenance"))

	_, err := Collect(store.FetchEvents(context.Background(), domain.Filter{Type: domain.EventTray, Range: day}))
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.ErrorIs(t, store.Ping(context.Background()), domain.ErrStoreUnavailable)

	store.SetUnavailable(nil)
	assert.NoError(t, store.Ping(context.Background()))
}

func TestMemoryStore_ConcurrentReaders(t *testing.T) {
	store := NewMemoryStore()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			store.Add(memTray("w", time.Hour, "1"))
		}()
		go func() {
			defer wg.Done()
			_, err := Collect(store.FetchEvents(context.Background(), domain.Filter{Type: domain.EventTray, Range: day}))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	events, err := Collect(store.FetchEvents(context.Background(), domain.Filter{Type: domain.EventTray, Range: day}))
	require.NoError(t, err)
	assert.Len(t, events, 8)
}

func ids(events []domain.Event) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.ID
	}
	return out
}
