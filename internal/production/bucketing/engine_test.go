package bucketing

import (
	"testing"
	"time"

	"github.com/bamul/packline-analytics/internal/production/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDay = domain.DayOf(time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC), time.UTC)

func tray(id string, at time.Duration, line *string, qty int64) domain.Event {
	return domain.Event{
		ID:         id,
		Type:       domain.EventTray,
		OccurredAt: testDay.Start.Add(at),
		Dimensions: map[string]*string{domain.DimLine: line},
		Quantity:   qty,
	}
}

func TestHourly_PreSeedsEveryHourPerKey(t *testing.T) {
	events := []domain.Event{
		tray("a", 9*time.Hour+10*time.Minute, domain.StrPtr("2"), 10),
		tray("b", 9*time.Hour+50*time.Minute, domain.StrPtr("2"), 5),
		tray("c", 14*time.Hour, domain.StrPtr("1"), 7),
	}

	buckets, err := Hourly(events, testDay, []string{domain.DimLine}, nil)
	require.NoError(t, err)
	require.Len(t, buckets, 48)

	for i := 1; i < len(buckets); i++ {
		prev, cur := buckets[i-1], buckets[i]
		if prev.WindowStart.Equal(cur.WindowStart) {
			assert.Equal(t, -1, prev.Key.Compare(cur.Key))
		} else {
			assert.True(t, prev.WindowStart.Before(cur.WindowStart))
		}
	}

	// hour 9 holds line 1 (zero) then line 2
	h9 := buckets[18:20]
	assert.Equal(t, "09:00", h9[0].Hour)
	assert.Equal(t, "1", *h9[0].Key.Value(domain.DimLine))
	assert.Equal(t, int64(0), h9[0].Count)
	assert.Equal(t, "2", *h9[1].Key.Value(domain.DimLine))
	assert.Equal(t, int64(2), h9[1].Count)
	assert.Equal(t, int64(15), h9[1].Sum)

	h14 := buckets[28]
	assert.Equal(t, "14:00", h14.Hour)
	assert.Equal(t, int64(1), h14.Count)
	assert.Equal(t, int64(7), h14.Sum)
}

func TestHourly_NullKeysStayDistinct(t *testing.T) {
	events := []domain.Event{
		tray("a", time.Hour, nil, 1),
		tray("b", time.Hour, domain.StrPtr(""), 2),
		tray("c", time.Hour, domain.StrPtr("1"), 3),
	}

	buckets, err := Hourly(events, testDay, []string{domain.DimLine}, nil)
	require.NoError(t, err)
	require.Len(t, buckets, 72)

	h1 := buckets[3:6]
	assert.Nil(t, h1[0].Key.Value(domain.DimLine))
	assert.Equal(t, int64(1), h1[0].Sum)
	assert.Equal(t, "", *h1[1].Key.Value(domain.DimLine))
	assert.Equal(t, int64(2), h1[1].Sum)
	assert.Equal(t, "1", *h1[2].Key.Value(domain.DimLine))
	assert.Equal(t, int64(3), h1[2].Sum)
}

func TestHourly_NoDimensionsCoalesces(t *testing.T) {
	events := []domain.Event{
		tray("a", 30*time.Minute, nil, 4),
		tray("b", 45*time.Minute, domain.StrPtr("1"), 6),
	}

	buckets, err := Hourly(events, testDay, nil, nil)
	require.NoError(t, err)
	require.Len(t, buckets, 24)
	assert.Equal(t, int64(2), buckets[0].Count)
	assert.Equal(t, int64(10), buckets[0].Sum)
	assert.Equal(t, 0, buckets[0].Key.Len())
}

func TestHourly_EmptyUsesDefaults(t *testing.T) {
	defaults := []domain.DimensionKey{
		domain.NewDimensionKey([]string{domain.DimLine}, []*string{domain.StrPtr("2")}),
		domain.NewDimensionKey([]string{domain.DimLine}, []*string{domain.StrPtr("1")}),
	}

	buckets, err := Hourly(nil, testDay, []string{domain.DimLine}, defaults)
	require.NoError(t, err)
	require.Len(t, buckets, 48)
	assert.Equal(t, "1", *buckets[0].Key.Value(domain.DimLine))
	assert.Equal(t, "2", *buckets[1].Key.Value(domain.DimLine))
	for _, b := range buckets {
		assert.Zero(t, b.Count)
		assert.Zero(t, b.Sum)
	}

	buckets, err = Hourly(nil, testDay, nil, nil)
	require.NoError(t, err)
	assert.Len(t, buckets, 24)
}

func TestBucket_FailsFastOnInvalidEvent(t *testing.T) {
	events := []domain.Event{
		tray("ok", time.Hour, domain.StrPtr("1"), 1),
		tray("bad", 2*time.Hour, domain.StrPtr("1"), -3),
	}

	buckets, err := Hourly(events, testDay, []string{domain.DimLine}, nil)
	assert.Nil(t, buckets)
	assert.ErrorIs(t, err, domain.ErrInvalidEvent)

	outside := []domain.Event{tray("late", 25*time.Hour, nil, 1)}
	_, err = Hourly(outside, testDay, nil, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidEvent)
}

func TestBucket_CustomWidth(t *testing.T) {
	events := []domain.Event{
		tray("a", 5*time.Hour, nil, 1),
		tray("b", 7*time.Hour, nil, 1),
		tray("c", 23*time.Hour, nil, 1),
	}

	buckets, err := Bucket(events, testDay, 6*time.Hour, nil, nil)
	require.NoError(t, err)
	require.Len(t, buckets, 4)
	assert.Equal(t, []int64{1, 1, 0, 1}, []int64{buckets[0].Count, buckets[1].Count, buckets[2].Count, buckets[3].Count})

	_, err = Bucket(events, testDay, 0, nil, nil)
	assert.Error(t, err)
}

func TestSummarize_OrdersBySumThenValue(t *testing.T) {
	typed := func(id string, pt *string, qty int64) domain.Event {
		return domain.Event{
			ID: id, Type: domain.EventTray, OccurredAt: testDay.Start,
			Dimensions: map[string]*string{domain.DimPacketType: pt},
			Quantity:   qty,
		}
	}
	events := []domain.Event{
		typed("1", domain.StrPtr("one"), 10),
		typed("2", domain.StrPtr("half"), 30),
		typed("3", domain.StrPtr("six"), 10),
		typed("4", nil, 10),
		typed("5", domain.StrPtr("half"), 5),
	}

	groups, err := Summarize(events, domain.DimPacketType)
	require.NoError(t, err)
	require.Len(t, groups, 4)

	assert.Equal(t, "half", *groups[0].Value)
	assert.Equal(t, int64(35), groups[0].Sum)
	assert.Equal(t, int64(2), groups[0].Count)
	assert.Nil(t, groups[1].Value)
	assert.Equal(t, "one", *groups[2].Value)
	assert.Equal(t, "six", *groups[3].Value)
}
