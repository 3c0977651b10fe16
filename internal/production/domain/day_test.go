package domain

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDayOf_LocalMidnights(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	ref := time.Date(2024, 3, 10, 20, 0, 0, 0, time.UTC) // 01:30 on the 11th in IST
	day := DayOf(ref, loc)

	assert.Equal(t, time.Date(2024, 3, 11, 0, 0, 0, 0, loc), day.Start)
	assert.Equal(t, time.Date(2024, 3, 12, 0, 0, 0, 0, loc), day.End)
	assert.Equal(t, 24*time.Hour, day.End.Sub(day.Start))
}

func TestDayOf_MicrosecondBoundary(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	late := time.Date(2024, 5, 1, 23, 59, 59, 999999000, loc)
	early := time.Date(2024, 5, 2, 0, 0, 0, 0, loc)
	require.Equal(t, time.Microsecond, early.Sub(late))

	lateDay := DayOf(late, loc)
	earlyDay := DayOf(early, loc)

	assert.True(t, lateDay.Contains(late))
	assert.False(t, lateDay.Contains(early))
	assert.True(t, earlyDay.Contains(early))
	assert.False(t, earlyDay.Contains(late))
	assert.NotEqual(t, lateDay, earlyDay)
}

func TestDayOf_DST(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	day := DayOf(time.Date(2024, 3, 31, 12, 0, 0, 0, loc), loc)
	assert.Equal(t, 23*time.Hour, day.End.Sub(day.Start))
}

func TestParseDay(t *testing.T) {
	day, err := ParseDay("2024-06-15", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC), day.Start)

	_, err = ParseDay("15/06/2024", time.UTC)
	assert.Error(t, err)
}

func TestFilter_Matches(t *testing.T) {
	day := DayOf(time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC), time.UTC)
	e := Event{
		ID:         "T-1",
		Type:       EventTray,
		OccurredAt: day.Start.Add(time.Hour),
		Dimensions: map[string]*string{DimLine: StrPtr("1"), DimColor: nil},
	}

	assert.True(t, Filter{Type: EventTray, Range: day}.Matches(e))
	assert.False(t, Filter{Type: EventOpticalCount, Range: day}.Matches(e))
	assert.True(t, Filter{Type: EventTray, Range: day, Equals: map[string]string{DimLine: "1"}}.Matches(e))
	assert.False(t, Filter{Type: EventTray, Range: day, Equals: map[string]string{DimLine: "2"}}.Matches(e))
	assert.False(t, Filter{Type: EventTray, Range: day, Equals: map[string]string{DimColor: "red"}}.Matches(e))
}

func TestDimensionKey_NullsAreDistinct(t *testing.T) {
	names := []string{DimColor, DimPacketType}
	a := NewDimensionKey(names, []*string{nil, StrPtr("half")})
	b := NewDimensionKey(names, []*string{StrPtr(""), StrPtr("half")})
	c := NewDimensionKey(names, []*string{StrPtr("red"), nil})

	assert.NotEqual(t, a.ID(), b.ID())
	assert.NotEqual(t, a.ID(), c.ID())
	assert.Equal(t, -1, a.Compare(b))
	assert.Equal(t, -1, b.Compare(c))
	assert.Equal(t, 0, c.Compare(NewDimensionKey(names, []*string{StrPtr("red"), nil})))
}

func TestEvent_Validate(t *testing.T) {
	err := Event{ID: "x", OccurredAt: time.Now(), Quantity: -1}.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidEvent)

	err = Event{ID: "y", Quantity: 1}.Validate()
	assert.ErrorIs(t, err, ErrInvalidEvent)

	assert.NoError(t, Event{ID: "z", OccurredAt: time.Now()}.Validate())
}
