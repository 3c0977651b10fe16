package domain

import "time"

// Range is a half-open time interval [Start, End)
type Range struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t lies in [Start, End)
func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// DayOf returns the calendar day containing ref in loc.
// Boundaries are local midnights, so DST days are 23 or 25 hours long.
func DayOf(ref time.Time, loc *time.Location) Range {
	if loc == nil {
		loc = time.UTC
	}
	local := ref.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	end := time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, loc)
	return Range{Start: start, End: end}
}

// ParseDay parses a YYYY-MM-DD date into its calendar day in loc
func ParseDay(s string, loc *time.Location) (Range, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(time.DateOnly, s, loc)
	if err != nil {
		return Range{}, err
	}
	return DayOf(t, loc), nil
}

// Order of a fetch by occurredAt
type Order int

const (
	OrderAsc Order = iota
	OrderDesc
)

// Filter selects events of one type within a time range
type Filter struct {
	Type   EventType
	Range  Range
	Equals map[string]string
	Order  Order
	Limit  int // 0 means unlimited
}

// Matches applies the type, range and equality predicates to e
func (f Filter) Matches(e Event) bool {
	if e.Type != f.Type || !f.Range.Contains(e.OccurredAt) {
		return false
	}
	for name, want := range f.Equals {
		v := e.Dimension(name)
		if v == nil || *v != want {
			return false
		}
	}
	return true
}
