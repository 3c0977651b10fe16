package domain

import (
	"fmt"
	"slices"
	"time"
)

// EventType identifies the source table of a production event
type EventType string

const (
	EventTray         EventType = "tray"
	EventOpticalCount EventType = "optical_count"
)

// Dimension names shared by both event types
const (
	DimLine       = "line"
	DimMachine    = "machine"
	DimTray       = "tray"
	DimColor      = "color"
	DimPacketType = "packetType"
)

// Auxiliary counters carried by optical count events
const (
	CounterDerived     = "derived"
	CounterIncremental = "incremental"
)

// Event is a single tray detection or optical count record.
// OccurredAt is the canonical bucketing time: creation for trays,
// from_time for optical counts.
type Event struct {
	ID         string             `json:"id"`
	Type       EventType          `json:"type"`
	OccurredAt time.Time          `json:"occurredAt"`
	Dimensions map[string]*string `json:"dimensions"`
	Quantity   int64              `json:"quantity"`
	Counters   map[string]int64   `json:"counters,omitempty"`
}

// Dimension returns the value of a dimension tag, nil when unknown
func (e Event) Dimension(name string) *string {
	if e.Dimensions == nil {
		return nil
	}
	return e.Dimensions[name]
}

// Validate checks the event invariants
func (e Event) Validate() error {
	if e.OccurredAt.IsZero() {
		return &InvalidEventError{EventID: e.ID, Reason: "missing occurredAt"}
	}
	if e.Quantity < 0 {
		return &InvalidEventError{EventID: e.ID, Reason: fmt.Sprintf("negative quantity %d", e.Quantity)}
	}
	return nil
}

// Bucket is the aggregate of all events sharing a window and dimension key
type Bucket struct {
	WindowStart time.Time    `json:"windowStart"`
	Hour        string       `json:"hour"`
	Key         DimensionKey `json:"key"`
	Count       int64        `json:"count"`
	Sum         int64        `json:"sum"`
}

// GroupSummary is one row of a single-dimension summary
type GroupSummary struct {
	Value *string `json:"value"`
	Count int64   `json:"count"`
	Sum   int64   `json:"sum"`
}

// Snapshot holds the derived metrics of one query scope
type Snapshot struct {
	TotalQuantity              int64   `json:"totalQuantity"`
	ActiveDimensionCount       int     `json:"activeDimensionCount"`
	TotalEventCount            int64   `json:"totalEventCount"`
	CapacityUtilizationPercent int     `json:"capacityUtilizationPercent"`
	VolumeTotalLiters          float64 `json:"volumeTotalLiters"`
}

// ListResult is a capped, reverse-chronological list of events
type ListResult struct {
	Items     []Event `json:"items"`
	Truncated bool    `json:"truncated"`
}

// StrPtr returns a pointer to s
func StrPtr(s string) *string {
	return &s
}

// KnownDimensions lists the dimension tags carried by an event type
func KnownDimensions(t EventType) []string {
	switch t {
	case EventTray:
		return []string{DimLine, DimTray, DimColor, DimPacketType}
	case EventOpticalCount:
		return []string{DimLine, DimMachine}
	}
	return nil
}

// CheckDimensions rejects dimension names the event type does not carry
func CheckDimensions(t EventType, names ...string) error {
	known := KnownDimensions(t)
	if known == nil {
		return fmt.Errorf("%w: %q", ErrUnknownEventType, t)
	}
	for _, n := range names {
		if !slices.Contains(known, n) {
			return fmt.Errorf("%w: %q for %s", ErrUnknownDimension, n, t)
		}
	}
	return nil
}
