package http

import (
	"time"

	"github.com/bamul/packline-analytics/internal/production/domain"
)

const rowTimeLayout = "2006-01-02 15:04:05"

type ListResponse[T any] struct {
	Items     []T  `json:"items"`
	Truncated bool `json:"truncated"`
}

type TrayRow struct {
	Name                  string  `json:"name"`
	Creation              string  `json:"creation"`
	ConveyorBeltNumber    *string `json:"conveyorBeltNumber"`
	TrayID                *string `json:"trayId"`
	IdentifiedPacketCount int64   `json:"identifiedPacketCount"`
	IdentifiedColor       *string `json:"identifiedColor"`
	Type                  *string `json:"type"`
}

type OpticalCountRow struct {
	Name              string  `json:"name"`
	FromTime          string  `json:"fromTime"`
	AssemblyLine      *string `json:"assemblyLine"`
	MachineID         *string `json:"machineId"`
	CountedPackets    int64   `json:"countedPackets"`
	DerivedCount      int64   `json:"derivedCount"`
	IncrementalCounts int64   `json:"incrementalCounts"`
}

type LineHour struct {
	Hour         string    `json:"hour"`
	WindowStart  time.Time `json:"windowStart"`
	AssemblyLine *string   `json:"assemblyLine"`
	TotalPackets int64     `json:"totalPackets"`
	Count        int64     `json:"count"`
}

type TrayHour struct {
	Hour         string    `json:"hour"`
	WindowStart  time.Time `json:"windowStart"`
	TrayCount    int64     `json:"tray_count"`
	TotalPackets int64     `json:"total_packets"`
}

type PacketTypeSummary struct {
	Type         *string `json:"type"`
	TotalPackets int64   `json:"total_packets"`
	TrayCount    int64   `json:"tray_count"`
}

type StatsResponse struct {
	TotalPackets        int64   `json:"totalPackets"`
	ActiveLines         int     `json:"activeLines"`
	TotalTrays          int64   `json:"totalTrays"`
	CapacityUtilization int     `json:"capacityUtilization"`
	TotalVolumeLiters   float64 `json:"totalVolumeLiters"`
}

type TotalPacketsResponse struct {
	TotalPackets int64 `json:"totalPackets"`
}

func toTrayRows(events []domain.Event, loc *time.Location) []TrayRow {
	rows := make([]TrayRow, 0, len(events))
	for _, e := range events {
		rows = append(rows, TrayRow{
			Name:                  e.ID,
			Creation:              e.OccurredAt.In(loc).Format(rowTimeLayout),
			ConveyorBeltNumber:    e.Dimension(domain.DimLine),
			TrayID:                e.Dimension(domain.DimTray),
			IdentifiedPacketCount: e.Quantity,
			IdentifiedColor:       e.Dimension(domain.DimColor),
			Type:                  e.Dimension(domain.DimPacketType),
		})
	}
	return rows
}

func toOpticalRows(events []domain.Event, loc *time.Location) []OpticalCountRow {
	rows := make([]OpticalCountRow, 0, len(events))
	for _, e := range events {
		rows = append(rows, OpticalCountRow{
			Name:              e.ID,
			FromTime:          e.OccurredAt.In(loc).Format(rowTimeLayout),
			AssemblyLine:      e.Dimension(domain.DimLine),
			MachineID:         e.Dimension(domain.DimMachine),
			CountedPackets:    e.Quantity,
			DerivedCount:      e.Counters[domain.CounterDerived],
			IncrementalCounts: e.Counters[domain.CounterIncremental],
		})
	}
	return rows
}

func toLineHours(buckets []domain.Bucket) []LineHour {
	out := make([]LineHour, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, LineHour{
			Hour:         b.Hour,
			WindowStart:  b.WindowStart,
			AssemblyLine: b.Key.Value(domain.DimLine),
			TotalPackets: b.Sum,
			Count:        b.Count,
		})
	}
	return out
}

func toTrayHours(buckets []domain.Bucket) []TrayHour {
	out := make([]TrayHour, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, TrayHour{
			Hour:         b.Hour,
			WindowStart:  b.WindowStart,
			TrayCount:    b.Count,
			TotalPackets: b.Sum,
		})
	}
	return out
}

func toPacketTypeSummaries(groups []domain.GroupSummary) []PacketTypeSummary {
	out := make([]PacketTypeSummary, 0, len(groups))
	for _, g := range groups {
		out = append(out, PacketTypeSummary{Type: g.Value, TotalPackets: g.Sum, TrayCount: g.Count})
	}
	return out
}
