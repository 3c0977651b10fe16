package metrics

import (
	"fmt"
	"strconv"
	"strings"
)

// VolumeTable maps a packet type to its volume in milliliters
type VolumeTable map[string]int64

// DefaultVolumes covers the packet sizes produced on the line
func DefaultVolumes() VolumeTable {
	return VolumeTable{
		"one":   1000,
		"half":  500,
		"six":   6000,
		"small": 200,
	}
}

// ParseVolumeTable parses "type:ml,type:ml" pairs
func ParseVolumeTable(s string) (VolumeTable, error) {
	table := make(VolumeTable)
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, raw, ok := strings.Cut(pair, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("volume entry %q: want type:ml", pair)
		}
		ml, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil || ml < 0 {
			return nil, fmt.Errorf("volume entry %q: invalid milliliters", pair)
		}
		table[name] = ml
	}
	if len(table) == 0 {
		return nil, fmt.Errorf("volume table is empty")
	}
	return table, nil
}
