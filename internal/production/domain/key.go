package domain

import (
	"encoding/json"
	"slices"
	"strings"
)

// DimensionKey is the projection of an event's tags onto an ordered list
// of dimension names. Unknown values are kept as nil.
type DimensionKey struct {
	names  []string
	values []*string
}

// NewDimensionKey builds a key from parallel name and value slices
func NewDimensionKey(names []string, values []*string) DimensionKey {
	k := DimensionKey{
		names:  append([]string(nil), names...),
		values: make([]*string, len(names)),
	}
	for i := range names {
		if i < len(values) && values[i] != nil {
			v := *values[i]
			k.values[i] = &v
		}
	}
	return k
}

// ProjectKey projects the event's dimension tags onto names
func ProjectKey(e Event, names []string) DimensionKey {
	values := make([]*string, len(names))
	for i, n := range names {
		values[i] = e.Dimension(n)
	}
	return NewDimensionKey(names, values)
}

func (k DimensionKey) Names() []string {
	return append([]string(nil), k.names...)
}

// Value returns the value of a dimension in the key
func (k DimensionKey) Value(name string) *string {
	for i, n := range k.names {
		if n == name {
			return k.values[i]
		}
	}
	return nil
}

func (k DimensionKey) Len() int {
	return len(k.names)
}

// ID is a canonical string for map lookups; nil and "" never collide.
func (k DimensionKey) ID() string {
	var b strings.Builder
	for i, v := range k.values {
		if i > 0 {
			b.WriteByte(0x1f)
		}
		if v == nil {
			b.WriteByte(0x00)
			continue
		}
		b.WriteByte(0x01)
		b.WriteString(*v)
	}
	return b.String()
}

// Compare orders keys value by value: nil sorts before any value,
// values compare lexically.
func (k DimensionKey) Compare(o DimensionKey) int {
	n := min(len(k.values), len(o.values))
	for i := 0; i < n; i++ {
		if c := CompareNullable(k.values[i], o.values[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(k.values) < len(o.values):
		return -1
	case len(k.values) > len(o.values):
		return 1
	}
	return 0
}

func (k DimensionKey) MarshalJSON() ([]byte, error) {
	m := make(map[string]*string, len(k.names))
	for i, n := range k.names {
		m[n] = k.values[i]
	}
	return json.Marshal(m)
}

// UnmarshalJSON restores a key from its object form. Object members carry
// no order, so names come back sorted.
func (k *DimensionKey) UnmarshalJSON(data []byte) error {
	var m map[string]*string
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	slices.Sort(names)
	values := make([]*string, len(names))
	for i, n := range names {
		values[i] = m[n]
	}
	*k = NewDimensionKey(names, values)
	return nil
}

// CompareNullable compares two optional strings with nil first
func CompareNullable(a, b *string) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	return strings.Compare(*a, *b)
}
