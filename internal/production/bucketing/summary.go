package bucketing

import (
	"cmp"
	"slices"

	"github.com/bamul/packline-analytics/internal/production/domain"
)

// Summarize groups events by a single dimension. Groups are ordered by
// sum descending, ties by value ascending with the unknown value first.
func Summarize(events []domain.Event, dimension string) ([]domain.GroupSummary, error) {
	names := []string{dimension}
	groups := make(map[string]*domain.GroupSummary)
	for _, e := range events {
		if err := e.Validate(); err != nil {
			return nil, err
		}
		k := domain.ProjectKey(e, names)
		g, ok := groups[k.ID()]
		if !ok {
			g = &domain.GroupSummary{Value: k.Value(dimension)}
			groups[k.ID()] = g
		}
		g.Count++
		g.Sum += e.Quantity
	}

	out := make([]domain.GroupSummary, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}
	slices.SortFunc(out, func(a, b domain.GroupSummary) int {
		if c := cmp.Compare(b.Sum, a.Sum); c != 0 {
			return c
		}
		return domain.CompareNullable(a.Value, b.Value)
	})
	return out, nil
}
