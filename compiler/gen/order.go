package gen

import (
	"cmp"
	"slices"
)

// DefaultExportOrder lists the foundational types emitted first in every
// aggregate artifact, in rank order.
var DefaultExportOrder = []string{
	TypeResource,
	"DomainResource",
	TypeElement,
	TypeBackboneElement,
	"Quantity",
}

// sortByRank stably sorts items so that those whose name appears in order
// come first, by rank. Other items keep their relative order.
func sortByRank[T any](items []T, name func(T) string, order []string) {
	rank := make(map[string]int, len(order))
	for i, n := range order {
		if _, ok := rank[n]; !ok {
			rank[n] = i
		}
	}
	slices.SortStableFunc(items, func(a, b T) int {
		ra, oka := rank[name(a)]
		rb, okb := rank[name(b)]
		switch {
		case oka && okb:
			return cmp.Compare(ra, rb)
		case oka:
			return -1
		case okb:
			return 1
		default:
			return 0
		}
	})
}

// OrderNames returns a copy of names with the names of order moved to the
// front.
func OrderNames(names, order []string) []string {
	out := slices.Clone(names)
	sortByRank(out, func(s string) string { return s }, order)
	return out
}
