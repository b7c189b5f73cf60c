// Package aggregate provides small generic helpers for summing, grouping and
// ordering records by an accessor.
package aggregate

import (
	"cmp"
	"slices"

	"github.com/shopspring/decimal"
)

// SumBy adds up key(item) over items. An empty slice sums to zero.
func SumBy[T any](items []T, key func(T) decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(key(item))
	}
	return total
}

// Groups is the result of GroupBy. Keys holds every key in first-seen order.
type Groups[K comparable, T any] struct {
	Keys  []K
	Items map[K][]T
}

// Len returns the number of groups.
func (g Groups[K, T]) Len() int {
	return len(g.Keys)
}

// Get returns the items of key, in input order.
func (g Groups[K, T]) Get(key K) []T {
	return g.Items[key]
}

// GroupBy partitions items by key(item). Both the group order and the order within
// each group follow the input.
func GroupBy[T any, K comparable](items []T, key func(T) K) Groups[K, T] {
	g := Groups[K, T]{Items: make(map[K][]T)}
	for _, item := range items {
		k := key(item)
		if _, ok := g.Items[k]; !ok {
			g.Keys = append(g.Keys, k)
		}
		g.Items[k] = append(g.Items[k], item)
	}
	return g
}

// Total is a labelled sum produced by SumGroups.
type Total[K comparable] struct {
	Key    K
	Amount decimal.Decimal
	Count  int
}

// SumGroups sums every group of g with key, in group order.
func SumGroups[K comparable, T any](g Groups[K, T], key func(T) decimal.Decimal) []Total[K] {
	totals := make([]Total[K], 0, g.Len())
	for _, k := range g.Keys {
		items := g.Items[k]
		totals = append(totals, Total[K]{Key: k, Amount: SumBy(items, key), Count: len(items)})
	}
	return totals
}

// CompareBy returns a three-way comparator ordering by key. Equal keys compare as 0.
func CompareBy[T any, V cmp.Ordered](key func(T) V, descending bool) func(a, b T) int {
	return func(a, b T) int {
		c := cmp.Compare(key(a), key(b))
		if descending {
			return -c
		}
		return c
	}
}

// CompareDecimalBy is CompareBy for decimal keys.
func CompareDecimalBy[T any](key func(T) decimal.Decimal, descending bool) func(a, b T) int {
	return func(a, b T) int {
		c := key(a).Cmp(key(b))
		if descending {
			return -c
		}
		return c
	}
}

// Then chains comparators: later ones only break ties left by earlier ones.
func Then[T any](cmps ...func(a, b T) int) func(a, b T) int {
	return func(a, b T) int {
		for _, c := range cmps {
			if r := c(a, b); r != 0 {
				return r
			}
		}
		return 0
	}
}

// SortBy returns a sorted copy of items. The sort is stable.
func SortBy[T any](items []T, compare func(a, b T) int) []T {
	sorted := slices.Clone(items)
	slices.SortStableFunc(sorted, compare)
	return sorted
}
