package model

import (
	"sort"
	"strings"
)

// SortCategories orders categories by name, ignoring case first.
func SortCategories(categories []Category) {
	sortByKey(categories, func(c Category) (string, string) { return c.Name, c.ID })
}

// SortItems orders items by title, ignoring case first.
func SortItems(items []Item) {
	sortByKey(items, func(i Item) (string, string) { return i.Title, i.ID })
}

// MatchesQuery reports whether text contains query, ignoring case.
func MatchesQuery(text, query string) bool {
	return strings.Contains(strings.ToLower(text), strings.ToLower(query))
}

// FilterCategories keeps the categories whose name matches query.
func FilterCategories(categories []Category, query string) []Category {
	return filterByKey(categories, query, func(c Category) string { return c.Name })
}

// FilterItems keeps the items whose title matches query.
func FilterItems(items []Item, query string) []Item {
	return filterByKey(items, query, func(i Item) string { return i.Title })
}

func sortByKey[T any](values []T, key func(T) (label, id string)) {
	sort.SliceStable(values, func(i, j int) bool {
		a, aID := key(values[i])
		b, bID := key(values[j])
		if la, lb := strings.ToLower(a), strings.ToLower(b); la != lb {
			return la < lb
		}
		if a != b {
			return a < b
		}
		return aID < bID
	})
}

func filterByKey[T any](values []T, query string, key func(T) string) []T {
	out := make([]T, 0, len(values))
	for _, v := range values {
		if MatchesQuery(key(v), query) {
			out = append(out, v)
		}
	}
	return out
}
