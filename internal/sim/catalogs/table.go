package catalogs

import "strings"

// Table is a read-only, id-keyed definition set. Lookups ignore case and the
// first definition registered under an id wins.
type Table[T any] struct {
	items      []T
	byID       map[string]int
	duplicates []string
	Digest     string
}

func newTable[T any](items []T, id func(T) string) Table[T] {
	t := Table[T]{byID: make(map[string]int, len(items))}
	for _, it := range items {
		key := normalizeID(id(it))
		if _, ok := t.byID[key]; ok {
			t.duplicates = append(t.duplicates, id(it))
			continue
		}
		t.byID[key] = len(t.items)
		t.items = append(t.items, it)
	}
	return t
}

// TryGet looks a definition up by id.
func (t Table[T]) TryGet(id string) (T, bool) {
	var zero T
	if t.byID == nil {
		return zero, false
	}
	i, ok := t.byID[normalizeID(id)]
	if !ok {
		return zero, false
	}
	return t.items[i], true
}

// All returns the registered definitions in declaration order.
func (t Table[T]) All() []T {
	out := make([]T, len(t.items))
	copy(out, t.items)
	return out
}

func (t Table[T]) Len() int { return len(t.items) }

// Duplicates lists ids that were ignored because an earlier entry claimed them.
func (t Table[T]) Duplicates() []string {
	out := make([]string, len(t.duplicates))
	copy(out, t.duplicates)
	return out
}

func normalizeID(id string) string { return strings.ToLower(strings.TrimSpace(id)) }
