package state

// Identifiable is any record carried in a synchronized collection.
type Identifiable interface {
	Key() string
}

// ReconcileByID merges a freshly fetched collection into the previous one,
// keyed by stable identity. The server's copy wins for every id it contains.
// Previous records missing from the fetch are dropped unless keep reports
// they must survive (locally pending records the server has not confirmed
// yet); survivors are appended in their previous order. Pure function:
// neither input slice is mutated.
func ReconcileByID[T Identifiable](prev, next []T, keep func(T) bool) []T {
	out := make([]T, 0, len(next))
	out = append(out, next...)
	if keep == nil {
		if len(out) == 0 {
			return nil
		}
		return out
	}

	seen := make(map[string]struct{}, len(next))
	for _, item := range next {
		seen[item.Key()] = struct{}{}
	}
	for _, item := range prev {
		if _, ok := seen[item.Key()]; ok {
			continue
		}
		if keep(item) {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// ResolveSelection re-finds a selected record by id in a refreshed
// collection. Returns the refreshed record when present, and reports whether
// the selection is still valid; a vanished id clears the selection.
func ResolveSelection[T Identifiable](id string, coll []T) (T, bool) {
	var zero T
	if id == "" {
		return zero, false
	}
	for _, item := range coll {
		if item.Key() == id {
			return item, true
		}
	}
	return zero, false
}

// IndexByID builds an id lookup for a collection.
func IndexByID[T Identifiable](coll []T) map[string]T {
	out := make(map[string]T, len(coll))
	for _, item := range coll {
		out[item.Key()] = item
	}
	return out
}
