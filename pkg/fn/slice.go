package fn

// Map applies f to each element.
func Map[T, U any](items []T, f func(T) U) []U {
	out := make([]U, len(items))
	for i, v := range items {
		out[i] = f(v)
	}
	return out
}

// Filter returns the elements where pred is true, in input order. The result
// never shares a backing array with items and is non-nil.
func Filter[T any](items []T, pred func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, v := range items {
		if pred(v) {
			out = append(out, v)
		}
	}
	return out
}

// Find returns the first element where pred is true.
func Find[T any](items []T, pred func(T) bool) (T, bool) {
	for _, v := range items {
		if pred(v) {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// IndexBy builds a lookup keyed by key(v). Later duplicates overwrite earlier ones.
func IndexBy[T any, K comparable](items []T, key func(T) K) map[K]T {
	out := make(map[K]T, len(items))
	for _, v := range items {
		out[key(v)] = v
	}
	return out
}

// Duplicates returns keys that occur more than once, in first-repeat order.
func Duplicates[T any, K comparable](items []T, key func(T) K) []K {
	seen := make(map[K]int, len(items))
	var out []K
	for _, v := range items {
		k := key(v)
		seen[k]++
		if seen[k] == 2 {
			out = append(out, k)
		}
	}
	return out
}
