package internal

import (
	"cmp"
	"slices"
)

// Throws 'StupidDeveloperException'.
// Panics if given non-nil error.
// Should be used only in case of non-recoverable developer error, such as
// binding a flag that was never declared.
func PanicOnError(err error) {
	if err != nil {
		panic(err)
	}
}

// SortedKeys returns the keys of m in ascending order.
func SortedKeys[K cmp.Ordered, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
