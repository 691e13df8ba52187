// Package enums holds the closed string sets persisted in status and type columns.
package enums

import (
	"fmt"
	"slices"
	"strings"
)

func member[T ~string](set []T, v T) bool {
	return slices.Contains(set, v)
}

// parse matches raw against set after trimming. Folded sets compare upper-case.
func parse[T ~string](kind string, set []T, raw string, fold bool) (T, error) {
	v := strings.TrimSpace(raw)
	if fold {
		v = strings.ToUpper(v)
	}
	if member(set, T(v)) {
		return T(v), nil
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q", kind, raw)
}

func cloned[T ~string](set []T) []T {
	return slices.Clone(set)
}
