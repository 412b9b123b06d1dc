package enums

import (
	"fmt"
	"slices"
)

func valid[T ~string](known []T, v T) bool {
	return slices.Contains(known, v)
}

func parse[T ~string](kind string, known []T, value string) (T, error) {
	if v := T(value); slices.Contains(known, v) {
		return v, nil
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q", kind, value)
}
