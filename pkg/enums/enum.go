// Package enums holds the closed string sets stored in the database and
// accepted over the API.
package enums

import (
	"fmt"
	"slices"
	"strings"
)

func oneOf[T ~string](value T, set []T) bool {
	return slices.Contains(set, value)
}

// parseOneOf trims and lowercases raw before matching, so query strings and
// JSON bodies may use any case.
func parseOneOf[T ~string](kind, raw string, set []T) (T, error) {
	value := T(strings.ToLower(strings.TrimSpace(raw)))
	if oneOf(value, set) {
		return value, nil
	}
	return "", fmt.Errorf("invalid %s %q", kind, raw)
}
