package utils

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strictText = bluemonday.StrictPolicy()

// SanitizeText strips every HTML element from short user text such as habit
// names, icons and notes, then trims surrounding space.
func SanitizeText(input string) string {
	return strings.TrimSpace(strictText.Sanitize(input))
}

// Unique drops repeated values, keeping first occurrences in order.
func Unique[T comparable](in []T) []T {
	seen := make(map[T]struct{}, len(in))
	out := make([]T, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
