package utils

import "strings"

func ToPtr[T any](v T) *T {
	return &v
}

// SplitList splits a comma separated cell into trimmed, non-empty items.
// The order of the input is preserved.
func SplitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// NormalizeKey lower-cases a header or enum value, trims it and replaces inner spaces with underscores
func NormalizeKey(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	return strings.Join(strings.Fields(value), "_")
}
