package types

import "strings"

// Theme is a flat set of presentation overrides (colors, font, radius, logo).
type Theme map[string]string

// MergeTheme layers themes left to right; a later non-empty value replaces an
// earlier one. Pass backend branding first and the caller theme last.
func MergeTheme(layers ...Theme) Theme {
	merged := Theme{}
	for _, layer := range layers {
		for key, value := range layer {
			if strings.TrimSpace(value) == "" {
				continue
			}
			merged[key] = value
		}
	}
	return merged
}
