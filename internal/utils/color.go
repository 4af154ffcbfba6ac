package utils

import (
	"regexp"
	"strings"
)

var hexColorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// NormalizeHexColor validates a user-supplied #RRGGBB color and lowercases
// it. Malformed values fall back to the given default so a bad color never
// breaks tag or path creation.
func NormalizeHexColor(color, fallback string) string {
	color = strings.TrimSpace(color)
	if color == "" {
		return fallback
	}
	if !strings.HasPrefix(color, "#") {
		color = "#" + color
	}
	if !hexColorPattern.MatchString(color) {
		return fallback
	}
	return strings.ToLower(color)
}
