package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeHexColor(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		fallback string
		expected string
	}{
		{"valid lowercase", "#58a6ff", "", "#58a6ff"},
		{"valid uppercase is lowered", "#FFAA00", "", "#ffaa00"},
		{"missing hash is added", "58a6ff", "", "#58a6ff"},
		{"empty falls back", "", "#58a6ff", "#58a6ff"},
		{"whitespace only falls back", "   ", "#58a6ff", "#58a6ff"},
		{"too short falls back", "#fff", "#58a6ff", "#58a6ff"},
		{"garbage falls back", "#zzzzzz", "#58a6ff", "#58a6ff"},
		{"alpha channel falls back", "#ff58a6ff", "#58a6ff", "#58a6ff"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeHexColor(tt.input, tt.fallback))
		})
	}
}
