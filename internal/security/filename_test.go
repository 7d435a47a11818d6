package security

import (
	"strings"
	"testing"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"frame_0001", "frame_0001"},
		{"capture 12 (left)", "capture_12_left"},
		{"päth/with\\slashes", "p_th_with_slashes"},
		{"..", "unknown"},
		{"", "unknown"},
		{"   ", "unknown"},
		{"._hidden_", "hidden"},
		{"a---b", "a---b"},
	}
	for _, tt := range tests {
		if got := SanitizeFilename(tt.in); got != tt.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeFilenameLength(t *testing.T) {
	got := SanitizeFilename(strings.Repeat("x", 500))
	if len(got) != maxFilenameLen {
		t.Errorf("len = %d, want %d", len(got), maxFilenameLen)
	}
}
