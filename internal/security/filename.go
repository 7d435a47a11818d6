package security

import "strings"

// maxFilenameLen bounds SanitizeFilename output.
const maxFilenameLen = 128

// SanitizeFilename makes a safe file name stem from an arbitrary string.
// ASCII letters, digits, dot, underscore and dash are kept; every other
// run of characters becomes a single underscore. Leading and trailing dots
// and underscores are trimmed so the result can never be "." or "..".
// An input with nothing usable yields "unknown".
func SanitizeFilename(s string) string {
	var b strings.Builder
	pendingUnderscore := false
	for _, r := range s {
		if b.Len() >= maxFilenameLen {
			break
		}
		if isSafeRune(r) {
			if pendingUnderscore {
				b.WriteByte('_')
				pendingUnderscore = false
			}
			b.WriteRune(r)
			continue
		}
		pendingUnderscore = b.Len() > 0
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "unknown"
	}
	return out
}

func isSafeRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '.', r == '_', r == '-':
		return true
	}
	return false
}
