package runstore

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxNameLength is the longest accepted experiment, tag or run name in bytes.
const MaxNameLength = 255

var (
	runHashRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)
	colorRegex   = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)
)

// IsValidName validates an experiment, tag or run name.
// It checks that the name:
//   - is not empty or only whitespace
//   - is at most MaxNameLength bytes
//   - is valid UTF-8
//   - does not contain null bytes, control characters (< 0x20) or DEL (0x7f)
//
// Returns true if the name is valid, false otherwise.
func IsValidName(name string) bool {
	if strings.TrimSpace(name) == "" {
		return false
	}

	if len(name) > MaxNameLength {
		return false
	}

	if !utf8.ValidString(name) {
		return false
	}

	for _, r := range name {
		if r == 0 || r < 0x20 || r == 0x7f || (unicode.IsSpace(r) && r != ' ') {
			return false
		}
	}

	return true
}

// IsValidRunHash reports whether s is 1-64 characters of [a-zA-Z0-9_-].
func IsValidRunHash(s string) bool {
	return runHashRegex.MatchString(s)
}

// IsValidColor reports whether s is a #rgb or #rrggbb hex color.
func IsValidColor(s string) bool {
	return colorRegex.MatchString(s)
}
