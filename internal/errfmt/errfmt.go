// Package errfmt bounds untrusted text before it lands in errors and logs.
package errfmt

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxLen caps diagnostic content to prevent unbounded propagation.
const MaxLen = 4096

// truncateUTF8 caps s at max bytes, backtracking to a valid UTF-8 boundary.
func truncateUTF8(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	end := limit
	for end > 0 && !utf8.RuneStart(s[end]) {
		end--
	}
	return s[:end]
}

// Truncate caps a string at MaxLen bytes with UTF-8-safe truncation.
func Truncate(s string) string {
	return truncateUTF8(s, MaxLen)
}

// Printable drops control characters (terminal escapes, NULs, CR) other than
// tab, then truncates. Used for child stderr lines before logging.
func Printable(s string) string {
	clean := strings.Map(func(r rune) rune {
		if r != '\t' && unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	return truncateUTF8(clean, MaxLen)
}
