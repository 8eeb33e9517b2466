package errfmt

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncate_ShortPassthrough(t *testing.T) {
	assert.Equal(t, "short message", Truncate("short message"))
}

func TestTruncate_LongMessage(t *testing.T) {
	longMsg := strings.Repeat("x", MaxLen+500)
	assert.Len(t, Truncate(longMsg), MaxLen)
}

func TestTruncate_UTF8Truncation(t *testing.T) {
	prefix := strings.Repeat("x", MaxLen-2)
	result := Truncate(prefix + "\U0001F600") // 4-byte emoji at boundary
	assert.LessOrEqual(t, len(result), MaxLen)
	assert.True(t, utf8.ValidString(result))
	assert.Equal(t, prefix, result)
}

func TestPrintable(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "warming up", "warming up"},
		{"escape sequence", "\x1b[2Kready", "[2Kready"},
		{"keeps tab", "a\tb", "a\tb"},
		{"drops cr and nul", "a\r\x00b", "ab"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Printable(tt.in))
		})
	}
}
