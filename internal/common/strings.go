package common

import (
	"strings"
	"unicode/utf8"
)

// TruncateString cuts s to at most n bytes without splitting a multibyte rune.
// Invalid sequences in the input are dropped.
func TruncateString(s string, n int) string {
	s = strings.ToValidUTF8(s, "")
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
