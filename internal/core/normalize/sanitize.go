package normalize

import (
	"strings"
	"unicode/utf8"
)

// Sanitize strips what never belongs in revision prose: C0 controls other than
// tab, newline and carriage return, DEL, C1 controls and invalid UTF-8
// clean input comes back unchanged without allocating
func Sanitize(s string) string {
	if strings.IndexFunc(s, unwanted) < 0 {
		return s
	}
	return strings.Map(func(r rune) rune {
		if unwanted(r) {
			return -1
		}
		return r
	}, s)
}

// unwanted also catches utf8.RuneError, which is how ranging reports invalid bytes
func unwanted(r rune) bool {
	switch {
	case r == '\t' || r == '\n' || r == '\r':
		return false
	case r < 0x20 || r == 0x7f:
		return true
	case r >= 0x80 && r <= 0x9f:
		return true
	}
	return r == utf8.RuneError
}
