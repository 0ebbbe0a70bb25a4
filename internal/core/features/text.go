package features

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pmezard/go-difflib/difflib"
)

// InsertedText returns the text present in newer but not in older
// lines are diffed first; inside replaced line blocks a second word level
// diff keeps only the words that actually changed
func InsertedText(older, newer string) string {
	if newer == "" {
		return ""
	}
	if older == "" {
		return newer
	}
	a := strings.Split(older, "\n")
	b := strings.Split(newer, "\n")

	var out []string
	for _, op := range difflib.NewMatcher(a, b).GetOpCodes() {
		switch op.Tag {
		case 'i':
			out = append(out, b[op.J1:op.J2]...)
		case 'r':
			ow := strings.Fields(strings.Join(a[op.I1:op.I2], "\n"))
			nw := strings.Fields(strings.Join(b[op.J1:op.J2], "\n"))
			var words []string
			for _, wop := range difflib.NewMatcher(ow, nw).GetOpCodes() {
				if wop.Tag == 'i' || wop.Tag == 'r' {
					words = append(words, nw[wop.J1:wop.J2]...)
				}
			}
			if len(words) > 0 {
				out = append(out, strings.Join(words, " "))
			}
		}
	}
	return strings.Join(out, "\n")
}

// charStats is a single pass census over a text
type charStats struct {
	runes    int
	upper    int
	lower    int
	digits   int
	nonAlnum int
	distinct int
	longRun  int
}

func census(s string) charStats {
	var st charStats
	seen := map[rune]struct{}{}
	var prev rune
	run := 0
	for _, r := range s {
		st.runes++
		switch {
		case unicode.IsUpper(r):
			st.upper++
		case unicode.IsLower(r):
			st.lower++
		}
		if unicode.IsDigit(r) {
			st.digits++
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			st.nonAlnum++
		}
		seen[r] = struct{}{}
		if r == prev && run > 0 {
			run++
		} else {
			run = 1
		}
		prev = r
		st.longRun = max(st.longRun, run)
	}
	st.distinct = len(seen)
	return st
}

// words splits s on anything that is not a word character
func words(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return !isWord(r) })
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }

// markupTokens are wikitext constructs counted by the markup feature
var markupTokens = []string{"[[", "]]", "{{", "}}", "''", "==", "<", "[http", "|", "#REDIRECT"}

func countMarkup(s string) int {
	n := 0
	for _, t := range markupTokens {
		n += strings.Count(s, t)
	}
	return n
}
