package normalize

import "strings"

// Projections returns norm followed by its run squashed form when the two differ
// lexicon lookups take the best count across them, so "stuuuupid" still matches
func Projections(norm string) []string {
	if sq := SquashRuns(norm); sq != norm {
		return []string{norm, sq}
	}
	return []string{norm}
}

// SquashRuns collapses every run of one repeated rune to a single rune
func SquashRuns(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	last := rune(-1)
	for _, r := range s {
		if r != last {
			b.WriteRune(r)
			last = r
		}
	}
	return b.String()
}
