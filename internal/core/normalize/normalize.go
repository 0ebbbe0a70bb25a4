// Package normalize folds revision prose into a canonical form for lexicon lookups
//
// Normalize runs, in order: Sanitize, NFKC, unicode case folding, removal of
// combining marks and format characters, fullwidth to ASCII folding, optional
// leet folding and finally whitespace collapsing
package normalize

import (
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// Normalizer is safe for concurrent use
type Normalizer struct {
	leet bool
}

// Option configures a Normalizer
type Option func(*Normalizer)

// WithLeet folds digit and symbol lookalikes into letters
// pronoun matching keeps it off since 1 would turn into i
func WithLeet(on bool) Option { return func(n *Normalizer) { n.leet = on } }

// leet maps the handful of lookalikes vandals actually use
var leet = strings.NewReplacer(
	"4", "a", "@", "a",
	"0", "o",
	"1", "i", "!", "i",
	"3", "e",
	"5", "s", "$", "s",
	"7", "t",
)

// transformer chains carry state, so each caller borrows one
var chains = sync.Pool{
	New: func() any {
		return transform.Chain(
			norm.NFKC,
			cases.Fold(),
			runes.Remove(runes.In(unicode.Mn)),
			runes.Remove(runes.In(unicode.Cf)),
			width.Fold,
		)
	},
}

// New constructs a Normalizer
func New(opts ...Option) *Normalizer {
	n := &Normalizer{}
	for _, o := range opts {
		o(n)
	}
	return n
}

// Normalize returns the canonical form of s; the result is a fixed point
func (n *Normalizer) Normalize(s string) string {
	if s == "" {
		return ""
	}
	tr := chains.Get().(transform.Transformer)
	out, _, err := transform.String(tr, Sanitize(s))
	tr.Reset()
	chains.Put(tr)
	if err != nil {
		out = Sanitize(s)
	}
	if n.leet {
		out = leet.Replace(out)
	}
	return strings.Join(strings.Fields(out), " ")
}
