// Package features is the reference feature calculator for edits
// Every feature maps an edit to one float; the calculator returns them in its configured order
package features

import (
	"bytes"
	"math"
	"strings"
	"sync"

	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/core/edit"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/core/normalize"
	perr "github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/errors"

	"github.com/klauspost/compress/flate"
)

// Feature names in their default order
const (
	Anonymity                = "anonymity"
	CommentLength            = "comment length"
	SizeIncrement            = "size increment"
	SizeRatio                = "size ratio"
	UpperCaseRatio           = "upper case ratio"
	UpperCaseWordsRatio      = "upper case words ratio"
	DigitRatio               = "digit ratio"
	NonAlphanumericRatio     = "non alphanumeric ratio"
	CharacterDiversity       = "character diversity"
	LongestWord              = "longest word"
	LongestCharacterSequence = "longest character sequence"
	Compressibility          = "compressibility"
	MarkupFrequency          = "markup frequency"
	VulgarismFrequency       = "vulgarism frequency"
	PronounFrequency         = "pronoun frequency"
	InformalFrequency        = "informal frequency"
)

// None is the feature list value that configures an empty calculator
const None = "none"

// input caches the per edit intermediates shared by several features
type input struct {
	e *edit.Edit

	once     sync.Once
	inserted string
	stats    charStats
	words    []string
	prose    string
}

func (in *input) prepare() {
	in.once.Do(func() {
		in.inserted = InsertedText(in.e.Old.Text, in.e.New.Text)
		in.stats = census(in.inserted)
		in.words = words(in.inserted)
		in.prose = normalize.StripZones(in.inserted)
	})
}

type featureFunc func(c *Calculator, in *input) float64

var registry = map[string]featureFunc{
	Anonymity: func(_ *Calculator, in *input) float64 {
		return boolf(in.e.New.Contributor.Anonymous())
	},
	CommentLength: func(_ *Calculator, in *input) float64 {
		return float64(runeLen(in.e.New.Comment))
	},
	SizeIncrement: func(_ *Calculator, in *input) float64 {
		return float64(runeLen(in.e.New.Text) - runeLen(in.e.Old.Text))
	},
	SizeRatio: func(_ *Calculator, in *input) float64 {
		return float64(runeLen(in.e.New.Text)+1) / float64(runeLen(in.e.Old.Text)+1)
	},
	UpperCaseRatio: func(_ *Calculator, in *input) float64 {
		in.prepare()
		return float64(in.stats.upper+1) / float64(in.stats.lower+1)
	},
	UpperCaseWordsRatio: func(_ *Calculator, in *input) float64 {
		in.prepare()
		upper := 0
		for _, w := range in.words {
			if w == strings.ToUpper(w) && w != strings.ToLower(w) {
				upper++
			}
		}
		return ratio(upper, len(in.words))
	},
	DigitRatio: func(_ *Calculator, in *input) float64 {
		in.prepare()
		return float64(in.stats.digits+1) / float64(in.stats.runes+1)
	},
	NonAlphanumericRatio: func(_ *Calculator, in *input) float64 {
		in.prepare()
		return float64(in.stats.nonAlnum+1) / float64(in.stats.runes+1)
	},
	CharacterDiversity: func(_ *Calculator, in *input) float64 {
		in.prepare()
		if in.stats.distinct == 0 {
			return 0
		}
		return math.Pow(float64(in.stats.runes), 1/float64(in.stats.distinct))
	},
	LongestWord: func(_ *Calculator, in *input) float64 {
		in.prepare()
		longest := 0
		for _, w := range in.words {
			longest = max(longest, runeLen(w))
		}
		return float64(longest)
	},
	LongestCharacterSequence: func(_ *Calculator, in *input) float64 {
		in.prepare()
		return float64(in.stats.longRun)
	},
	Compressibility: func(_ *Calculator, in *input) float64 {
		in.prepare()
		return compressibility(in.inserted)
	},
	MarkupFrequency: func(_ *Calculator, in *input) float64 {
		in.prepare()
		return ratio(countMarkup(in.inserted), len(in.words))
	},
	VulgarismFrequency: func(c *Calculator, in *input) float64 {
		in.prepare()
		n := c.vulgar.Best(normalize.Projections(c.leet.Normalize(in.prose))...)
		return ratio(n, len(in.words))
	},
	PronounFrequency: func(c *Calculator, in *input) float64 {
		in.prepare()
		return ratio(c.pronouns.Count(c.plain.Normalize(in.prose)), len(in.words))
	},
	InformalFrequency: func(c *Calculator, in *input) float64 {
		in.prepare()
		n := c.informal.Best(normalize.Projections(c.plain.Normalize(in.prose))...)
		return ratio(n, len(in.words))
	},
}

// DefaultNames lists every feature in output order
var DefaultNames = []string{
	Anonymity,
	CommentLength,
	SizeIncrement,
	SizeRatio,
	UpperCaseRatio,
	UpperCaseWordsRatio,
	DigitRatio,
	NonAlphanumericRatio,
	CharacterDiversity,
	LongestWord,
	LongestCharacterSequence,
	Compressibility,
	MarkupFrequency,
	VulgarismFrequency,
	PronounFrequency,
	InformalFrequency,
}

func boolf(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// ratio is n/d with 0 for an empty denominator
func ratio(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}

// compressibility is raw length over deflated length; 0 for empty text
func compressibility(s string) float64 {
	if s == "" {
		return 0
	}
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.BestCompression)
	if err != nil {
		return 0
	}
	_, _ = w.Write([]byte(s))
	_ = w.Close()
	if buf.Len() == 0 {
		return 0
	}
	return float64(len(s)) / float64(buf.Len())
}

// Calculator computes the configured features; safe for concurrent use
type Calculator struct {
	names []string
	fns   []featureFunc

	plain    *normalize.Normalizer
	leet     *normalize.Normalizer
	vulgar   *Lexicon
	pronouns *Lexicon
	informal *Lexicon
}

var (
	lexOnce                    sync.Once
	vulgarLex, pronLex, infLex *Lexicon
)

// New returns a calculator over names in the given order
// no names selects DefaultNames; the single name "none" selects nothing
func New(names ...string) (*Calculator, error) {
	if len(names) == 0 {
		names = DefaultNames
	}
	if len(names) == 1 && strings.EqualFold(strings.TrimSpace(names[0]), None) {
		names = nil
	}

	c := &Calculator{
		plain: normalize.New(),
		leet:  normalize.New(normalize.WithLeet(true)),
	}
	seen := map[string]bool{}
	for _, raw := range names {
		n := strings.ToLower(strings.Join(strings.Fields(strings.ReplaceAll(raw, "_", " ")), " "))
		fn, ok := registry[n]
		if !ok {
			return nil, perr.InvalidArgf("features: unknown feature %q", raw)
		}
		if seen[n] {
			return nil, perr.InvalidArgf("features: feature %q listed twice", raw)
		}
		seen[n] = true
		c.names = append(c.names, n)
		c.fns = append(c.fns, fn)
	}

	lexOnce.Do(func() {
		vulgarLex = loadLexicon("vulgarisms.txt", c.leet.Normalize)
		pronLex = loadLexicon("pronouns.txt", c.plain.Normalize)
		infLex = loadLexicon("informal.txt", c.plain.Normalize)
	})
	c.vulgar, c.pronouns, c.informal = vulgarLex, pronLex, infLex
	return c, nil
}

// Names returns the feature names in output order
func (c *Calculator) Names() []string { return append([]string(nil), c.names...) }

// Calculate returns one value per configured feature
// the vector is empty when no features are configured or the new text was suppressed
func (c *Calculator) Calculate(e *edit.Edit) ([]float64, error) {
	if e == nil || e.Old == nil || e.New == nil {
		return nil, perr.Calculatorf("features: incomplete edit")
	}
	if len(c.fns) == 0 || e.New.TextDeleted {
		return []float64{}, nil
	}
	in := &input{e: e}
	out := make([]float64, len(c.fns))
	for i, fn := range c.fns {
		v := fn(c, in)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, perr.Calculatorf("features: %s is not finite for revision %d", c.names[i], e.New.ID)
		}
		out[i] = v
	}
	return out, nil
}
