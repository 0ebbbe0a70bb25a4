package features

import (
	"bufio"
	"embed"
	"strings"
	"unicode"
	"unicode/utf8"
)

//go:embed lexicon/*.txt
var lexiconFS embed.FS

// acNode is one trie state with a fixed 256-way transition table
type acNode struct {
	// trans[b] = next state or -1 if absent
	trans  [256]int32
	fail   int32
	output []int32 // pattern byte lengths ending at this node
}

// Lexicon is a byte level Aho-Corasick automaton over normalized words
// it is immutable after construction and safe for concurrent use
type Lexicon struct {
	nodes []acNode
	size  int
}

func newNode() acNode {
	var n acNode
	for i := range n.trans {
		n.trans[i] = -1
	}
	return n
}

// NewLexicon builds an automaton over words; blanks are ignored
func NewLexicon(words ...string) *Lexicon {
	l := &Lexicon{nodes: []acNode{newNode()}}
	for _, w := range words {
		l.add([]byte(strings.TrimSpace(w)))
	}
	l.build()
	return l
}

// Size returns the number of distinct words in the lexicon
func (l *Lexicon) Size() int { return l.size }

func (l *Lexicon) add(pat []byte) {
	if len(pat) == 0 {
		return
	}
	state := int32(0)
	for _, b := range pat {
		nxt := l.nodes[state].trans[b]
		if nxt == -1 {
			nxt = int32(len(l.nodes))
			l.nodes[state].trans[b] = nxt
			l.nodes = append(l.nodes, newNode())
		}
		state = nxt
	}
	for _, n := range l.nodes[state].output {
		if int(n) == len(pat) {
			return
		}
	}
	l.nodes[state].output = append(l.nodes[state].output, int32(len(pat)))
	l.size++
}

// build finalizes failure links breadth first
func (l *Lexicon) build() {
	q := make([]int32, 0, 64)
	for b := range 256 {
		if s := l.nodes[0].trans[b]; s != -1 {
			l.nodes[s].fail = 0
			q = append(q, s)
		}
	}
	for qi := 0; qi < len(q); qi++ {
		r := q[qi]
		for b := range 256 {
			s := l.nodes[r].trans[b]
			if s == -1 {
				continue
			}
			q = append(q, s)

			f := l.nodes[r].fail
			for f != 0 && l.nodes[f].trans[b] == -1 {
				f = l.nodes[f].fail
			}
			if nxt := l.nodes[f].trans[b]; nxt != -1 {
				l.nodes[s].fail = nxt
			} else {
				l.nodes[s].fail = 0
			}
			l.nodes[s].output = append(l.nodes[s].output, l.nodes[l.nodes[s].fail].output...)
		}
	}
}

// Count returns the number of whole word occurrences of lexicon entries in text
// text must already be normalized the way the entries were
func (l *Lexicon) Count(text string) int {
	if l == nil || l.size == 0 || text == "" {
		return 0
	}
	n := 0
	state := int32(0)
	for i := 0; i < len(text); i++ {
		b := text[i]
		for state != 0 && l.nodes[state].trans[b] == -1 {
			state = l.nodes[state].fail
		}
		if nxt := l.nodes[state].trans[b]; nxt != -1 {
			state = nxt
		}
		for _, plen := range l.nodes[state].output {
			end := i + 1
			start := end - int(plen)
			if wordBoundary(text, start, end) {
				n++
			}
		}
	}
	return n
}

// Best returns the highest Count over several projections of the same text
func (l *Lexicon) Best(texts ...string) int {
	n := 0
	for _, t := range texts {
		n = max(n, l.Count(t))
	}
	return n
}

// isWord reports whether r is considered a word character for boundary checks:
// letters, numbers, combining marks and connector punctuation
func isWord(r rune) bool {
	if r == utf8.RuneError || r == 0 {
		return false
	}
	return unicode.IsLetter(r) ||
		unicode.IsNumber(r) ||
		unicode.In(r, unicode.Mn, unicode.Pc)
}

// wordBoundary reports whether text[start:end] is not glued to word characters on either side
func wordBoundary(text string, start, end int) bool {
	if start > 0 {
		if r, _ := utf8.DecodeLastRuneInString(text[:start]); isWord(r) {
			return false
		}
	}
	if end < len(text) {
		if r, _ := utf8.DecodeRuneInString(text[end:]); isWord(r) {
			return false
		}
	}
	return true
}

// loadLexicon reads an embedded word list; # starts a comment line
func loadLexicon(name string, normalize func(string) string) *Lexicon {
	f, err := lexiconFS.Open("lexicon/" + name)
	if err != nil {
		panic("features: missing embedded lexicon " + name)
	}
	defer f.Close()

	var words []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words = append(words, normalize(line))
	}
	return NewLexicon(words...)
}
