package normalize

import "strings"

// ZoneType identifies wikitext regions that hold no prose
type ZoneType string

const (
	// ZoneComment is an html comment <!-- ... -->
	ZoneComment ZoneType = "comment"
	// ZoneTemplate is a template transclusion {{ ... }}, nesting included
	ZoneTemplate ZoneType = "template"
	// ZoneRef is a citation <ref ...>...</ref> or <ref .../>
	ZoneRef ZoneType = "ref"
)

// ZoneSpan is a byte range [Start,End) including the delimiters
type ZoneSpan struct {
	Type       ZoneType
	Start, End int
}

// DetectZones scans wikitext and returns non overlapping spans sorted by Start
// unterminated constructs extend to the end of s
func DetectZones(s string) []ZoneSpan {
	if s == "" {
		return nil
	}
	var out []ZoneSpan
	lower := strings.ToLower(s)
	for i := 0; i < len(s); {
		switch {
		case strings.HasPrefix(s[i:], "<!--"):
			end := indexFrom(s, "-->", i+4, 3)
			out = append(out, ZoneSpan{Type: ZoneComment, Start: i, End: end})
			i = end
		case strings.HasPrefix(s[i:], "{{"):
			end := templateEnd(s, i)
			out = append(out, ZoneSpan{Type: ZoneTemplate, Start: i, End: end})
			i = end
		case strings.HasPrefix(lower[i:], "<ref") && i+4 < len(s) && (s[i+4] == '>' || s[i+4] == ' ' || s[i+4] == '/'):
			end := refEnd(lower, i)
			out = append(out, ZoneSpan{Type: ZoneRef, Start: i, End: end})
			i = end
		default:
			i++
		}
	}
	return out
}

// StripZones replaces every zone with a single space
func StripZones(s string) string {
	zs := DetectZones(s)
	if len(zs) == 0 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	prev := 0
	for _, z := range zs {
		b.WriteString(s[prev:z.Start])
		b.WriteByte(' ')
		prev = z.End
	}
	b.WriteString(s[prev:])
	return b.String()
}

// indexFrom returns the index just past the first sep at or after from, or len(s)
func indexFrom(s, sep string, from, sepLen int) int {
	if from > len(s) {
		return len(s)
	}
	if j := strings.Index(s[from:], sep); j >= 0 {
		return from + j + sepLen
	}
	return len(s)
}

func templateEnd(s string, start int) int {
	depth := 0
	for i := start; i+1 < len(s); {
		switch {
		case s[i] == '{' && s[i+1] == '{':
			depth++
			i += 2
		case s[i] == '}' && s[i+1] == '}':
			depth--
			i += 2
			if depth == 0 {
				return i
			}
		default:
			i++
		}
	}
	return len(s)
}

func refEnd(lower string, start int) int {
	gt := strings.IndexByte(lower[start:], '>')
	if gt < 0 {
		return len(lower)
	}
	gt += start
	if lower[gt-1] == '/' {
		return gt + 1
	}
	return indexFrom(lower, "</ref>", gt+1, len("</ref>"))
}
