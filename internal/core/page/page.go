// Package page parses a <page> element of a MediaWiki history dump and tags its
// edits by identity revert detection
package page

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/core/edit"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/core/revision"
	perr "github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/errors"
)

// Dump tags that delimit one page record
const (
	StartTag = "<page>"
	EndTag   = "</page>"
)

// Page is one article with its revisions in dump order
type Page struct {
	ID        int64
	Title     string
	Revisions []*revision.Revision
}

// PeekID returns the page id without parsing XML
// <title> and <ns> precede the page <id>, so the first <id> is the page's own
func PeekID(raw []byte) (int64, bool) { return revision.PeekID(raw) }

// Parse decodes one <page> element including every nested <revision>
func Parse(raw []byte) (*Page, error) {
	d := xml.NewDecoder(bytes.NewReader(raw))
	p := &Page{}
	sawID := false
	depth := 0
	for {
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, perr.Wrap(err, perr.ErrorCodeMalformed, "page xml")
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if depth == 1 {
				if t.Name.Local != "page" {
					return nil, perr.Malformedf("expected <page>, got <%s>", t.Name.Local)
				}
				continue
			}
			if depth != 2 {
				continue
			}
			switch t.Name.Local {
			case "title":
				var s string
				if err := d.DecodeElement(&s, &t); err != nil {
					return nil, perr.Wrap(err, perr.ErrorCodeMalformed, "page title")
				}
				p.Title = strings.TrimSpace(s)
				depth--
			case "id":
				var s string
				if err := d.DecodeElement(&s, &t); err != nil {
					return nil, perr.Wrap(err, perr.ErrorCodeMalformed, "page id")
				}
				n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
				if err != nil || n <= 0 {
					return nil, perr.Malformedf("bad page id %q", s)
				}
				p.ID, sawID = n, true
				depth--
			case "revision":
				r, err := revision.Decode(d, &t)
				if err != nil {
					return nil, perr.WithField(err, "revision "+strconv.Itoa(len(p.Revisions)))
				}
				p.Revisions = append(p.Revisions, r)
				depth--
			}
		case xml.EndElement:
			depth--
		}
	}
	if !sawID {
		return nil, perr.Malformedf("page without <id>")
	}
	return p, nil
}

func (p *Page) byID() map[int64]*revision.Revision {
	m := make(map[int64]*revision.Revision, len(p.Revisions))
	for _, r := range p.Revisions {
		m[r.ID] = r
	}
	return m
}

// Edits returns one edit per revision whose parent is also on the page
func (p *Page) Edits() []*edit.Edit {
	byID := p.byID()
	out := make([]*edit.Edit, 0, len(p.Revisions))
	for _, r := range p.Revisions {
		parent, ok := byID[r.ParentID]
		if !r.HasParent() || !ok {
			continue
		}
		if e, err := edit.New(p.ID, parent, r); err == nil {
			out = append(out, e)
		}
	}
	return out
}

// RevertedEdits returns the edits undone by the revision right after them:
// for a chain g -> p -> r, edit g -> p is reverted when r restores the sha1 of g
func (p *Page) RevertedEdits() []*edit.Edit {
	byID := p.byID()
	seen := map[int64]bool{}
	var out []*edit.Edit
	for _, r := range p.Revisions {
		if r.SHA1 == "" || !r.HasParent() {
			continue
		}
		parent, ok := byID[r.ParentID]
		if !ok || parent.SHA1 == r.SHA1 || !parent.HasParent() || seen[parent.ID] {
			continue
		}
		grand, ok := byID[parent.ParentID]
		if !ok || grand.SHA1 != r.SHA1 {
			continue
		}
		if e, err := edit.New(p.ID, grand, parent); err == nil {
			seen[parent.ID] = true
			out = append(out, e)
		}
	}
	return out
}

// Labeled is an edit tagged by revert detection
type Labeled struct {
	OldID int64
	NewID int64
	Label revision.Label
}

// Label tags reverted edits as vandalism and the rest as regular
// reverted edits come first; a regular edit whose old/new sha1 pair matches a
// reverted one is left out
func (p *Page) Label() []Labeled {
	reverted := p.RevertedEdits()
	pairs := make(map[string]bool, len(reverted))
	out := make([]Labeled, 0, len(p.Revisions))
	for _, e := range reverted {
		pairs[sha1Pair(e)] = true
		out = append(out, Labeled{OldID: e.Old.ID, NewID: e.New.ID, Label: revision.LabelVandalism})
	}
	for _, e := range p.Edits() {
		if pairs[sha1Pair(e)] {
			continue
		}
		out = append(out, Labeled{OldID: e.Old.ID, NewID: e.New.ID, Label: revision.LabelRegular})
	}
	return out
}

func sha1Pair(e *edit.Edit) string { return e.Old.SHA1 + "-" + e.New.SHA1 }
