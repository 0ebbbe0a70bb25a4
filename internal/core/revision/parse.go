package revision

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strconv"
	"strings"
	"time"

	perr "github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/errors"
)

// Field selects a top level <revision> child for a partial parse
type Field uint8

const (
	// FieldID is the revision <id>
	FieldID Field = 1 << iota
	// FieldParentID is the <parentid>
	FieldParentID
	// FieldTimestamp is the <timestamp>
	FieldTimestamp
)

var fieldTags = map[string]Field{
	"id":        FieldID,
	"parentid":  FieldParentID,
	"timestamp": FieldTimestamp,
}

type xmlRevision struct {
	XMLName     xml.Name `xml:"revision"`
	ID          string   `xml:"id"`
	ParentID    string   `xml:"parentid"`
	Timestamp   string   `xml:"timestamp"`
	Contributor struct {
		Deleted  string `xml:"deleted,attr"`
		Username string `xml:"username"`
		IP       string `xml:"ip"`
		ID       string `xml:"id"`
	} `xml:"contributor"`
	Minor   *struct{} `xml:"minor"`
	Comment string    `xml:"comment"`
	Model   string    `xml:"model"`
	Format  string    `xml:"format"`
	Text    struct {
		Deleted string `xml:"deleted,attr"`
		Body    string `xml:",chardata"`
	} `xml:"text"`
	SHA1 string `xml:"sha1"`
}

// Parse decodes one <revision> element
// with no fields it decodes everything; otherwise it reads only the named
// top level children and stops as soon as all of them were seen
func Parse(raw []byte, fields ...Field) (*Revision, error) {
	if len(fields) > 0 {
		return parsePartial(raw, fields)
	}

	var x xmlRevision
	if err := xml.Unmarshal(raw, &x); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeMalformed, "revision xml")
	}
	return x.revision()
}

// Decode reads the <revision> element opened by start from d
// it lets enclosing documents such as a <page> stream their revisions
func Decode(d *xml.Decoder, start *xml.StartElement) (*Revision, error) {
	var x xmlRevision
	if err := d.DecodeElement(&x, start); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeMalformed, "revision xml")
	}
	return x.revision()
}

func (x *xmlRevision) revision() (*Revision, error) {
	r := &Revision{
		Comment:     x.Comment,
		Minor:       x.Minor != nil,
		Text:        x.Text.Body,
		TextDeleted: x.Text.Deleted != "",
		SHA1:        strings.TrimSpace(x.SHA1),
		Model:       strings.TrimSpace(x.Model),
		Format:      strings.TrimSpace(x.Format),
		Contributor: Contributor{
			Username: x.Contributor.Username,
			IP:       strings.TrimSpace(x.Contributor.IP),
			Deleted:  x.Contributor.Deleted != "",
		},
	}

	var err error
	if r.ID, err = parseID("id", x.ID, true); err != nil {
		return nil, err
	}
	if r.ParentID, err = parseID("parentid", x.ParentID, false); err != nil {
		return nil, err
	}
	if r.Contributor.ID, err = parseID("contributor id", x.Contributor.ID, false); err != nil {
		return nil, err
	}
	if r.Timestamp, err = parseTime(x.Timestamp); err != nil {
		return nil, err
	}
	return r, nil
}

func parsePartial(raw []byte, fields []Field) (*Revision, error) {
	var want Field
	for _, f := range fields {
		want |= f
	}

	d := xml.NewDecoder(bytes.NewReader(raw))
	r := &Revision{}
	var seen Field
	depth := 0
	for seen&want != want {
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, perr.Wrap(err, perr.ErrorCodeMalformed, "revision xml")
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if depth == 1 {
				if t.Name.Local != "revision" {
					return nil, perr.Malformedf("expected <revision>, got <%s>", t.Name.Local)
				}
				continue
			}
			f, ok := fieldTags[t.Name.Local]
			if depth != 2 || !ok || want&f == 0 {
				continue
			}
			var s string
			if err := d.DecodeElement(&s, &t); err != nil {
				return nil, perr.Wrap(err, perr.ErrorCodeMalformed, "revision "+t.Name.Local)
			}
			depth--
			seen |= f
			switch f {
			case FieldID:
				r.ID, err = parseID("id", s, true)
			case FieldParentID:
				r.ParentID, err = parseID("parentid", s, false)
			case FieldTimestamp:
				r.Timestamp, err = parseTime(s)
			}
			if err != nil {
				return nil, err
			}
		case xml.EndElement:
			depth--
		}
	}

	if want&FieldID != 0 && seen&FieldID == 0 {
		return nil, perr.Malformedf("revision without <id>")
	}
	return r, nil
}

func parseID(name, s string, required bool) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		if required {
			return 0, perr.Malformedf("revision without <%s>", name)
		}
		return 0, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0, perr.Malformedf("bad %s %q", name, s)
	}
	return n, nil
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, perr.Wrapf(err, perr.ErrorCodeMalformed, "bad timestamp %q", s)
	}
	return t.UTC(), nil
}
