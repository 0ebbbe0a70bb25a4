// Package domain defines the wire types and ports of the extract service
package domain

import (
	"math"
	"strconv"
	"strings"

	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/core/revision"
	perr "github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/errors"
)

// Output delimiters
const (
	DelimComma = ","
	DelimTab   = "\t"
)

// RouteKey names the reduce group a payload is routed to
type RouteKey struct {
	PageID     int64
	RevisionID int64
}

// String renders "page_id,revision_id"
func (k RouteKey) String() string {
	return strconv.FormatInt(k.PageID, 10) + "," + strconv.FormatInt(k.RevisionID, 10)
}

// ParseRouteKey reverses RouteKey.String
func ParseRouteKey(s string) (RouteKey, error) {
	p, r, ok := strings.Cut(s, ",")
	if !ok {
		return RouteKey{}, perr.Malformedf("route key %q: missing comma", s)
	}
	page, err1 := strconv.ParseInt(p, 10, 64)
	rev, err2 := strconv.ParseInt(r, 10, 64)
	if err1 != nil || err2 != nil || page <= 0 || rev <= 0 {
		return RouteKey{}, perr.Malformedf("route key %q: bad ids", s)
	}
	return RouteKey{PageID: page, RevisionID: rev}, nil
}

// Payload is one encoded revision travelling through the shuffle
// Counterpart is the other revision of the edit the payload was routed for, 0 when none
type Payload struct {
	Encoded     string
	Counterpart int64
	Label       revision.Label
}

// String renders "encoded,counterpart,label" with an empty counterpart for 0
func (p Payload) String() string {
	var b strings.Builder
	b.Grow(len(p.Encoded) + 24)
	b.WriteString(p.Encoded)
	b.WriteByte(',')
	if p.Counterpart != 0 {
		b.WriteString(strconv.FormatInt(p.Counterpart, 10))
	}
	b.WriteByte(',')
	b.WriteString(p.Label.String())
	return b.String()
}

// ParsePayload reverses Payload.String
func ParsePayload(s string) (Payload, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return Payload{}, perr.Malformedf("payload: want 3 fields, got %d", len(parts))
	}
	if parts[0] == "" {
		return Payload{}, perr.Malformedf("payload: empty revision")
	}
	p := Payload{Encoded: parts[0]}
	if parts[1] != "" {
		n, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil || n <= 0 {
			return Payload{}, perr.Malformedf("payload: bad counterpart %q", parts[1])
		}
		p.Counterpart = n
	}
	l, err := revision.ParseLabel(parts[2])
	if err != nil {
		return Payload{}, err
	}
	p.Label = l
	return p, nil
}

// Record is one labeled feature row
type Record struct {
	PageID        int64
	OldRevisionID int64
	NewRevisionID int64
	Label         revision.Label
	Features      []float64
}

// Key is the framework key of an output record, the page id
func (r Record) Key() string { return strconv.FormatInt(r.PageID, 10) }

// Value renders old<d>new<d>label<d>f1<d>...<d>fn
func (r Record) Value(delim string) string {
	var b strings.Builder
	b.WriteString(strconv.FormatInt(r.OldRevisionID, 10))
	b.WriteString(delim)
	b.WriteString(strconv.FormatInt(r.NewRevisionID, 10))
	b.WriteString(delim)
	b.WriteString(r.Label.String())
	for _, f := range r.Features {
		b.WriteString(delim)
		b.WriteString(FormatFloat(f))
	}
	return b.String()
}

// Format renders the whole output line without a trailing newline
func (r Record) Format(delim string) string {
	return r.Key() + delim + r.Value(delim)
}

// ParseRecord reverses Key and Value
func ParseRecord(key, value, delim string) (Record, error) {
	page, err := strconv.ParseInt(key, 10, 64)
	if err != nil || page <= 0 {
		return Record{}, perr.Malformedf("record: bad page id %q", key)
	}
	parts := strings.Split(value, delim)
	if len(parts) < 3 {
		return Record{}, perr.Malformedf("record: want at least 3 fields, got %d", len(parts))
	}
	r := Record{PageID: page}
	if r.OldRevisionID, err = strconv.ParseInt(parts[0], 10, 64); err != nil {
		return Record{}, perr.Malformedf("record: bad old revision %q", parts[0])
	}
	if r.NewRevisionID, err = strconv.ParseInt(parts[1], 10, 64); err != nil {
		return Record{}, perr.Malformedf("record: bad new revision %q", parts[1])
	}
	if r.Label, err = revision.ParseLabel(parts[2]); err != nil {
		return Record{}, err
	}
	r.Features = make([]float64, 0, len(parts)-3)
	for _, s := range parts[3:] {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Record{}, perr.Malformedf("record: bad feature %q", s)
		}
		r.Features = append(r.Features, f)
	}
	return r, nil
}

// FormatFloat uses the shortest representation that parses back to f
func FormatFloat(f float64) string {
	if f == 0 && math.Signbit(f) {
		f = 0
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// DelimiterOf maps the option names comma and tab to their delimiter
func DelimiterOf(name string) (string, error) {
	if name == DelimTab {
		return DelimTab, nil
	}
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "comma", ",":
		return DelimComma, nil
	case "tab":
		return DelimTab, nil
	default:
		return "", perr.InvalidArgf("unknown delimiter %q", name)
	}
}
