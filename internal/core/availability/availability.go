// Package availability holds the revision id to page and label mapping that
// decides which revisions take part in feature extraction
package availability

import (
	"encoding/csv"
	"errors"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/core/revision"
	perr "github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/errors"
)

// Entry is what the index knows about one sampled revision
type Entry struct {
	PageID int64
	Label  revision.Label
}

// Index is read only once built and safe for concurrent lookups
type Index struct {
	m map[int64]Entry
}

// Lookup returns the entry for a revision id
func (x *Index) Lookup(revisionID int64) (Entry, bool) {
	if x == nil {
		return Entry{}, false
	}
	e, ok := x.m[revisionID]
	return e, ok
}

// Len returns the number of indexed revisions
func (x *Index) Len() int {
	if x == nil {
		return 0
	}
	return len(x.m)
}

// Builder accumulates entries and rejects conflicting duplicates
type Builder struct {
	m map[int64]Entry
}

// NewBuilder returns an empty builder
func NewBuilder() *Builder { return &Builder{m: map[int64]Entry{}} }

// Add records revisionID; an identical repeat is ignored, a conflicting one fails
func (b *Builder) Add(revisionID int64, e Entry) error {
	if revisionID <= 0 || e.PageID <= 0 {
		return perr.Configf("availability: non positive id (revision %d, page %d)", revisionID, e.PageID)
	}
	if !e.Label.Valid() {
		return perr.Configf("availability: revision %d has no valid label", revisionID)
	}
	if prev, ok := b.m[revisionID]; ok && prev != e {
		return perr.Configf("availability: revision %d listed twice with different data (page %d/%s vs %d/%s)",
			revisionID, prev.PageID, prev.Label, e.PageID, e.Label)
	}
	b.m[revisionID] = e
	return nil
}

// Build freezes the builder into an Index
func (b *Builder) Build() *Index {
	m := b.m
	b.m = map[int64]Entry{}
	return &Index{m: m}
}

// header column names; label is accepted as an alias of simple_vandalism
var columnAliases = map[string]string{
	"page_id":          "page_id",
	"revision_id":      "revision_id",
	"simple_vandalism": "label",
	"label":            "label",
}

// Load reads a CSV source with a header row naming page_id, revision_id and
// simple_vandalism (or label) in any order
func Load(r io.Reader) (*Index, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	head, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, perr.Configf("availability: empty source")
	}
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeConfig, "availability: header")
	}

	cols := map[string]int{}
	for i, h := range head {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if canon, ok := columnAliases[name]; ok {
			if _, dup := cols[canon]; dup {
				return nil, perr.Configf("availability: column %q given twice", canon)
			}
			cols[canon] = i
		}
	}
	for _, need := range []string{"page_id", "revision_id", "label"} {
		if _, ok := cols[need]; !ok {
			return nil, perr.Configf("availability: header lacks %s column", need)
		}
	}

	b := NewBuilder()
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, perr.Wrap(err, perr.ErrorCodeConfig, "availability: read")
		}
		line, _ := cr.FieldPos(0)

		revID, err := parseInt(rec[cols["revision_id"]])
		if err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeConfig, "availability: line %d revision_id", line)
		}
		pageID, err := parseInt(rec[cols["page_id"]])
		if err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeConfig, "availability: line %d page_id", line)
		}
		label, err := revision.ParseLabel(rec[cols["label"]])
		if err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeConfig, "availability: line %d label", line)
		}
		if err := b.Add(revID, Entry{PageID: pageID, Label: label}); err != nil {
			return nil, perr.WithField(err, "line "+strconv.Itoa(line))
		}
	}
	return b.Build(), nil
}

// LoadFile opens path and loads it
func LoadFile(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeConfig, "availability: open %s", path)
	}
	defer f.Close()
	return Load(f)
}

func parseInt(s string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(s), 10, 64)
}
