package availability

import (
	"encoding/csv"
	"errors"
	"io"
	"os"
	"strings"

	perr "github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/errors"
)

// PageSet is a sample of page ids; a nil set admits every page
type PageSet struct {
	m map[int64]struct{}
}

// NewPageSet returns a set of ids
func NewPageSet(ids ...int64) *PageSet {
	s := &PageSet{m: make(map[int64]struct{}, len(ids))}
	for _, id := range ids {
		s.m[id] = struct{}{}
	}
	return s
}

// Contains reports whether the page is sampled
func (s *PageSet) Contains(pageID int64) bool {
	if s == nil {
		return true
	}
	_, ok := s.m[pageID]
	return ok
}

// Len returns the number of sampled pages
func (s *PageSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.m)
}

// LoadPages reads a CSV source whose header names a page_id column; other
// columns such as revision counts are ignored
func LoadPages(r io.Reader) (*PageSet, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true
	cr.FieldsPerRecord = -1

	head, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, perr.Configf("page sample: empty source")
	}
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeConfig, "page sample: header")
	}
	col := -1
	for i, h := range head {
		if strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))) == "page_id" {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, perr.Configf("page sample: header lacks page_id column")
	}

	s := NewPageSet()
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, perr.Wrap(err, perr.ErrorCodeConfig, "page sample: read")
		}
		line, _ := cr.FieldPos(0)
		if col >= len(rec) {
			return nil, perr.Configf("page sample: line %d has no page_id", line)
		}
		id, err := parseInt(rec[col])
		if err != nil || id <= 0 {
			return nil, perr.Configf("page sample: line %d bad page_id %q", line, rec[col])
		}
		s.m[id] = struct{}{}
	}
	return s, nil
}

// LoadPagesFile opens path and loads it
func LoadPagesFile(path string) (*PageSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeConfig, "page sample: open %s", path)
	}
	defer f.Close()
	return LoadPages(f)
}
