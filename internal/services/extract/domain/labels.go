package domain

import (
	"strconv"
	"strings"

	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/core/revision"
	perr "github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/errors"
)

// PageKey groups the labeled edits of one page
type PageKey struct {
	PageID    int64
	Title     string
	Revisions int
}

// String renders "page_id,title,revisions"; the title may itself hold commas
func (k PageKey) String() string {
	return strconv.FormatInt(k.PageID, 10) + "," + k.Title + "," + strconv.Itoa(k.Revisions)
}

// ParsePageKey reverses PageKey.String
func ParsePageKey(s string) (PageKey, error) {
	id, rest, ok := strings.Cut(s, ",")
	i := strings.LastIndexByte(rest, ',')
	if !ok || i < 0 {
		return PageKey{}, perr.Malformedf("page key %q: want page_id,title,revisions", s)
	}
	page, err1 := strconv.ParseInt(id, 10, 64)
	n, err2 := strconv.Atoi(rest[i+1:])
	if err1 != nil || err2 != nil || page <= 0 || n < 0 {
		return PageKey{}, perr.Malformedf("page key %q: bad numbers", s)
	}
	return PageKey{PageID: page, Title: rest[:i], Revisions: n}, nil
}

// LabeledEdit is one "old,new,label" value of the labeling job
type LabeledEdit struct {
	OldRevisionID int64
	NewRevisionID int64
	Label         revision.Label
}

// String renders "old,new,label"
func (e LabeledEdit) String() string {
	return strconv.FormatInt(e.OldRevisionID, 10) + "," + strconv.FormatInt(e.NewRevisionID, 10) + "," + e.Label.String()
}

// ParseLabeledEdit reverses LabeledEdit.String
func ParseLabeledEdit(s string) (LabeledEdit, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return LabeledEdit{}, perr.Malformedf("labeled edit: want 3 fields, got %d", len(parts))
	}
	old, err1 := strconv.ParseInt(parts[0], 10, 64)
	nw, err2 := strconv.ParseInt(parts[1], 10, 64)
	if err1 != nil || err2 != nil || old <= 0 || nw <= 0 {
		return LabeledEdit{}, perr.Malformedf("labeled edit %q: bad revision ids", s)
	}
	l, err := revision.ParseLabel(parts[2])
	if err != nil {
		return LabeledEdit{}, err
	}
	return LabeledEdit{OldRevisionID: old, NewRevisionID: nw, Label: l}, nil
}
