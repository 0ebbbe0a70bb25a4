// Package edit pairs two consecutive revisions of one page
package edit

import (
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/core/revision"
	perr "github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/errors"
)

// Edit is the change that turned Old into New on page PageID
type Edit struct {
	PageID int64
	Old    *revision.Revision
	New    *revision.Revision
}

// New returns the edit older -> newer; it fails unless newer continues older
func New(pageID int64, older, newer *revision.Revision) (*Edit, error) {
	if older == nil || newer == nil {
		return nil, perr.InvalidArgf("edit: missing revision")
	}
	if older.ID == newer.ID {
		return nil, perr.InvalidArgf("edit: revision %d cannot follow itself", newer.ID)
	}
	if newer.ParentID != older.ID {
		return nil, perr.InvalidArgf("edit: revision %d does not continue %d (parent %d)", newer.ID, older.ID, newer.ParentID)
	}
	return &Edit{PageID: pageID, Old: older, New: newer}, nil
}

// Pair tries both orders of a and b and returns the edit that is consistent
// a as old is tried first; ok is false when neither order links
func Pair(pageID int64, a, b *revision.Revision) (*Edit, bool) {
	if e, err := New(pageID, a, b); err == nil {
		return e, true
	}
	if e, err := New(pageID, b, a); err == nil {
		return e, true
	}
	return nil, false
}

// Swapped reports whether Pair chose b as the old side
func (e *Edit) Swapped(a *revision.Revision) bool { return e.Old != a }
