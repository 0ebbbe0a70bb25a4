// Package revision models a single page revision of a MediaWiki history dump
// and parses the <revision> XML fragments the dump splitter yields
package revision

import "time"

// Contributor is the author block of a revision
// exactly one of Username or IP is set unless Deleted
type Contributor struct {
	Username string
	IP       string
	ID       int64
	Deleted  bool
}

// Anonymous reports whether the edit was made by an unregistered user
func (c Contributor) Anonymous() bool { return c.IP != "" }

// Revision is one parsed revision; treat it as immutable once returned by Parse
type Revision struct {
	ID          int64
	ParentID    int64 // 0 when the revision created the page
	Timestamp   time.Time
	Contributor Contributor
	Comment     string
	Minor       bool
	Text        string
	TextDeleted bool
	SHA1        string
	Model       string
	Format      string
}

// HasParent reports whether the revision continues an earlier one
func (r *Revision) HasParent() bool { return r.ParentID != 0 }
