package revision

import (
	"strings"

	perr "github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/errors"
)

// Label is the training class of an edit as recorded in the availability index
type Label uint8

const (
	// LabelRegular marks a good faith edit
	LabelRegular Label = iota + 1
	// LabelVandalism marks a vandalism edit
	LabelVandalism
)

// ParseLabel accepts the short codes R and V and the long names, case insensitive
func ParseLabel(s string) (Label, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "r", "regular":
		return LabelRegular, nil
	case "v", "vandalism":
		return LabelVandalism, nil
	}
	return 0, perr.Malformedf("unknown label %q", s)
}

// String returns the short code written to records
func (l Label) String() string {
	switch l {
	case LabelRegular:
		return "R"
	case LabelVandalism:
		return "V"
	}
	return "?"
}

// Long returns the class name used by the classifier file formats
func (l Label) Long() string {
	switch l {
	case LabelRegular:
		return "regular"
	case LabelVandalism:
		return "vandalism"
	}
	return "unknown"
}

// Valid reports whether l is one of the two known labels
func (l Label) Valid() bool { return l == LabelRegular || l == LabelVandalism }
