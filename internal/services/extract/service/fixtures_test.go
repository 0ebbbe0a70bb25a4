package service

import (
	"fmt"
	"io"
	"strings"

	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/core/availability"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/core/edit"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/core/revision"
)

// revXML renders a minimal dump <revision>; parent 0 omits <parentid>
func revXML(id, parent int64, ip, text string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "<revision>\n  <id>%d</id>\n", id)
	if parent != 0 {
		fmt.Fprintf(&b, "  <parentid>%d</parentid>\n", parent)
	}
	b.WriteString("  <timestamp>2004-05-10T13:10:00Z</timestamp>\n")
	if ip != "" {
		fmt.Fprintf(&b, "  <contributor><ip>%s</ip></contributor>\n", ip)
	} else {
		b.WriteString("  <contributor><username>Alice</username><id>3</id></contributor>\n")
	}
	fmt.Fprintf(&b, "  <text xml:space=\"preserve\">%s</text>\n</revision>", text)
	return []byte(b.String())
}

var (
	rev20 = revXML(20, 0, "", "The city lies on the river.")
	rev21 = revXML(21, 20, "10.0.0.1", "The city lies on the river. YOU SUCK lol")
)

func scenarioIndex() *availability.Index {
	b := availability.NewBuilder()
	_ = b.Add(20, availability.Entry{PageID: 1, Label: revision.LabelRegular})
	_ = b.Add(21, availability.Entry{PageID: 1, Label: revision.LabelVandalism})
	return b.Build()
}

type calcFunc func(*edit.Edit) ([]float64, error)

func (f calcFunc) Calculate(e *edit.Edit) ([]float64, error) { return f(e) }
func (calcFunc) Names() []string                              { return []string{"fake"} }

func constCalc(v ...float64) calcFunc {
	return func(*edit.Edit) ([]float64, error) { return v, nil }
}

// sliceSource serves records from memory
type sliceSource struct {
	recs [][]byte
	i    int
}

func (s *sliceSource) Next() (int64, []byte, error) {
	if s.i >= len(s.recs) {
		return 0, nil, io.EOF
	}
	s.i++
	return int64(s.i - 1), s.recs[s.i-1], nil
}
