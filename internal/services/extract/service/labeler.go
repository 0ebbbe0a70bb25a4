package service

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"

	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/core/availability"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/core/mapred"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/core/page"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/logger"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/metrics"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/services/extract/domain"
)

// Labeler is the map stage of the labeling job: it reads whole <page> records,
// keeps the sampled pages and emits every edit tagged by revert detection
type Labeler struct {
	pages   *availability.PageSet
	metrics *metrics.Pipeline
	tally   *Tally
}

// NewLabeler wires a labeler; a nil page set labels every page
func NewLabeler(pages *availability.PageSet, m *metrics.Pipeline, t *Tally) *Labeler {
	if t == nil {
		t = NewTally()
	}
	return &Labeler{pages: pages, metrics: m, tally: t}
}

var _ mapred.Mapper = (*Labeler)(nil)

// Map handles one raw <page> record
func (l *Labeler) Map(ctx context.Context, offset int64, raw []byte, emit mapred.Emitter) error {
	id, ok := page.PeekID(raw)
	if !ok {
		l.malformed(ctx, offset, 0, "page without a readable id")
		return nil
	}
	if !l.pages.Contains(id) {
		l.count(metrics.OutcomeFiltered)
		return nil
	}
	p, err := page.Parse(raw)
	if err != nil {
		l.malformed(ctx, offset, id, err.Error())
		return nil
	}

	key := domain.PageKey{PageID: p.ID, Title: p.Title, Revisions: len(p.Revisions)}.String()
	edits := p.Label()
	for _, e := range edits {
		v := domain.LabeledEdit{OldRevisionID: e.OldID, NewRevisionID: e.NewID, Label: e.Label}
		if err := emit.Emit(key, v.String()); err != nil {
			return err
		}
		l.tally.Add(e.Label.Long(), 1)
	}

	l.count(metrics.OutcomeEmitted)
	l.metrics.MapEmitted(len(edits))
	l.tally.Add("emissions", int64(len(edits)))
	return nil
}

// Tally returns the labeler's outcome counts
func (l *Labeler) Tally() *Tally { return l.tally }

func (l *Labeler) count(outcome string) {
	l.metrics.MapRecord(outcome)
	l.tally.Add(outcome, 1)
}

func (l *Labeler) malformed(ctx context.Context, offset, id int64, why string) {
	l.count(metrics.OutcomeMalformed)
	logger.C(ctx).Warn().Int64("offset", offset).Int64("page_id", id).Str("reason", why).
		Msg("skipping malformed page")
}

// CountEdits is the reduce stage of the per page count: it writes the number
// of non empty labeled edits of each page key
var CountEdits = mapred.ReducerFunc(func(_ context.Context, key string, values []string, emit mapred.Emitter) error {
	n := 0
	for _, v := range values {
		if v != "" {
			n++
		}
	}
	return emit.Emit(key, strconv.Itoa(n))
})

// RevisionSet turns labeled edits into an availability CSV: one
// page_id,revision_id,simple_vandalism row per edit, keyed by the new revision
type RevisionSet struct {
	w     *csv.Writer
	pages *availability.PageSet
	rows  int64
}

// NewRevisionSet writes the header; a nil page set keeps every page
func NewRevisionSet(w io.Writer, pages *availability.PageSet) (*RevisionSet, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"page_id", "revision_id", "simple_vandalism"}); err != nil {
		return nil, err
	}
	return &RevisionSet{w: cw, pages: pages}, nil
}

var _ mapred.Emitter = (*RevisionSet)(nil)

// Emit accepts one labeling job output pair
func (s *RevisionSet) Emit(key, value string) error {
	k, err := domain.ParsePageKey(key)
	if err != nil {
		return err
	}
	if !s.pages.Contains(k.PageID) {
		return nil
	}
	e, err := domain.ParseLabeledEdit(value)
	if err != nil {
		return err
	}
	s.rows++
	return s.w.Write([]string{
		strconv.FormatInt(k.PageID, 10),
		strconv.FormatInt(e.NewRevisionID, 10),
		e.Label.String(),
	})
}

// Rows returns the number of rows written after the header
func (s *RevisionSet) Rows() int64 { return s.rows }

// Flush flushes buffered rows
func (s *RevisionSet) Flush() error {
	s.w.Flush()
	return s.w.Error()
}
