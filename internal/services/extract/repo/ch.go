package repo

import (
	"context"

	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/logger"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/store"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/services/extract/domain"

	"github.com/google/uuid"
)

var chColumns = []string{"page_id", "old_revision_id", "new_revision_id", "label", "features", "run_id"}

// CHSink appends records to the edit_features table of ClickHouse
// the ReplacingMergeTree engine collapses re-runs on merge
type CHSink struct {
	ch    store.Clickhouse
	retry store.RetryPolicy
	runID uuid.UUID
}

// NewCHSink writes through ch
func NewCHSink(ch store.Clickhouse, retry store.RetryPolicy) *CHSink {
	if ch == nil {
		panic("extract.CHSink requires a clickhouse seam")
	}
	return &CHSink{ch: ch, retry: retry, runID: uuid.New()}
}

var _ domain.Sink = (*CHSink)(nil)

// Name implements domain.Sink
func (s *CHSink) Name() string { return "ch" }

// Write implements domain.Sink
func (s *CHSink) Write(ctx context.Context, rs []domain.Record) error {
	runID := s.runID
	if id, err := uuid.Parse(logger.RunID(ctx)); err == nil {
		runID = id
	}
	rows := make([][]any, 0, len(rs))
	for _, r := range rs {
		rows = append(rows, []any{r.PageID, r.OldRevisionID, r.NewRevisionID, r.Label.String(), r.Features, runID})
	}
	return store.Retry(ctx, s.retry, func(ctx context.Context) error {
		return s.ch.Insert(ctx, "edit_features", chColumns, rows)
	})
}

// Close implements domain.Sink; the connection belongs to the store
func (s *CHSink) Close(context.Context) error { return nil }
