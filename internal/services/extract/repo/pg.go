package repo

import (
	"context"

	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/modkit/repokit"
	perr "github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/errors"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/logger"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/store"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/services/extract/domain"

	"github.com/google/uuid"
)

const insertFeaturesSQL = `
	INSERT INTO edit_features (page_id, old_revision_id, new_revision_id, label, features, run_id)
	VALUES ($1, $2, $3, $4, $5, $6::uuid)
	ON CONFLICT (old_revision_id, new_revision_id) DO NOTHING`

// PGSink writes records into edit_features; re-running a job inserts nothing new
type PGSink struct {
	db    repokit.TxRunner
	chunk int
	retry store.RetryPolicy
	runID uuid.UUID
}

// NewPGSink writes through db in transactions of at most chunk rows
func NewPGSink(db repokit.TxRunner, chunk int, retry store.RetryPolicy) *PGSink {
	if db == nil {
		panic("extract.PGSink requires a non nil TxRunner")
	}
	if chunk <= 0 {
		chunk = 500
	}
	return &PGSink{db: db, chunk: chunk, retry: retry, runID: uuid.New()}
}

var _ domain.Sink = (*PGSink)(nil)

// Name implements domain.Sink
func (s *PGSink) Name() string { return "pg" }

// Write implements domain.Sink; rows carry the run id of ctx
func (s *PGSink) Write(ctx context.Context, rs []domain.Record) error {
	runID := s.runID
	if id, err := uuid.Parse(logger.RunID(ctx)); err == nil {
		runID = id
	}
	args := make([][]any, 0, len(rs))
	for _, r := range rs {
		args = append(args, []any{r.PageID, r.OldRevisionID, r.NewRevisionID, r.Label.String(), r.Features, runID})
	}
	for _, chunk := range store.Chunks(args, s.chunk) {
		var inserted int64
		err := store.RunTx(ctx, s.db, s.retry, func(ctx context.Context, q store.RowQuerier) error {
			n, err := repokit.ExecBatch(ctx, q, insertFeaturesSQL, chunk)
			inserted = n
			return err
		})
		if err != nil {
			return perr.FromPostgresf(err, "pg sink: write %d rows", len(chunk))
		}
		logger.C(ctx).Debug().Int("rows", len(chunk)).Int64("inserted", inserted).Msg("pg sink chunk written")
	}
	return nil
}

// Close implements domain.Sink; the pool belongs to the store
func (s *PGSink) Close(context.Context) error { return nil }
