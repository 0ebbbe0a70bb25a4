package repo

import (
	"context"

	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/modkit/repokit"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/store"
)

var pgSchema = []string{
	`CREATE TABLE IF NOT EXISTS revision_samples (
		revision_id bigint PRIMARY KEY,
		page_id     bigint NOT NULL,
		label       text   NOT NULL CHECK (label IN ('R', 'V'))
	)`,
	`CREATE TABLE IF NOT EXISTS edit_features (
		page_id         bigint NOT NULL,
		old_revision_id bigint NOT NULL,
		new_revision_id bigint NOT NULL,
		label           text   NOT NULL,
		features        double precision[] NOT NULL,
		run_id          uuid   NOT NULL,
		created_at      timestamptz NOT NULL DEFAULT now(),
		PRIMARY KEY (old_revision_id, new_revision_id)
	)`,
	`CREATE TABLE IF NOT EXISTS extract_runs (
		run_id      uuid PRIMARY KEY,
		job         text NOT NULL,
		status      text NOT NULL,
		started_at  timestamptz NOT NULL,
		finished_at timestamptz,
		outputs     bigint,
		error       text
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS extract_runs_one_running
		ON extract_runs (job) WHERE status = 'running'`,
}

const chSchema = `
	CREATE TABLE IF NOT EXISTS edit_features (
		page_id         Int64,
		old_revision_id Int64,
		new_revision_id Int64,
		label           LowCardinality(String),
		features        Array(Float64),
		run_id          UUID,
		inserted_at     DateTime DEFAULT now()
	) ENGINE = ReplacingMergeTree(inserted_at)
	ORDER BY (old_revision_id, new_revision_id)`

// EnsurePGSchema creates the extract tables when missing
func EnsurePGSchema(ctx context.Context, db repokit.TxRunner) error {
	return repokit.WithTx(ctx, db, func(q repokit.Queryer) error {
		for _, stmt := range pgSchema {
			if _, err := q.Exec(ctx, stmt); err != nil {
				return err
			}
		}
		return nil
	})
}

// EnsureCHSchema creates the ClickHouse output table when missing
func EnsureCHSchema(ctx context.Context, ch store.Clickhouse) error {
	return ch.Exec(ctx, chSchema)
}
