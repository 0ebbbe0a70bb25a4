package guardrails

import (
	"context"
	"errors"

	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/modkit/repokit"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/logger"
)

// ErrLeaseHeld signals another run of the same job is still marked running
var ErrLeaseHeld = errors.New("extract: job lease already held")

// Lease runs do while holding the named job; do reports how many records it wrote
type Lease func(ctx context.Context, job, runID string, do func(context.Context) (int64, error)) error

// NoLease runs do without any coordination
func NoLease(ctx context.Context, _, _ string, do func(context.Context) (int64, error)) error {
	_, err := do(ctx)
	return err
}

// MakeRunLease claims the job in extract_runs, runs do and records the outcome
// the partial unique index on running rows makes concurrent runs of one job fail fast with ErrLeaseHeld
// a crashed run leaves its row running; clear it with UPDATE extract_runs SET status = 'failed'
func MakeRunLease(db repokit.TxRunner) Lease {
	return func(ctx context.Context, job, runID string, do func(context.Context) (int64, error)) error {
		var claimed bool
		err := db.Tx(ctx, func(q repokit.Queryer) error {
			rows, err := q.Query(ctx, `
				insert into extract_runs (run_id, job, status, started_at)
				values ($1, $2, 'running', now())
				on conflict do nothing
				returning true
			`, runID, job)
			if err != nil {
				return err
			}
			defer rows.Close()
			claimed = rows.Next()
			return rows.Err()
		})
		if err != nil {
			return err
		}
		if !claimed {
			return ErrLeaseHeld
		}

		outputs, runErr := do(ctx)
		status, errText := "done", ""
		if runErr != nil {
			status, errText = "failed", runErr.Error()
		}
		// release on a fresh context so a cancelled run still records its outcome
		_, err = db.Exec(context.WithoutCancel(ctx), `
			update extract_runs
			set status = $2, finished_at = now(), outputs = $3, error = nullif($4, '')
			where run_id = $1
		`, runID, status, outputs, errText)
		if err != nil {
			logger.C(ctx).Error().Err(err).Str("job", job).Msg("failed to release run lease")
		}
		return runErr
	}
}
