//go:build integration_pg

package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/core/revision"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/modkit/repokit"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/logger"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/store"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/testkit/pgtc"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/services/extract/guardrails"

	"github.com/google/uuid"
)

func openPG(t *testing.T) repokit.TxRunner {
	t.Helper()
	ctx := context.Background()
	st, err := store.Open(ctx, store.Config{
		AppName: "wvd-test",
		PG: store.PGConfig{
			Enabled: true, URL: pgtc.Start(t), MaxConns: 4,
			ConnectRetries: 10, PingTimeout: 3 * time.Second,
		},
	})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close(ctx) })
	if err := EnsurePGSchema(ctx, st.PG); err != nil {
		t.Fatalf("schema: %v", err)
	}
	return st.PG
}

func TestPG_SinkAndAvailability(t *testing.T) {
	ctx := context.Background()
	db := openPG(t)

	if _, err := db.Exec(ctx, `INSERT INTO revision_samples (revision_id, page_id, label) VALUES (20, 1, 'R'), (21, 1, 'V')`); err != nil {
		t.Fatal(err)
	}
	idx, err := LoadAvailability(ctx, db)
	if err != nil {
		t.Fatal(err)
	}
	if e, ok := idx.Lookup(21); !ok || e.Label != revision.LabelVandalism || e.PageID != 1 {
		t.Fatalf("lookup = %+v %v", e, ok)
	}

	hooked := repokit.WithBeginHooks(db, repokit.AsyncCommit(), repokit.StatementTimeout(5*time.Second))
	sink := NewPGSink(hooked, 2, store.DefaultRetry)
	runCtx := logger.WithRun(ctx, uuid.NewString())
	for range 2 {
		if err := sink.Write(runCtx, sample); err != nil {
			t.Fatal(err)
		}
	}

	n, err := store.Scalar[int64](ctx, db, `SELECT count(*) FROM edit_features`)
	if err != nil || n != int64(len(sample)) {
		t.Fatalf("rows = %d, %v (re-writes must not duplicate)", n, err)
	}
	var feats []float64
	if err := db.QueryRow(ctx, `SELECT features FROM edit_features WHERE new_revision_id = 21`).Scan(&feats); err != nil {
		t.Fatal(err)
	}
	if len(feats) != 2 || feats[1] != 0.5 {
		t.Fatalf("features = %v", feats)
	}
}

func TestPG_RunLease(t *testing.T) {
	ctx := context.Background()
	db := openPG(t)
	lease := guardrails.MakeRunLease(db)

	inner := errors.New("second run must not start")
	err := lease(ctx, "extract", uuid.NewString(), func(ctx context.Context) (int64, error) {
		err := lease(ctx, "extract", uuid.NewString(), func(context.Context) (int64, error) { return 0, inner })
		if !errors.Is(err, guardrails.ErrLeaseHeld) {
			t.Errorf("nested run: %v", err)
		}
		return 7, nil
	})
	if err != nil {
		t.Fatal(err)
	}

	status, err := store.Scalar[string](ctx, db, `SELECT status FROM extract_runs WHERE outputs = 7`)
	if err != nil || status != "done" {
		t.Fatalf("status = %q, %v", status, err)
	}

	// released: the next run may start
	if err := lease(ctx, "extract", uuid.NewString(), func(context.Context) (int64, error) { return 0, nil }); err != nil {
		t.Fatalf("after release: %v", err)
	}
}
