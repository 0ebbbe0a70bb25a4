package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/core/revision"
	perr "github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/errors"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/metrics"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/testkit"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/services/extract/domain"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/services/extract/guardrails"

	"github.com/prometheus/client_golang/prometheus"
)

type memSink struct {
	mu      sync.Mutex
	name    string
	records []domain.Record
	writes  int
	err     error
}

func (s *memSink) Name() string { return s.name }

func (s *memSink) Write(_ context.Context, rs []domain.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.writes++
	s.records = append(s.records, rs...)
	return nil
}

func (s *memSink) Close(context.Context) error { return nil }

func writeDump(t *testing.T) string {
	t.Helper()
	return testkit.WriteFile(t, "dump.xml",
		"<mediawiki><page><title>Example</title><id>1</id>\n"+
			string(rev20)+"\n"+string(rev21)+"\n"+
			string(revXML(77, 76, "", "not sampled"))+
			"\n</page></mediawiki>\n")
}

func newTestJob(sinks []domain.Sink, m *metrics.Pipeline, lease guardrails.Lease, batch int) *Job {
	router := NewRouter(scenarioIndex(), nil, m, nil)
	red := NewReassembler(constCalc(0.25, 4), nil, m, nil, ReassemblerConfig{})
	return NewJob(router, red, sinks, m, lease, JobConfig{Partitions: 2, Workers: 2, SinkBatch: batch})
}

func TestJob_Run(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	a, b := &memSink{name: "a"}, &memSink{name: "b"}
	job := newTestJob([]domain.Sink{a, b}, metrics.New(reg), nil, 0)

	sum, err := job.Run(context.Background(), []string{writeDump(t)})
	if err != nil {
		t.Fatal(err)
	}
	if sum.Running || sum.RunID == "" || sum.Files != 1 {
		t.Fatalf("summary header = %+v", sum)
	}
	if sum.Records != 3 || sum.Emissions != 3 || sum.Outputs != 1 {
		t.Fatalf("summary counts = %+v", sum)
	}
	if sum.MapOutcomes[metrics.OutcomeFiltered] != 1 || sum.Reduce[metrics.OutcomeEmitted] != 1 || sum.Reduce[metrics.OutcomeIncomplete] != 1 {
		t.Fatalf("outcomes map=%v reduce=%v", sum.MapOutcomes, sum.Reduce)
	}
	for _, s := range []*memSink{a, b} {
		if len(s.records) != 1 {
			t.Fatalf("sink %s got %d records", s.name, len(s.records))
		}
		r := s.records[0]
		if r.PageID != 1 || r.OldRevisionID != 20 || r.NewRevisionID != 21 || r.Label != revision.LabelVandalism {
			t.Fatalf("record = %+v", r)
		}
		if len(r.Features) != 2 || r.Features[0] != 0.25 || r.Features[1] != 4 {
			t.Fatalf("features = %v", r.Features)
		}
		if sum.SinkRows[s.name] != 1 {
			t.Fatalf("sink rows = %v", sum.SinkRows)
		}
	}
	if v := metrics.CounterValue(reg, "wvd_sink_rows_total", "sink", "a"); v != 1 {
		t.Fatalf("sink counter = %v", v)
	}

	snap := job.Snapshot()
	if snap.RunID != sum.RunID || snap.Outputs != 1 {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestJob_RerunResetsCounters(t *testing.T) {
	t.Parallel()

	s := &memSink{name: "mem"}
	job := newTestJob([]domain.Sink{s}, nil, nil, 1)
	path := writeDump(t)
	first, err := job.Run(context.Background(), []string{path})
	if err != nil {
		t.Fatal(err)
	}
	second, err := job.Run(context.Background(), []string{path})
	if err != nil {
		t.Fatal(err)
	}
	if first.RunID == second.RunID {
		t.Fatal("each run gets its own id")
	}
	if second.Reduce[metrics.OutcomeEmitted] != 1 || second.SinkRows["mem"] != 1 {
		t.Fatalf("counters leaked across runs: %+v", second)
	}
	if len(s.records) != 2 || s.records[0].NewRevisionID != s.records[1].NewRevisionID {
		t.Fatalf("records = %+v", s.records)
	}
}

func TestJob_Errors(t *testing.T) {
	t.Parallel()

	job := newTestJob(nil, nil, nil, 0)
	if _, err := job.Run(context.Background(), nil); !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("no inputs: %v", err)
	}
	if _, err := job.Run(context.Background(), []string{"/does/not/exist.xml"}); !perr.IsCode(err, perr.ErrorCodeConfig) {
		t.Fatalf("missing dump: %v", err)
	}

	boom := errors.New("disk full")
	job = newTestJob([]domain.Sink{&memSink{name: "broken", err: boom}}, nil, nil, 0)
	sum, err := job.Run(context.Background(), []string{writeDump(t)})
	if !errors.Is(err, boom) {
		t.Fatalf("sink failure: %v", err)
	}
	if sum.Running {
		t.Fatal("a failed run is not running")
	}
}

func TestJob_LeaseHeld(t *testing.T) {
	t.Parallel()

	held := func(context.Context, string, string, func(context.Context) (int64, error)) error {
		return guardrails.ErrLeaseHeld
	}
	s := &memSink{name: "mem"}
	job := newTestJob([]domain.Sink{s}, nil, held, 0)
	if _, err := job.Run(context.Background(), []string{writeDump(t)}); !errors.Is(err, guardrails.ErrLeaseHeld) {
		t.Fatalf("err = %v", err)
	}
	if len(s.records) != 0 {
		t.Fatal("no work without the lease")
	}
}

func TestTally_NilSafe(t *testing.T) {
	t.Parallel()

	var tl *Tally
	tl.Add("x", 1)
	tl.Reset()
	if tl.Get("x") != 0 || len(tl.Snapshot()) != 0 {
		t.Fatal("nil tally must be inert")
	}
}
