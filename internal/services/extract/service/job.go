package service

import (
	"context"
	"sync"
	"time"

	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/adapters/dump"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/core/mapred"
	perr "github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/errors"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/logger"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/metrics"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/services/extract/domain"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/services/extract/guardrails"

	"github.com/google/uuid"
)

// JobConfig tunes a local run
type JobConfig struct {
	Name       string // lease name, defaults to "extract"
	Partitions int
	Workers    int
	Delimiter  string
	SinkBatch  int // records per sink write; <=0 -> 1000
	Timeouts   guardrails.Timeouts
	Dump       []dump.Option
}

// Job chains router, shuffle and reassembler in process and feeds the output to sinks
type Job struct {
	router  *Router
	reducer *Reassembler
	sinks   []domain.Sink
	metrics *metrics.Pipeline
	lease   guardrails.Lease
	cfg     JobConfig

	mapT, redT, sinkT *Tally

	mu      sync.Mutex
	current domain.Summary
}

// NewJob wires a job; its summary reads the tallies of router and reducer
func NewJob(router *Router, reducer *Reassembler, sinks []domain.Sink, m *metrics.Pipeline, lease guardrails.Lease, cfg JobConfig) *Job {
	if router == nil || reducer == nil {
		panic("extract.Job requires a router and a reassembler")
	}
	if lease == nil {
		lease = guardrails.NoLease
	}
	if cfg.Name == "" {
		cfg.Name = "extract"
	}
	if cfg.SinkBatch <= 0 {
		cfg.SinkBatch = 1000
	}
	if cfg.Delimiter == "" {
		cfg.Delimiter = reducer.cfg.Delimiter
	}
	return &Job{
		router: router, reducer: reducer, sinks: sinks, metrics: m, lease: lease, cfg: cfg,
		mapT: router.tally, redT: reducer.tally, sinkT: NewTally(),
	}
}

var _ domain.JobPort = (*Job)(nil)

// Run maps every dump file, reduces and writes the output records to every sink
// it returns the final summary even when the run fails
func (j *Job) Run(ctx context.Context, paths []string) (domain.Summary, error) {
	if len(paths) == 0 {
		return domain.Summary{}, perr.InvalidArgf("extract: no input files")
	}
	runID := uuid.NewString()
	ctx = logger.WithRun(ctx, runID)
	ctx, cancel := guardrails.WithJob(ctx, j.cfg.Timeouts)
	defer cancel()
	log := logger.C(ctx)

	j.mapT.Reset()
	j.redT.Reset()
	j.sinkT.Reset()
	j.mu.Lock()
	j.current = domain.Summary{RunID: runID, Running: true, StartedAt: time.Now().UTC(), Files: len(paths)}
	j.mu.Unlock()

	var readers []*dump.Reader
	defer func() {
		for _, r := range readers {
			_ = r.Close()
		}
	}()

	err := j.lease(ctx, j.cfg.Name, runID, func(ctx context.Context) (int64, error) {
		sources := make([]mapred.RecordSource, 0, len(paths))
		for _, p := range paths {
			r, err := dump.Open(p, append([]dump.Option{dump.WithName(p)}, j.cfg.Dump...)...)
			if err != nil {
				return 0, err
			}
			readers = append(readers, r)
			sources = append(sources, r)
		}

		out := &batchSink{ctx: ctx, job: j}
		st, err := mapred.Local{Partitions: j.cfg.Partitions, Workers: j.cfg.Workers}.
			Run(ctx, sources, j.router, j.reducer, out)
		if err == nil {
			err = out.flush(ctx)
		}
		j.mu.Lock()
		j.current.Groups = st.Groups
		j.current.Outputs = st.Outputs
		j.mu.Unlock()
		return st.Outputs, err
	})

	sum := j.Snapshot()
	for _, r := range readers {
		s := r.Stats()
		sum.Records += s.Records
		sum.Oversize += s.Oversize
		sum.Bytes += s.Bytes
	}
	sum.Running = false
	sum.Elapsed = time.Since(sum.StartedAt).Round(time.Millisecond).String()

	j.mu.Lock()
	j.current = sum
	j.mu.Unlock()

	ev := log.Info()
	if err != nil {
		ev = log.Error().Err(err)
	}
	ev.Int("files", sum.Files).Int64("records", sum.Records).Int64("emissions", sum.Emissions).
		Int64("groups", sum.Groups).Int64("outputs", sum.Outputs).
		Interface("map", sum.MapOutcomes).Interface("reduce", sum.Reduce).Interface("sinks", sum.SinkRows).
		Str("elapsed", sum.Elapsed).Msg("extract run finished")
	return sum, err
}

// Snapshot returns the counters of the current or last run
func (j *Job) Snapshot() domain.Summary {
	j.mu.Lock()
	sum := j.current
	j.mu.Unlock()

	sum.MapOutcomes = j.mapT.Snapshot()
	sum.Emissions = sum.MapOutcomes["emissions"]
	delete(sum.MapOutcomes, "emissions")
	sum.Reduce = j.redT.Snapshot()
	sum.SinkRows = j.sinkT.Snapshot()
	if sum.Running {
		sum.Elapsed = time.Since(sum.StartedAt).Round(time.Millisecond).String()
	}
	return sum
}

// batchSink turns reduce output back into records and writes them in batches
type batchSink struct {
	ctx context.Context
	job *Job
	buf []domain.Record
}

func (b *batchSink) Emit(key, value string) error {
	rec, err := domain.ParseRecord(key, value, b.job.cfg.Delimiter)
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeInvariant, "reduce output does not parse back")
	}
	b.buf = append(b.buf, rec)
	if len(b.buf) >= b.job.cfg.SinkBatch {
		return b.flush(b.ctx)
	}
	return nil
}

func (b *batchSink) flush(ctx context.Context) error {
	if len(b.buf) == 0 {
		return nil
	}
	for _, s := range b.job.sinks {
		sctx, cancel := guardrails.ForSink(ctx, b.job.cfg.Timeouts)
		err := s.Write(sctx, b.buf)
		cancel()
		if err != nil {
			return perr.WithOp(err, "sink "+s.Name())
		}
		b.job.metrics.SinkWrote(s.Name(), len(b.buf))
		b.job.sinkT.Add(s.Name(), int64(len(b.buf)))
	}
	b.buf = b.buf[:0]
	return nil
}
