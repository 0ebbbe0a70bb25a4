package mapred

import (
	"context"
	"errors"
	"io"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	perr "github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/errors"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/logger"

	"golang.org/x/sync/errgroup"
)

// Local runs a whole job in process: map tasks, shuffle, reduce tasks
type Local struct {
	// Partitions is the number of reduce tasks; zero means one
	Partitions int
	// Workers bounds concurrently running tasks per phase; zero means GOMAXPROCS
	Workers int
}

// JobStats summarizes a finished local run
type JobStats struct {
	MapTasks     int
	Records      int64
	Intermediate int64
	Groups       int64
	Outputs      int64
	MapTime      time.Duration
	ReduceTime   time.Duration
}

// collector buffers emitted pairs of one task
type collector struct {
	kvs []KeyValue
}

func (c *collector) Emit(key, value string) error {
	c.kvs = append(c.kvs, KeyValue{Key: key, Value: value})
	return nil
}

// Run maps every source with m, shuffles, reduces every partition with r and
// writes the reduce output to sink in partition order
// any task error aborts the job and is returned
func (l Local) Run(ctx context.Context, sources []RecordSource, m Mapper, r Reducer, sink Emitter) (JobStats, error) {
	var st JobStats
	st.MapTasks = len(sources)
	parts := max(l.Partitions, 1)
	workers := l.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	log := logger.C(ctx)

	// map phase
	start := time.Now()
	outputs := make([][]KeyValue, len(sources))
	var records int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, src := range sources {
		g.Go(func() error {
			tctx := logger.WithTask(gctx, "map", strconv.Itoa(i))
			c := &collector{}
			n, err := runMapTask(tctx, src, m, c)
			atomic.AddInt64(&records, n)
			if err != nil {
				return perr.WithOp(err, "map task "+strconv.Itoa(i))
			}
			outputs[i] = c.kvs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return st, err
	}
	st.Records = records
	for _, o := range outputs {
		st.Intermediate += int64(len(o))
	}
	st.MapTime = time.Since(start)
	log.Debug().Int("tasks", st.MapTasks).Int64("records", st.Records).Int64("pairs", st.Intermediate).
		Dur("took", st.MapTime).Msg("map phase done")

	// shuffle
	partitions := Shuffle(outputs, parts)
	outputs = nil

	// reduce phase
	start = time.Now()
	results := make([][]KeyValue, parts)
	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for p, groups := range partitions {
		st.Groups += int64(len(groups))
		g.Go(func() error {
			tctx := logger.WithTask(gctx, "reduce", strconv.Itoa(p))
			c := &collector{}
			if err := runReduceTask(tctx, groups, r, c); err != nil {
				return perr.WithOp(err, "reduce task "+strconv.Itoa(p))
			}
			results[p] = c.kvs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return st, err
	}
	st.ReduceTime = time.Since(start)

	for _, res := range results {
		for _, kv := range res {
			if err := sink.Emit(kv.Key, kv.Value); err != nil {
				return st, err
			}
			st.Outputs++
		}
	}
	log.Debug().Int("partitions", parts).Int64("groups", st.Groups).Int64("outputs", st.Outputs).
		Dur("took", st.ReduceTime).Msg("reduce phase done")
	return st, nil
}

func runMapTask(ctx context.Context, src RecordSource, m Mapper, emit Emitter) (int64, error) {
	var n int64
	for {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		off, raw, err := src.Next()
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		n++
		if err := m.Map(ctx, off, raw, emit); err != nil {
			return n, err
		}
	}
}

func runReduceTask(ctx context.Context, groups []Group, r Reducer, emit Emitter) error {
	if br, ok := r.(BatchReducer); ok {
		return br.ReduceBatch(ctx, groups, emit)
	}
	for _, grp := range groups {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.Reduce(ctx, grp.Key, grp.Values, emit); err != nil {
			return err
		}
	}
	return nil
}
