// wvd-reduce is the streaming reduce task: it reads key sorted key\tvalue lines
// from stdin, reassembles each edit and writes one feature line per edit
//
// Given files instead of stdin it runs a local reduce-only job over previously
// mapped output, which needs no sorting
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/adapters/streaming"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/core/mapred"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/core/version"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/modkit"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/config"
	perr "github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/errors"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/logger"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/metrics"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/store"

	extractmod "github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/services/extract/module"
)

const service = "wvd-reduce"

func mustSetEnv(key, val string) {
	if val != "" {
		_ = os.Setenv(key, val)
	}
}

func main() {
	var (
		fIndex    = flag.String("index", "", "availability index file (CORE_EXTRACT_INDEX_PATH)")
		fSource   = flag.String("index-source", "", "availability index source: file | pg")
		fFeatures = flag.String("features", "", "comma separated feature names, empty for all")
		fDelim    = flag.String("delimiter", "", "output delimiter: comma | tab")
		fEmpty    = flag.Bool("allow-empty", false, "write edits whose feature vector is empty")
		fWorkers  = flag.Int("workers", 0, "concurrent reassembly workers, 0 for GOMAXPROCS")
		fTask     = flag.String("task", os.Getenv("mapreduce_task_id"), "task id stamped into logs")
		fVersion  = flag.Bool("version", false, "print build info and exit")
	)
	flag.Parse()

	if *fVersion {
		_ = json.NewEncoder(os.Stdout).Encode(version.Info(service))
		return
	}

	mustSetEnv(extractmod.DefaultPrefix+"INDEX_PATH", *fIndex)
	mustSetEnv(extractmod.DefaultPrefix+"INDEX_SOURCE", *fSource)
	mustSetEnv(extractmod.DefaultPrefix+"FEATURES", *fFeatures)
	mustSetEnv(extractmod.DefaultPrefix+"DELIMITER", *fDelim)
	if *fEmpty {
		mustSetEnv(extractmod.DefaultPrefix+"ALLOW_EMPTY", "1")
	}
	if *fWorkers > 0 {
		mustSetEnv(extractmod.DefaultPrefix+"WORKERS", strconv.Itoa(*fWorkers))
	}

	logger.Init(logger.FromEnv())
	l := logger.Named(service)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithTask(ctx, "reduce", *fTask)

	if err := run(ctx, flag.Args()); err != nil {
		l.Error().Err(err).Str("code", perr.CodeOf(err).String()).Msg("reduce task failed")
		stop()
		os.Exit(perr.ExitCode(perr.CodeOf(err)))
	}
}

func run(ctx context.Context, paths []string) error {
	l := logger.C(ctx)

	st, err := store.Open(ctx, store.ConfigFromEnv(service), store.WithLogger(*logger.Get()))
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	mod, err := extractmod.New(ctx, modkit.Deps{
		Log:     *l,
		Cfg:     config.New(),
		PG:      st.PG,
		CH:      st.CH,
		Metrics: metrics.New(nil),
	})
	if err != nil {
		return err
	}
	ports := modkit.MustPortsOf[extractmod.Ports](mod)
	out := streaming.NewDelimitedWriter(os.Stdout, ports.Delimiter)

	var groups int64
	if len(paths) == 0 {
		err = mapred.GroupSorted(os.Stdin, func(key string, values []string) error {
			groups++
			return ports.Reducer.Reduce(ctx, key, values, out)
		})
	} else {
		groups, err = reduceFiles(ctx, paths, mod.Options(), ports, out)
	}
	if err != nil {
		return err
	}
	if err := out.Flush(); err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnavailable, "flush stdout")
	}

	l.Info().Int64("groups", groups).Int64("outputs", out.Lines()).
		Interface("outcomes", ports.Reducer.Tally().Snapshot()).Msg("reduce task finished")
	return nil
}

// reduceFiles shuffles unsorted key\tvalue files in process before reducing
func reduceFiles(ctx context.Context, paths []string, opts extractmod.Options, ports extractmod.Ports, out *streaming.Writer) (int64, error) {
	sources := make([]mapred.RecordSource, 0, len(paths))
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return 0, perr.Wrapf(err, perr.ErrorCodeConfig, "open %s", p)
		}
		defer func() { _ = f.Close() }()
		sources = append(sources, streaming.NewLineSource(f))
	}
	st, err := mapred.Local{Partitions: opts.Partitions, Workers: opts.Workers}.
		Run(ctx, sources, streaming.IdentityMapper{}, ports.Reducer, out)
	return st.Groups, err
}
