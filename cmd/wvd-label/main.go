// wvd-label derives training labels from a stub meta history dump: it splits the
// dump into <page> records and tags every edit of a sampled page as vandalism
// when the next revision restores the content it replaced, regular otherwise
//
// Modes:
//
//	map        page_key\told,new,R|V per edit (default)
//	count      page_key\tcount of labeled edits per page
//	revisions  availability CSV built from earlier map output files (or stdin)
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/adapters/dump"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/adapters/streaming"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/core/availability"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/core/mapred"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/core/page"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/core/version"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/config"
	perr "github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/errors"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/logger"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/metrics"

	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/services/extract/service"
)

const (
	svc    = "wvd-label"
	prefix = "CORE_LABEL_"
)

func mustSetEnv(key, val string) {
	if val != "" {
		_ = os.Setenv(key, val)
	}
}

func main() {
	var (
		fPages      = flag.String("pages", "", "page sample CSV with a page_id column (CORE_LABEL_PAGES_PATH)")
		fMode       = flag.String("mode", "", "map | count | revisions (CORE_LABEL_MODE)")
		fPartitions = flag.Int("partitions", 0, "reduce partitions in count mode")
		fWorkers    = flag.Int("workers", 0, "concurrent map tasks in count mode")
		fTask       = flag.String("task", os.Getenv("mapreduce_task_id"), "task id stamped into logs")
		fVersion    = flag.Bool("version", false, "print build info and exit")
	)
	flag.Parse()

	if *fVersion {
		_ = json.NewEncoder(os.Stdout).Encode(version.Info(svc))
		return
	}

	mustSetEnv(prefix+"PAGES_PATH", *fPages)
	mustSetEnv(prefix+"MODE", *fMode)
	if *fPartitions > 0 {
		mustSetEnv(prefix+"PARTITIONS", strconv.Itoa(*fPartitions))
	}
	if *fWorkers > 0 {
		mustSetEnv(prefix+"WORKERS", strconv.Itoa(*fWorkers))
	}

	logger.Init(logger.FromEnv())
	l := logger.Named(svc)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithTask(ctx, "label", *fTask)

	if err := run(ctx, config.New().Prefix(prefix), flag.Args()); err != nil {
		l.Error().Err(err).Str("code", perr.CodeOf(err).String()).Msg("label task failed")
		stop()
		os.Exit(perr.ExitCode(perr.CodeOf(err)))
	}
}

func run(ctx context.Context, cfg config.Conf, paths []string) error {
	l := logger.C(ctx)

	var pages *availability.PageSet
	if p := cfg.MayString("PAGES_PATH", ""); p != "" {
		var err error
		if pages, err = availability.LoadPagesFile(p); err != nil {
			return err
		}
		l.Info().Str("path", p).Int("pages", pages.Len()).Msg("page sample loaded")
	}
	if len(paths) == 0 {
		paths = []string{"-"}
	}

	switch mode := cfg.MayString("MODE", "map"); mode {
	case "map":
		return labelPages(ctx, paths, pages)
	case "count":
		return countPages(ctx, paths, pages, mapred.Local{
			Partitions: cfg.MayInt("PARTITIONS", 0),
			Workers:    cfg.MayInt("WORKERS", 0),
		})
	case "revisions":
		return revisionSet(ctx, paths, pages)
	default:
		return perr.Configf("unknown mode %q, want map, count or revisions", mode)
	}
}

// labelPages is the map only job: one labeled edit line per emission
func labelPages(ctx context.Context, paths []string, pages *availability.PageSet) error {
	lab := service.NewLabeler(pages, metrics.New(nil), nil)
	out := streaming.NewWriter(os.Stdout)

	var stats dump.Stats
	for _, p := range paths {
		r, err := openDump(p)
		if err != nil {
			return err
		}
		err = drain(ctx, r, lab, out)
		s := r.Stats()
		_ = r.Close()
		stats.Records += s.Records
		stats.Oversize += s.Oversize
		stats.Bytes += s.Bytes
		if err != nil {
			return perr.WithOp(err, "label "+p)
		}
	}
	if err := out.Flush(); err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnavailable, "flush stdout")
	}
	logger.C(ctx).Info().Int("files", len(paths)).Int64("pages", stats.Records).Int64("oversize", stats.Oversize).
		Int64("lines", out.Lines()).Interface("outcomes", lab.Tally().Snapshot()).Msg("label task finished")
	return nil
}

// countPages labels and shuffles in process, then counts labeled edits per page
func countPages(ctx context.Context, paths []string, pages *availability.PageSet, job mapred.Local) error {
	lab := service.NewLabeler(pages, metrics.New(nil), nil)
	out := streaming.NewWriter(os.Stdout)

	sources := make([]mapred.RecordSource, 0, len(paths))
	for _, p := range paths {
		r, err := openDump(p)
		if err != nil {
			return err
		}
		defer func() { _ = r.Close() }()
		sources = append(sources, r)
	}
	st, err := job.Run(ctx, sources, lab, service.CountEdits, out)
	if err != nil {
		return err
	}
	if err := out.Flush(); err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnavailable, "flush stdout")
	}
	logger.C(ctx).Info().Int64("pages", st.Groups).Int64("edits", st.Intermediate).
		Dur("map_time", st.MapTime).Dur("reduce_time", st.ReduceTime).
		Interface("outcomes", lab.Tally().Snapshot()).Msg("count task finished")
	return nil
}

// revisionSet converts earlier map output into the availability CSV the
// extraction job filters on
func revisionSet(ctx context.Context, paths []string, pages *availability.PageSet) error {
	set, err := service.NewRevisionSet(os.Stdout, pages)
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnavailable, "write header")
	}
	for _, p := range paths {
		var in io.ReadCloser = io.NopCloser(os.Stdin)
		if p != "-" {
			f, err := os.Open(p)
			if err != nil {
				return perr.Wrapf(err, perr.ErrorCodeConfig, "open %s", p)
			}
			in = f
		}
		err := drain(ctx, streaming.NewLineSource(in), streaming.IdentityMapper{}, set)
		_ = in.Close()
		if err != nil {
			return perr.WithOp(err, "revisions "+p)
		}
	}
	if err := set.Flush(); err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnavailable, "flush stdout")
	}
	logger.C(ctx).Info().Int("files", len(paths)).Int64("rows", set.Rows()).Msg("revision set written")
	return nil
}

// openDump splits a dump into <page> records; "-" reads stdin
func openDump(path string) (*dump.Reader, error) {
	opts := []dump.Option{dump.WithTags(page.StartTag, page.EndTag)}
	if path == "-" {
		return dump.NewReader(io.NopCloser(os.Stdin), append(opts, dump.WithName("stdin"))...)
	}
	return dump.Open(path, opts...)
}

func drain(ctx context.Context, src mapred.RecordSource, m mapred.Mapper, out mapred.Emitter) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		off, raw, err := src.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := m.Map(ctx, off, raw, out); err != nil {
			return err
		}
	}
}
