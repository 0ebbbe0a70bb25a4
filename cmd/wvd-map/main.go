// wvd-map is the streaming map task: it splits revision dumps into records and
// writes one routed key\tvalue line per emission to stdout
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/adapters/dump"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/adapters/streaming"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/core/version"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/modkit"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/config"
	perr "github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/errors"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/logger"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/metrics"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/store"

	extractmod "github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/services/extract/module"
)

const service = "wvd-map"

func mustSetEnv(key, val string) {
	if val != "" {
		_ = os.Setenv(key, val)
	}
}

func main() {
	var (
		fIndex   = flag.String("index", "", "availability index file (CORE_EXTRACT_INDEX_PATH)")
		fSource  = flag.String("index-source", "", "availability index source: file | pg")
		fStart   = flag.String("start-tag", "", "record start tag (CORE_EXTRACT_START_TAG)")
		fEnd     = flag.String("end-tag", "", "record end tag (CORE_EXTRACT_END_TAG)")
		fLevel   = flag.String("compression", "", "zlib level for encoded payloads, -2..9")
		fTask    = flag.String("task", os.Getenv("mapreduce_task_id"), "task id stamped into logs")
		fVersion = flag.Bool("version", false, "print build info and exit")
	)
	flag.Parse()

	if *fVersion {
		_ = json.NewEncoder(os.Stdout).Encode(version.Info(service))
		return
	}

	mustSetEnv(extractmod.DefaultPrefix+"INDEX_PATH", *fIndex)
	mustSetEnv(extractmod.DefaultPrefix+"INDEX_SOURCE", *fSource)
	mustSetEnv(extractmod.DefaultPrefix+"START_TAG", *fStart)
	mustSetEnv(extractmod.DefaultPrefix+"END_TAG", *fEnd)
	mustSetEnv(extractmod.DefaultPrefix+"COMPRESSION_LEVEL", *fLevel)

	logger.Init(logger.FromEnv())
	l := logger.Named(service)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithTask(ctx, "map", *fTask)

	if err := run(ctx, flag.Args()); err != nil {
		l.Error().Err(err).Str("code", perr.CodeOf(err).String()).Msg("map task failed")
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

	out := streaming.NewWriter(os.Stdout)
	if len(paths) == 0 {
		paths = []string{"-"}
	}
	var stats dump.Stats
	for _, p := range paths {
		s, err := mapFile(ctx, p, ports, out)
		stats.Records += s.Records
		stats.Oversize += s.Oversize
		stats.Bytes += s.Bytes
		if err != nil {
			return perr.WithOp(err, "map "+p)
		}
	}
	if err := out.Flush(); err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnavailable, "flush stdout")
	}

	l.Info().Int("files", len(paths)).Int64("records", stats.Records).Int64("oversize", stats.Oversize).
		Int64("bytes", stats.Bytes).Int64("lines", out.Lines()).
		Interface("outcomes", ports.Router.Tally().Snapshot()).Msg("map task finished")
	return nil
}

// mapFile routes every record of one dump; "-" reads stdin
func mapFile(ctx context.Context, path string, ports extractmod.Ports, out *streaming.Writer) (dump.Stats, error) {
	var (
		r   *dump.Reader
		err error
	)
	if path == "-" {
		r, err = dump.NewReader(io.NopCloser(os.Stdin), append([]dump.Option{dump.WithName("stdin")}, ports.Dump...)...)
	} else {
		r, err = dump.Open(path, ports.Dump...)
	}
	if err != nil {
		return dump.Stats{}, err
	}
	defer func() { _ = r.Close() }()

	for {
		if err := ctx.Err(); err != nil {
			return r.Stats(), err
		}
		off, raw, err := r.Next()
		if errors.Is(err, io.EOF) {
			return r.Stats(), nil
		}
		if err != nil {
			return r.Stats(), err
		}
		if err := ports.Router.Map(ctx, off, raw, out); err != nil {
			return r.Stats(), err
		}
	}
}
