// wvd-extract runs the whole map, shuffle and reduce job in process over dump
// files and writes feature lines to a file plus the optional database sinks
package main

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/core/version"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/modkit"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/config"
	perr "github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/errors"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/logger"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/metrics"
	phttp "github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/net/http"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/store"

	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/services/extract/domain"
	extractmod "github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/services/extract/module"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/services/extract/repo"
)

const service = "wvd-extract"

func mustSetEnv(key, val string) {
	if val != "" {
		_ = os.Setenv(key, val)
	}
}

func boolEnv(b bool) string { return map[bool]string{true: "1", false: "0"}[b] }

func main() {
	var (
		fIndex      = flag.String("index", "", "availability index file (CORE_EXTRACT_INDEX_PATH)")
		fSource     = flag.String("index-source", "", "availability index source: file | pg")
		fOut        = flag.String("out", "-", "output file, - for stdout")
		fFeatures   = flag.String("features", "", "comma separated feature names, empty for all")
		fDelim      = flag.String("delimiter", "", "output delimiter: comma | tab")
		fPartitions = flag.Int("partitions", 0, "reduce partitions, 0 keeps CORE_EXTRACT_PARTITIONS")
		fWorkers    = flag.Int("workers", 0, "concurrent tasks per phase, 0 for GOMAXPROCS")
		fPG         = flag.Bool("pg", false, "also write records to postgres (PG_URL)")
		fCH         = flag.Bool("ch", false, "also write records to clickhouse (CH_URL)")
		fSchema     = flag.Bool("ensure-schema", false, "create sink tables when missing")
		fLease      = flag.Bool("lease", false, "claim a postgres run lease so only one job runs at a time")
		fOps        = flag.String("ops", "", "ops server address, empty disables it (OPS_ADDR)")
		fVersion    = flag.Bool("version", false, "print build info and exit")
	)
	flag.Parse()

	if *fVersion {
		_ = json.NewEncoder(os.Stdout).Encode(version.Info(service))
		return
	}

	p := extractmod.DefaultPrefix
	mustSetEnv(p+"INDEX_PATH", *fIndex)
	mustSetEnv(p+"INDEX_SOURCE", *fSource)
	mustSetEnv(p+"FEATURES", *fFeatures)
	mustSetEnv(p+"DELIMITER", *fDelim)
	if *fPartitions > 0 {
		mustSetEnv(p+"PARTITIONS", strconv.Itoa(*fPartitions))
	}
	if *fWorkers > 0 {
		mustSetEnv(p+"WORKERS", strconv.Itoa(*fWorkers))
	}
	if *fPG {
		mustSetEnv(p+"SINK_PG", boolEnv(*fPG))
	}
	if *fCH {
		mustSetEnv(p+"SINK_CH", boolEnv(*fCH))
	}
	if *fSchema {
		mustSetEnv(p+"ENSURE_SCHEMA", boolEnv(*fSchema))
	}
	if *fLease {
		mustSetEnv(p+"LEASE", boolEnv(*fLease))
	}
	mustSetEnv("OPS_ADDR", *fOps)

	logger.Init(logger.FromEnv())
	l := logger.Named(service)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *fOut, flag.Args()); err != nil {
		l.Error().Err(err).Str("code", perr.CodeOf(err).String()).Msg("extract failed")
		stop()
		os.Exit(perr.ExitCode(perr.CodeOf(err)))
	}
}

func run(ctx context.Context, outPath string, paths []string) error {
	l := logger.Named(service)
	root := config.New()

	st, err := store.Open(ctx, store.ConfigFromEnv(service), store.WithLogger(*logger.Get()))
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	// the file sink needs the delimiter before the module resolves it
	delim, err := domain.DelimiterOf(extractmod.FromConfig(root, extractmod.DefaultPrefix).Delimiter)
	if err != nil {
		return err
	}
	out, err := openOutput(outPath)
	if err != nil {
		return err
	}

	reg := metrics.NewRegistry()
	mod, err := extractmod.New(ctx, modkit.Deps{
		Log:     *l,
		Cfg:     root,
		PG:      st.PG,
		CH:      st.CH,
		Metrics: metrics.New(reg),
	}, modkit.WithPorts(domain.Sink(repo.NewFileSink(out, delim))))
	if err != nil {
		_ = out.Close()
		return err
	}
	defer func() {
		if err := mod.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close sinks")
		}
	}()
	ports := modkit.MustPortsOf[extractmod.Ports](mod)

	opsOpt := phttp.OptionsFromEnv(root)
	if opsOpt.Addr != "" {
		srv := phttp.NewServer(opsOpt,
			phttp.Ops{Gatherer: reg, Ready: st.Guard}.Mount,
			mod.MountRoutes,
		)
		sctx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			if err := srv.Run(sctx); err != nil {
				l.Error().Err(err).Msg("ops server stopped")
			}
		}()
	}

	sum, err := ports.Job.Run(ctx, paths)
	_ = json.NewEncoder(os.Stderr).Encode(sum)
	return err
}

// openOutput returns stdout for "-"; stdout is never closed by the sink
func openOutput(path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopCloser{os.Stdout}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeConfig, "create %s", path)
	}
	return f, nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
