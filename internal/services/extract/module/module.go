// Package module wires the extract service: index, codec, calculator, stages, sinks and job
package module

import (
	"context"
	"errors"
	stdhttp "net/http"

	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/adapters/dump"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/core/availability"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/core/codec"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/core/features"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/modkit"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/modkit/repokit"
	perr "github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/errors"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/logger"
	phttp "github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/net/http"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/store"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/services/extract/domain"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/services/extract/guardrails"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/services/extract/repo"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/services/extract/service"
)

// Ports exposed by the extract module
type Ports struct {
	Index     *availability.Index
	Router    *service.Router
	Reducer   *service.Reassembler
	Job       domain.JobPort
	Features  []string
	Delimiter string
	Dump      []dump.Option
}

// Module implements modkit.Module
type Module struct {
	name  string
	deps  modkit.Deps
	opts  Options
	ports Ports
	sinks []domain.Sink
}

var _ modkit.Module = (*Module)(nil)

// New builds the module from deps.Cfg
// callers may inject a prebuilt *availability.Index, a domain.Calculator and extra domain.Sink values via modkit.WithPorts
// index and option problems come back as config or validation errors
func New(ctx context.Context, deps modkit.Deps, opts ...modkit.Option) (*Module, error) {
	b := modkit.Build("extract", DefaultPrefix, opts...)
	o := FromConfig(deps.Cfg, b.Prefix)
	if err := o.Validate(); err != nil {
		return nil, err
	}
	delim, err := domain.DelimiterOf(o.Delimiter)
	if err != nil {
		return nil, err
	}

	idx, ok := modkit.Port[*availability.Index](b)
	if !ok {
		if idx, err = loadIndex(ctx, deps, o); err != nil {
			return nil, err
		}
	}
	logger.C(ctx).Info().Int("revisions", idx.Len()).Str("source", o.IndexSource).Msg("availability index loaded")

	calc, ok := modkit.Port[domain.Calculator](b)
	if !ok {
		fc, err := features.New(o.Features...)
		if err != nil {
			return nil, perr.WithField(perr.Wrap(err, perr.ErrorCodeConfig, "features"), "FEATURES")
		}
		calc = fc
	}

	cdc, err := codec.New(o.CompressionLevel)
	if err != nil {
		return nil, perr.WithField(err, "COMPRESSION_LEVEL")
	}

	m := &Module{name: b.Name, deps: deps, opts: o}
	for _, p := range b.Ports {
		if s, ok := p.(domain.Sink); ok {
			m.sinks = append(m.sinks, s)
		}
	}
	if err := m.openSinks(ctx); err != nil {
		return nil, err
	}

	router := service.NewRouter(idx, cdc, deps.Metrics, service.NewTally())
	reducer := service.NewReassembler(calc, cdc, deps.Metrics, service.NewTally(), service.ReassemblerConfig{
		Delimiter:          delim,
		Workers:            o.Workers,
		AllowEmptyFeatures: o.AllowEmptyFeatures,
	})

	lease := guardrails.Lease(guardrails.NoLease)
	if o.Lease {
		if !deps.HasPG() {
			return nil, perr.WithField(perr.Configf("run lease needs postgres (PG_URL)"), "LEASE")
		}
		lease = guardrails.MakeRunLease(deps.PG)
	}

	job := service.NewJob(router, reducer, m.sinks, deps.Metrics, lease, service.JobConfig{
		Name:       b.Name,
		Partitions: o.Partitions,
		Workers:    o.Workers,
		Delimiter:  delim,
		SinkBatch:  o.SinkBatch,
		Timeouts:   guardrails.Timeouts{Job: o.JobTimeout, Sink: o.SinkTimeout},
		Dump:       o.DumpOptions(),
	})

	m.ports = Ports{
		Index:     idx,
		Router:    router,
		Reducer:   reducer,
		Job:       job,
		Features:  calc.Names(),
		Delimiter: delim,
		Dump:      o.DumpOptions(),
	}
	return m, nil
}

func loadIndex(ctx context.Context, deps modkit.Deps, o Options) (*availability.Index, error) {
	switch o.IndexSource {
	case "pg":
		if !deps.HasPG() {
			return nil, perr.WithField(perr.Configf("index source pg needs postgres (PG_URL)"), "INDEX_SOURCE")
		}
		return repo.LoadAvailability(ctx, deps.PG)
	default:
		return availability.LoadFile(o.IndexPath)
	}
}

func (m *Module) openSinks(ctx context.Context) error {
	if m.opts.SinkPG {
		if !m.deps.HasPG() {
			return perr.WithField(perr.Configf("pg sink needs postgres (PG_URL)"), "SINK_PG")
		}
		db := repokit.WithBeginHooks(m.deps.PG, repokit.AsyncCommit(), repokit.StatementTimeout(m.opts.StatementTimeout))
		if m.opts.EnsureSchema {
			if err := repo.EnsurePGSchema(ctx, m.deps.PG); err != nil {
				return perr.Wrap(err, perr.ErrorCodeDB, "ensure pg schema")
			}
		}
		m.sinks = append(m.sinks, repo.NewPGSink(db, m.opts.PGChunk, store.DefaultRetry))
	}
	if m.opts.SinkCH {
		if !m.deps.HasCH() {
			return perr.WithField(perr.Configf("ch sink needs clickhouse (CH_URL)"), "SINK_CH")
		}
		if m.opts.EnsureSchema {
			if err := repo.EnsureCHSchema(ctx, m.deps.CH); err != nil {
				return perr.Wrap(err, perr.ErrorCodeDB, "ensure ch schema")
			}
		}
		m.sinks = append(m.sinks, repo.NewCHSink(m.deps.CH, store.DefaultRetry))
	}
	return nil
}

// Name satisfies modkit.Module
func (m *Module) Name() string { return m.name }

// Ports satisfies modkit.Module
func (m *Module) Ports() any { return m.ports }

// Options returns the resolved options
func (m *Module) Options() Options { return m.opts }

// MountRoutes mounts GET /stats with the counters of the current or last job run
func (m *Module) MountRoutes(r phttp.Router) {
	r.Get("/stats", func(w stdhttp.ResponseWriter, _ *stdhttp.Request) {
		phttp.JSON(w, stdhttp.StatusOK, m.ports.Job.Snapshot())
	})
}

// Close closes every sink, flushing buffered output
func (m *Module) Close(ctx context.Context) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(ctx); err != nil {
			errs = append(errs, perr.WithOp(err, "close sink "+s.Name()))
		}
	}
	return errors.Join(errs...)
}
