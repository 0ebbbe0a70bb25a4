package service

import (
	"context"
	"runtime"
	"time"

	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/core/codec"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/core/edit"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/core/mapred"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/core/revision"
	perr "github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/errors"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/logger"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/metrics"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/services/extract/domain"

	"golang.org/x/sync/errgroup"
)

// ReassemblerConfig tunes the reduce stage
type ReassemblerConfig struct {
	// Delimiter separates output fields; empty means comma
	Delimiter string
	// Workers bounds feature computation fan out in ReduceBatch; <=0 means GOMAXPROCS
	Workers int
	// AllowEmptyFeatures emits edits whose feature vector is empty
	AllowEmptyFeatures bool
}

// Reassembler is the reduce stage: it rebuilds the edit from the two payloads of a
// group and emits its label and features
type Reassembler struct {
	calc    domain.Calculator
	codec   *codec.Codec
	metrics *metrics.Pipeline
	tally   *Tally
	cfg     ReassemblerConfig
}

// NewReassembler wires a reassembler; nil codec and tally get defaults
func NewReassembler(calc domain.Calculator, c *codec.Codec, m *metrics.Pipeline, t *Tally, cfg ReassemblerConfig) *Reassembler {
	if calc == nil {
		panic("extract.Reassembler requires a feature calculator")
	}
	if c == nil {
		c = codec.MustNew(codec.DefaultLevel)
	}
	if t == nil {
		t = NewTally()
	}
	if cfg.Delimiter == "" {
		cfg.Delimiter = domain.DelimComma
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	return &Reassembler{calc: calc, codec: c, metrics: m, tally: t, cfg: cfg}
}

var _ mapred.BatchReducer = (*Reassembler)(nil)

// decoded is a payload that survived decode and parse
type decoded struct {
	rev   *revision.Revision
	label revision.Label
}

// Reduce handles one group; only invariant violations and emit failures are returned
func (r *Reassembler) Reduce(ctx context.Context, key string, values []string, emit mapred.Emitter) error {
	rec, ok, err := r.reassemble(ctx, key, values)
	if err != nil || !ok {
		return err
	}
	return emit.Emit(rec.Key(), rec.Value(r.cfg.Delimiter))
}

// ReduceBatch reassembles groups concurrently and emits in group order
func (r *Reassembler) ReduceBatch(ctx context.Context, groups []mapred.Group, emit mapred.Emitter) error {
	out := make([]*domain.Record, len(groups))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)
	for i, grp := range groups {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rec, ok, err := r.reassemble(gctx, grp.Key, grp.Values)
			if err != nil {
				return err
			}
			if ok {
				out[i] = &rec
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for _, rec := range out {
		if rec == nil {
			continue
		}
		if err := emit.Emit(rec.Key(), rec.Value(r.cfg.Delimiter)); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reassembler) reassemble(ctx context.Context, key string, values []string) (domain.Record, bool, error) {
	log := logger.C(ctx)

	// the routing scheme sends at most the revision itself and its one child
	if len(values) > 2 {
		r.count(metrics.OutcomeInvariant)
		return domain.Record{}, false, perr.Invariantf("reduce: group %q received %d payloads, expected at most 2", key, len(values))
	}

	rk, err := domain.ParseRouteKey(key)
	if err != nil {
		r.count(metrics.OutcomePayloadDropped)
		log.Warn().Err(err).Msg("dropping group with unreadable key")
		return domain.Record{}, false, nil
	}

	revs := make([]decoded, 0, len(values))
	for _, v := range values {
		d, err := r.decode(v)
		if err != nil {
			r.count(metrics.OutcomePayloadDropped)
			log.Warn().Err(err).Str("key", key).Msg("dropping undecodable payload")
			continue
		}
		revs = append(revs, d)
	}
	if len(revs) < 2 {
		r.count(metrics.OutcomeIncomplete)
		return domain.Record{}, false, nil
	}

	a, b := revs[0], revs[1]
	e, ok := edit.Pair(rk.PageID, a.rev, b.rev)
	if !ok {
		r.count(metrics.OutcomeUnpaired)
		log.Warn().Str("key", key).Int64("a", a.rev.ID).Int64("b", b.rev.ID).
			Msg("payloads do not form an edit")
		return domain.Record{}, false, nil
	}
	label := b.label
	if e.Swapped(a.rev) {
		label = a.label
	}

	feats, err := r.calculate(e)
	if err != nil {
		r.count(metrics.OutcomeCalculatorFailed)
		log.Warn().Err(err).Int64("old", e.Old.ID).Int64("new", e.New.ID).Msg("feature calculation failed")
		return domain.Record{}, false, nil
	}
	if len(feats) == 0 && !r.cfg.AllowEmptyFeatures {
		r.count(metrics.OutcomeNoFeatures)
		return domain.Record{}, false, nil
	}

	r.count(metrics.OutcomeEmitted)
	return domain.Record{
		PageID:        rk.PageID,
		OldRevisionID: e.Old.ID,
		NewRevisionID: e.New.ID,
		Label:         label,
		Features:      feats,
	}, true, nil
}

func (r *Reassembler) decode(v string) (decoded, error) {
	p, err := domain.ParsePayload(v)
	if err != nil {
		return decoded{}, err
	}
	raw, err := r.codec.Decode(p.Encoded)
	if err != nil {
		return decoded{}, err
	}
	rev, err := revision.Parse(raw)
	if err != nil {
		return decoded{}, err
	}
	return decoded{rev: rev, label: p.Label}, nil
}

// calculate runs the calculator and turns a panic into a calculator error
func (r *Reassembler) calculate(e *edit.Edit) (feats []float64, err error) {
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			feats, err = nil, perr.PanicErrf("feature calculator panicked: %v", p)
		}
		r.metrics.ObserveFeature(time.Since(start).Seconds())
	}()
	return r.calc.Calculate(e)
}

// Tally returns the reassembler's outcome counts
func (r *Reassembler) Tally() *Tally { return r.tally }

func (r *Reassembler) count(outcome string) {
	r.metrics.ReduceGroup(outcome)
	r.tally.Add(outcome, 1)
}
