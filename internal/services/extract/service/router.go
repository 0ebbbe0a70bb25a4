// Package service implements the map and reduce stages of feature extraction
// and the local job that chains them
package service

import (
	"context"

	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/core/availability"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/core/codec"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/core/mapred"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/core/revision"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/logger"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/metrics"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/services/extract/domain"
)

// Router is the map stage: it filters revisions through the availability index and
// routes each kept revision to the reduce group of its own edit and of its parent's edit
type Router struct {
	index   *availability.Index
	codec   *codec.Codec
	metrics *metrics.Pipeline
	tally   *Tally
}

// NewRouter wires a router; nil codec and tally get defaults
func NewRouter(idx *availability.Index, c *codec.Codec, m *metrics.Pipeline, t *Tally) *Router {
	if idx == nil {
		panic("extract.Router requires an availability index")
	}
	if c == nil {
		c = codec.MustNew(codec.DefaultLevel)
	}
	if t == nil {
		t = NewTally()
	}
	return &Router{index: idx, codec: c, metrics: m, tally: t}
}

var _ mapred.Mapper = (*Router)(nil)

// Map handles one raw <revision> record
// malformed and unknown revisions are counted and dropped; only emit failures are returned
func (r *Router) Map(ctx context.Context, offset int64, raw []byte, emit mapred.Emitter) error {
	id, ok := revision.PeekID(raw)
	if !ok {
		r.malformed(ctx, offset, 0, "revision without a readable id")
		return nil
	}
	entry, ok := r.index.Lookup(id)
	if !ok {
		r.count(metrics.OutcomeFiltered)
		return nil
	}

	rev, err := revision.Parse(raw, revision.FieldID, revision.FieldParentID)
	if err != nil {
		r.malformed(ctx, offset, id, err.Error())
		return nil
	}
	if rev.ID != id {
		r.malformed(ctx, offset, id, "id lookahead disagrees with parse")
		return nil
	}
	if rev.ParentID == rev.ID {
		r.malformed(ctx, offset, id, "revision is its own parent")
		return nil
	}

	enc := r.codec.Encode(raw)
	self := domain.RouteKey{PageID: entry.PageID, RevisionID: rev.ID}
	if err := emit.Emit(self.String(), domain.Payload{Encoded: enc, Counterpart: rev.ParentID, Label: entry.Label}.String()); err != nil {
		return err
	}
	n := 1
	if rev.HasParent() {
		parent := domain.RouteKey{PageID: entry.PageID, RevisionID: rev.ParentID}
		if err := emit.Emit(parent.String(), domain.Payload{Encoded: enc, Counterpart: rev.ID, Label: entry.Label}.String()); err != nil {
			return err
		}
		n++
	}

	r.count(metrics.OutcomeEmitted)
	r.metrics.MapEmitted(n)
	r.tally.Add("emissions", int64(n))
	return nil
}

// Tally returns the router's outcome counts
func (r *Router) Tally() *Tally { return r.tally }

func (r *Router) count(outcome string) {
	r.metrics.MapRecord(outcome)
	r.tally.Add(outcome, 1)
}

func (r *Router) malformed(ctx context.Context, offset, id int64, why string) {
	r.count(metrics.OutcomeMalformed)
	logger.C(ctx).Warn().Int64("offset", offset).Int64("revision_id", id).Str("reason", why).
		Msg("skipping malformed revision")
}
