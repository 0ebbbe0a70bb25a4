package repo

import (
	"context"

	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/core/availability"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/core/revision"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/modkit/repokit"
	perr "github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/errors"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/store"
)

// LoadAvailability builds the availability index from revision_samples
// any failure is a config error since workers must not start without the index
func LoadAvailability(ctx context.Context, q repokit.Queryer) (*availability.Index, error) {
	b := availability.NewBuilder()
	n, err := store.Each(ctx, q, func(row store.Row) error {
		var (
			revID, pageID int64
			label         string
		)
		if err := row.Scan(&revID, &pageID, &label); err != nil {
			return err
		}
		l, err := revision.ParseLabel(label)
		if err != nil {
			return perr.Wrapf(err, perr.ErrorCodeConfig, "revision_samples: revision %d", revID)
		}
		return b.Add(revID, availability.Entry{PageID: pageID, Label: l})
	}, `SELECT revision_id, page_id, label FROM revision_samples`)
	if err != nil {
		if perr.IsCode(err, perr.ErrorCodeConfig) {
			return nil, err
		}
		return nil, perr.Wrap(err, perr.ErrorCodeConfig, "load revision_samples")
	}
	if n == 0 {
		return nil, perr.Configf("revision_samples is empty")
	}
	return b.Build(), nil
}
