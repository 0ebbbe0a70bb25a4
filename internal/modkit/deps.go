// Package modkit provides module wiring and core deps
package modkit

import (
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/modkit/repokit"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/config"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/logger"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/metrics"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/store"
)

// Deps holds core dependencies passed to modules
// this is wiring only and does not introduce new abstractions
type Deps struct {
	Log     logger.Logger
	Cfg     config.Conf
	PG      repokit.TxRunner
	CH      store.Clickhouse
	Metrics *metrics.Pipeline
}

// HasPG reports whether a postgres seam was wired
func (d Deps) HasPG() bool { return d.PG != nil }

// HasCH reports whether a clickhouse seam was wired
func (d Deps) HasCH() bool { return d.CH != nil }
