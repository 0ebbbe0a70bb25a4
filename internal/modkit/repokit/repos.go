// Package repokit provides common types and helpers for repository implementations
package repokit

import (
	"context"

	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/store"
)

// Queryer is the minimal read and write surface for SQL repos
type Queryer = store.RowQuerier

// TxRunner can execute a function inside a transaction
type TxRunner = store.TxRunner

// Batcher is the optional pipelined exec surface of a tx bound Queryer
type Batcher = store.Batcher

type (
	// Rows are the result set of a query
	Rows = store.Rows

	// Row is a single row result from a query
	Row = store.Row

	// CommandTag is the result of a command that modifies data
	CommandTag = store.CommandTag
)

// WithTx runs fn inside a transaction using the provided TxRunner
func WithTx(ctx context.Context, tx TxRunner, fn func(q Queryer) error) error {
	return tx.Tx(ctx, fn)
}

// ExecBatch sends sql once per argument set, pipelined when q supports it
// and statement by statement otherwise
func ExecBatch(ctx context.Context, q Queryer, sql string, argSets [][]any) (int64, error) {
	if b, ok := q.(Batcher); ok {
		return b.ExecBatch(ctx, sql, argSets)
	}
	var n int64
	for _, args := range argSets {
		tag, err := q.Exec(ctx, sql, args...)
		if err != nil {
			return n, err
		}
		if tag != nil {
			n += tag.RowsAffected()
		}
	}
	return n, nil
}
