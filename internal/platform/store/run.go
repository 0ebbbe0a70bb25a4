package store

import (
	"context"
	"time"

	perr "github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/errors"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy bounds Retry
type RetryPolicy struct {
	Attempts int
	Initial  time.Duration
	Max      time.Duration
}

// DefaultRetry is used by sinks when no policy is configured
var DefaultRetry = RetryPolicy{Attempts: 5, Initial: 100 * time.Millisecond, Max: 3 * time.Second}

// Retry runs fn until it succeeds, returns a non retryable error (perr.Retryable) or attempts run out
func Retry(ctx context.Context, p RetryPolicy, fn func(ctx context.Context) error) error {
	if p.Attempts <= 0 {
		p = DefaultRetry
	}
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.Initial
	eb.MaxInterval = p.Max
	eb.MaxElapsedTime = 0

	b := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(p.Attempts-1)), ctx)
	return backoff.Retry(func() error {
		err := fn(ctx)
		if err != nil && !perr.Retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, b)
}

// RunTx runs fn inside a transaction on tx, retrying the whole transaction on transient failures
func RunTx(ctx context.Context, tx TxRunner, p RetryPolicy, fn func(ctx context.Context, q RowQuerier) error) error {
	return Retry(ctx, p, func(ctx context.Context) error {
		return tx.Tx(ctx, func(q RowQuerier) error {
			return fn(ctx, q)
		})
	})
}
