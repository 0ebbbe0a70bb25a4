package store

import (
	"context"
	"time"

	chx "github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/store/ch"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/store/pg"

	"github.com/cenkalti/backoff/v4"
)

// openPG opens the pool, waits until it answers a ping, then wraps it in the sql adapter
func openPG(ctx context.Context, cfg Config, s *Store) (TxRunner, error) {
	var tracer pg.QueryTracer
	if cfg.PG.LogSQL {
		tracer = pg.Tracer(s.Log)
	}

	p, err := pg.Open(ctx, pg.Config{
		URL:      cfg.PG.URL,
		AppName:  cfg.AppName,
		MaxConns: cfg.PG.MaxConns,
		SlowMs:   cfg.PG.SlowQueryMs,
	}, tracer, nil)
	if err != nil {
		return nil, err
	}

	// ping the pool directly so boot attempts do not show up as traced SQL
	if err := waitReady(ctx, s, "pg", cfg.PG.ConnectRetries, cfg.PG.PingTimeout, p.Pool.Ping); err != nil {
		p.Close()
		return nil, err
	}
	return newPGAdapter(p), nil
}

func openCH(ctx context.Context, cfg Config, s *Store) (Clickhouse, error) {
	c, err := chx.Open(ctx, chx.Config{URL: cfg.CH.URL, Role: cfg.AppName})
	if err != nil {
		return nil, err
	}
	if err := waitReady(ctx, s, "ch", cfg.CH.ConnectRetries, cfg.CH.PingTimeout, c.Ping); err != nil {
		_ = c.Close()
		return nil, err
	}
	return newCHAdapter(c), nil
}

// waitReady retries ping with exponential backoff until it succeeds, attempts run out or ctx ends
func waitReady(ctx context.Context, s *Store, backend string, attempts int, timeout time.Duration, ping func(context.Context) error) error {
	if attempts <= 0 {
		attempts = 8
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 150 * time.Millisecond
	eb.MaxInterval = 2 * time.Second
	eb.MaxElapsedTime = 0

	b := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(attempts-1)), ctx)

	op := func() error {
		pctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return ping(pctx)
	}
	notify := func(err error, next time.Duration) {
		s.Log.Debug().Str("backend", backend).Err(err).Dur("retry_in", next).Msg("store not ready")
	}
	return backoff.RetryNotify(op, b, notify)
}
