package store

import (
	"context"
	"errors"
	"testing"
	"time"

	perr "github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/errors"

	"github.com/rs/zerolog"
)

func TestOpen_NothingEnabled(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s, err := Open(ctx, Config{}, WithLogger(zerolog.Nop()))
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if s.PG != nil || s.CH != nil {
		t.Fatalf("unexpected seams PG=%T CH=%T", s.PG, s.CH)
	}
	if err := s.Guard(ctx); err != nil {
		t.Fatalf("Guard on empty store: %v", err)
	}
	if err := s.Close(ctx); err != nil {
		t.Fatalf("Close on empty store: %v", err)
	}
}

func TestOpen_PGBadURL(t *testing.T) {
	t.Parallel()
	s, err := Open(context.Background(), Config{PG: PGConfig{Enabled: true, URL: "://bad"}})
	if err == nil || s != nil {
		t.Fatalf("expected error and nil store, got %v %#v", err, s)
	}
}

func TestOpen_CHBadURL(t *testing.T) {
	t.Parallel()
	s, err := Open(context.Background(), Config{CH: CHConfig{Enabled: true, URL: "clickhouse:///nohost"}})
	if err == nil || s != nil {
		t.Fatalf("expected error and nil store, got %v %#v", err, s)
	}
}

func TestOpen_OptionError(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")
	if _, err := Open(context.Background(), Config{}, func(*Store) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("option error not returned: %v", err)
	}
}

func TestGuard_JoinsFailures(t *testing.T) {
	t.Parallel()
	var nilStore *Store
	if err := nilStore.Guard(context.Background()); err == nil {
		t.Fatalf("nil store should fail Guard")
	}

	s := &Store{CH: newCHAdapter(&fakeCH{pingErr: errors.New("down")})}
	err := s.Guard(context.Background())
	if err == nil || err.Error() != "ch: down" {
		t.Fatalf("Guard = %v", err)
	}
}

func TestWaitReady_RetriesUntilHealthy(t *testing.T) {
	t.Parallel()
	s := &Store{Log: zerolog.Nop()}
	calls := 0
	err := waitReady(context.Background(), s, "pg", 5, time.Second, func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	})
	if err != nil || calls != 3 {
		t.Fatalf("waitReady err=%v calls=%d", err, calls)
	}

	calls = 0
	err = waitReady(context.Background(), s, "pg", 2, time.Second, func(context.Context) error {
		calls++
		return errors.New("never")
	})
	if err == nil || calls != 2 {
		t.Fatalf("waitReady should give up after 2 attempts, err=%v calls=%d", err, calls)
	}
}

func TestRetry_OnlyRetriesTransient(t *testing.T) {
	t.Parallel()
	fast := RetryPolicy{Attempts: 4, Initial: time.Millisecond, Max: time.Millisecond}

	calls := 0
	err := Retry(context.Background(), fast, func(context.Context) error {
		calls++
		if calls < 3 {
			return perr.Unavailablef("flaky")
		}
		return nil
	})
	if err != nil || calls != 3 {
		t.Fatalf("transient: err=%v calls=%d", err, calls)
	}

	calls = 0
	err = Retry(context.Background(), fast, func(context.Context) error {
		calls++
		return perr.Invariantf("bad")
	})
	if !perr.IsCode(err, perr.ErrorCodeInvariant) || calls != 1 {
		t.Fatalf("permanent: err=%v calls=%d", err, calls)
	}

	calls = 0
	err = Retry(context.Background(), fast, func(context.Context) error {
		calls++
		return perr.Unavailablef("still down")
	})
	if err == nil || calls != 4 {
		t.Fatalf("exhausted: err=%v calls=%d", err, calls)
	}
}

func TestChunks(t *testing.T) {
	t.Parallel()
	cases := []struct {
		n, size int
		want    []int
	}{
		{0, 3, nil},
		{2, 3, []int{2}},
		{3, 3, []int{3}},
		{7, 3, []int{3, 3, 1}},
		{4, 0, []int{4}},
	}
	for _, c := range cases {
		items := make([]int, c.n)
		got := Chunks(items, c.size)
		if len(got) != len(c.want) {
			t.Fatalf("Chunks(%d,%d) len = %d, want %d", c.n, c.size, len(got), len(c.want))
		}
		for i := range got {
			if len(got[i]) != c.want[i] {
				t.Fatalf("Chunks(%d,%d)[%d] len = %d", c.n, c.size, i, len(got[i]))
			}
		}
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("PG_URL", "postgres://localhost/wvd")
	t.Setenv("PG_MAX_CONNS", "9")
	t.Setenv("CH_URL", "")

	cfg := ConfigFromEnv("wvd-extract")
	if !cfg.PG.Enabled || cfg.PG.MaxConns != 9 || cfg.AppName != "wvd-extract" {
		t.Fatalf("pg config mismatch: %+v", cfg.PG)
	}
	if cfg.CH.Enabled {
		t.Fatalf("ch should be disabled without URL")
	}
}
