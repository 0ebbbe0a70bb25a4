// Package http hosts the operational HTTP surface of long running jobs:
// health, prometheus metrics, a JSON stats snapshot and optional pprof
package http

import (
	"context"
	"errors"
	stdhttp "net/http"
	"time"

	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/config"
	"github.com/arsimsusuri/wikipedia-vandalism-analyzer/internal/platform/logger"

	"github.com/go-chi/chi/v5"
)

// Options configures the ops server
type Options struct {
	Addr        string
	CORSOrigins []string
	Pprof       bool
}

// OptionsFromEnv reads OPS_ADDR, OPS_CORS_ORIGINS and OPS_PPROF; an empty Addr disables the server
func OptionsFromEnv(cfg config.Conf) Options {
	c := cfg.Prefix("OPS_")
	return Options{
		Addr:        c.MayString("ADDR", ""),
		CORSOrigins: c.MayCSV("CORS_ORIGINS", nil),
		Pprof:       c.MayBool("PPROF", false),
	}
}

// Server is a thin wrapper over chi + stdlib http.Server
type Server struct {
	addr string
	mux  *chi.Mux
	srv  *stdhttp.Server
}

// NewServer creates the server and applies mounts to its router
func NewServer(opt Options, mounts ...func(Router)) *Server {
	m := chi.NewRouter()
	r := AdaptChi(m)
	r.Use(Recover(), AccessLog(time.Second))
	if len(opt.CORSOrigins) > 0 {
		r.Use(CORS(opt.CORSOrigins))
	}
	for _, mount := range mounts {
		mount(r)
	}
	MountProfiler(r, "/debug", opt.Pprof)

	return &Server{
		addr: opt.Addr,
		mux:  m,
		srv: &stdhttp.Server{
			Addr:              opt.Addr,
			Handler:           m,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() stdhttp.Handler { return s.mux }

// Addr returns the listening address
func (s *Server) Addr() string { return s.addr }

// Run serves until ctx is done, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	log := logger.Named("ops")
	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.addr).Msg("ops server listening")
		errc <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, stdhttp.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.srv.Shutdown(sctx)
	}
}
