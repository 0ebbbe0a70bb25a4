package http

import (
	"context"
	stdhttp "net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Ops wires the standard job endpoints
type Ops struct {
	// Gatherer backs /metrics; nil leaves the route unmounted
	Gatherer prometheus.Gatherer
	// Stats backs /stats with a JSON snapshot; nil leaves the route unmounted
	Stats func() any
	// Ready backs /healthz; nil always reports ok
	Ready func(ctx context.Context) error
}

// Mount registers /healthz, /metrics and /stats on r
func (o Ops) Mount(r Router) {
	r.Get("/healthz", func(w stdhttp.ResponseWriter, req *stdhttp.Request) {
		if o.Ready != nil {
			ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
			defer cancel()
			if err := o.Ready(ctx); err != nil {
				RespondError(w, err)
				return
			}
		}
		JSON(w, stdhttp.StatusOK, map[string]string{"status": "ok"})
	})
	if o.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(o.Gatherer, promhttp.HandlerOpts{}))
	}
	if o.Stats != nil {
		r.Get("/stats", func(w stdhttp.ResponseWriter, _ *stdhttp.Request) {
			JSON(w, stdhttp.StatusOK, o.Stats())
		})
	}
}
