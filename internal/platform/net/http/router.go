package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Handler is the platform handler type used everywhere
type Handler = func(http.ResponseWriter, *http.Request)

// Router is the minimal surface the ops endpoints mount against
type Router interface {
	Get(path string, h Handler)
	Handle(path string, h http.Handler)
	Use(mw ...func(http.Handler) http.Handler)
	Mux() http.Handler
}

// chiRouter adapts *chi.Mux to Router
type chiRouter struct{ m *chi.Mux }

// AdaptChi adapts a *chi.Mux to a Router
func AdaptChi(m *chi.Mux) Router { return chiRouter{m: m} }

func (c chiRouter) Get(p string, h Handler) { c.m.Method(http.MethodGet, p, http.HandlerFunc(h)) }

func (c chiRouter) Handle(p string, h http.Handler)           { c.m.Handle(p, h) }
func (c chiRouter) Use(mw ...func(http.Handler) http.Handler) { c.m.Use(mw...) }
func (c chiRouter) Mux() http.Handler                         { return c.m }
