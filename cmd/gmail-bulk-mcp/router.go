package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
)

type routes struct {
	MCP     http.Handler
	OAuth   http.Handler
	Metrics http.Handler
	// OAuthRate is the per-IP request budget per minute on /oauth.
	OAuthRate int
}

func newRouter(rt routes) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Handle("/mcp", rt.MCP)

	if rt.OAuth != nil {
		r.With(httprate.LimitByIP(rt.OAuthRate, time.Minute)).Handle("/oauth", rt.OAuth)
	}
	if rt.Metrics != nil {
		r.Handle("/metrics", rt.Metrics)
	}

	return r
}
