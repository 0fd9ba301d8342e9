// Package server provides the HTTP handler assembly for the Aurora core.
// It accepts all dependencies as parameters so that both main() and tests
// can build the same handler chain without route drift.
package server

import (
	"net/http"

	"github.com/rjsadow/aurora/internal/diagnostics"
	"github.com/rjsadow/aurora/internal/gateway"
	"github.com/rjsadow/aurora/internal/middleware"
)

// App holds all dependencies needed to build the HTTP handler.
type App struct {
	Gateway       *gateway.Handler
	DiagCollector *diagnostics.Collector
}

// Handler builds and returns the complete HTTP handler with all routes
// registered and middleware applied.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()

	h := &handlers{app: a}

	mux.HandleFunc("/healthz", h.handleHealthz)
	mux.HandleFunc("/readyz", h.handleReadyz)
	mux.HandleFunc("/api/status", h.handleStatus)

	mux.Handle("/ws", a.Gateway)

	return middleware.SecurityHeaders(middleware.RequestID(mux))
}
