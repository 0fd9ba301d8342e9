package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// handlers binds HTTP handler methods to an App's dependencies.
type handlers struct {
	app *App
}

func (h *handlers) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (h *handlers) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	bundle := h.app.DiagCollector.Collect(r.Context())

	ready := bundle.Stores.Mongo.Healthy && bundle.Stores.Redis.Healthy

	w.Header().Set("Content-Type", "application/json")
	if ready {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(map[string]any{
		"status": readyStatus(ready),
		"stores": bundle.Stores,
	})
}

func readyStatus(ready bool) string {
	if ready {
		return "ready"
	}
	return "not_ready"
}

func (h *handlers) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	bundle := h.app.DiagCollector.Collect(ctx)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(bundle)
}
