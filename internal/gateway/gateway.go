package gateway

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/rjsadow/aurora/internal/rpc"
)

// Handler is the single entry point for the real-time transport: it rate
// limits connection attempts by source IP, upgrades the HTTP request to a
// WebSocket, and hands the result to the frame router for the rest of the
// connection's lifetime.
type Handler struct {
	server  *rpc.Server
	limiter *RateLimiter
}

// Config holds configuration for the gateway handler.
type Config struct {
	Server  *rpc.Server
	Limiter *RateLimiter
}

// NewHandler creates a new gateway handler.
func NewHandler(cfg Config) *Handler {
	return &Handler{server: cfg.Server, limiter: cfg.Limiter}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeHTTP rate limits by source IP, upgrades the connection, and blocks
// driving it through rpc.Server.HandleConnection until it closes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.limiter != nil && !h.limiter.Allow(clientIP(r)) {
		http.Error(w, "Too many requests", http.StatusTooManyRequests)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("gateway: failed to upgrade connection", "error", err)
		return
	}

	if err := h.server.HandleConnection(r.Context(), conn); err != nil {
		slog.Warn("gateway: connection ended with error", "error", err)
	}
}

