package rpc

import "log/slog"

// EmitToUser encodes event and sends it to every live session whose
// authenticated user handle equals userID. Delivery is best-effort: a
// session whose send fails (typically because it is a slow client) is
// detached, and fanout continues for the remaining sessions.
func EmitToUser(registry *Registry, encode func(*Session) ([]byte, error), userID string) {
	registry.IterFilter(
		func(s *Session) bool { return s.UserID() == userID },
		func(s *Session) { sendBestEffort(s, encode) },
	)
}

// EmitAll encodes event and sends it to every live session.
func EmitAll(registry *Registry, encode func(*Session) ([]byte, error)) {
	for _, s := range registry.Snapshot() {
		sendBestEffort(s, encode)
	}
}

func sendBestEffort(s *Session, encode func(*Session) ([]byte, error)) {
	frame, err := encode(s)
	if err != nil {
		slog.Error("rpc: fanout encode failed", "session", s.ID, "error", err)
		return
	}
	if err := s.Send(frame); err != nil {
		slog.Warn("rpc: fanout send detached session", "session", s.ID, "error", err)
	}
}
