package rpc

import (
	"log/slog"
	"time"
)

// SuperviseHeartbeat runs the idle watchdog for one session: it waits for
// a tick on s.Heartbeat, resetting its timer on each one, and evicts the
// session from registry when timeout elapses without a tick. It returns
// when the session is evicted or closed by some other path (read-loop
// exit, slow-client disconnect).
func SuperviseHeartbeat(registry *Registry, s *Session, timeout time.Duration) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-s.Heartbeat:
			if !timer.Stop() {
				<-timer.C
			}
			timer.Reset(timeout)
		case <-timer.C:
			slog.Info("rpc: session heartbeat timeout, evicting", "session", s.ID)
			registry.Remove(s.ID)
			s.Close()
			return
		case <-s.Done():
			return
		}
	}
}
