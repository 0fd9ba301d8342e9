// Package rpc implements the connection-lifecycle engine: the session
// registry, method dispatcher, heartbeat supervisor, event fanout, and the
// frame router that ties them together over a WebSocket transport.
package rpc

import (
	"fmt"
	"sync"
	"time"
)

// Session is the server-side state for one live client connection. A
// Session exists in a Registry iff its connection is live; UserID is set
// at most once; closing Outbound terminates the write pump.
type Session struct {
	ID string

	// Outbound is the single channel the write pump drains. Multiple
	// producers may send on it (handlers, fanout, the read loop itself);
	// only Close closes it.
	Outbound chan []byte

	// Heartbeat is signalled by the read loop on every inbound Heartbeat
	// frame; the heartbeat supervisor resets its timer on each tick.
	Heartbeat chan struct{}

	mu            sync.RWMutex
	userID        string
	identified    bool
	requestIDs    []string
	encryptionKey *[32]byte

	closeOnce sync.Once
	closed    chan struct{}

	slowClientTimeout time.Duration
}

// NewSession creates a Session with the given connection id, bounded
// outbound queue size, and slow-client send timeout (SPEC_FULL.md OQ5).
func NewSession(id string, outboundQueueSize int, slowClientTimeout time.Duration, initialRequestIDs []string) *Session {
	return &Session{
		ID:                id,
		Outbound:          make(chan []byte, outboundQueueSize),
		Heartbeat:         make(chan struct{}, 1),
		requestIDs:        append([]string(nil), initialRequestIDs...),
		closed:            make(chan struct{}),
		slowClientTimeout: slowClientTimeout,
	}
}

// UserID returns the authenticated user handle, or "" if the session has
// not completed Identify.
func (s *Session) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

// Identified reports whether SetUser has been called.
func (s *Session) Identified() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identified
}

// SetUser binds the session's opaque user handle. It is a no-op error to
// call this more than once — a session's identity is set at most once.
func (s *Session) SetUser(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identified {
		return fmt.Errorf("rpc: session %s already identified", s.ID)
	}
	s.userID = userID
	s.identified = true
	return nil
}

// EncryptionKey returns the shared AES-256-GCM key derived at handshake,
// non-nil only when the connection opted into per-frame encryption at
// Identify (see SPEC_FULL.md OQ1). Safe to call from any goroutine,
// including one fanning out to a different session's connection.
func (s *Session) EncryptionKey() *[32]byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.encryptionKey
}

// SetEncryptionKey binds the session's per-frame encryption key. Set at
// most once, before any frame after Identify is encoded.
func (s *Session) SetEncryptionKey(key *[32]byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.encryptionKey = key
}

// RequestIDs returns a copy of the session's current request-id pool.
func (s *Session) RequestIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.requestIDs))
	copy(out, s.requestIDs)
	return out
}

// AppendRequestIDs grows the pool by the given ids (append-only, per
// invariant 3 of SPEC_FULL.md/spec.md §8).
func (s *Session) AppendRequestIDs(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requestIDs = append(s.requestIDs, ids...)
}

// Send enqueues an already-encoded frame on the outbound channel. If the
// channel is full for longer than slowClientTimeout, the session is
// closed and an error is returned — back-pressure is never propagated by
// blocking indefinitely (SPEC_FULL.md OQ5).
func (s *Session) Send(frame []byte) error {
	select {
	case s.Outbound <- frame:
		return nil
	case <-s.closed:
		return fmt.Errorf("rpc: session %s is closed", s.ID)
	default:
	}

	timer := time.NewTimer(s.slowClientTimeout)
	defer timer.Stop()
	select {
	case s.Outbound <- frame:
		return nil
	case <-s.closed:
		return fmt.Errorf("rpc: session %s is closed", s.ID)
	case <-timer.C:
		s.Close()
		return fmt.Errorf("rpc: session %s: slow client, disconnected", s.ID)
	}
}

// Close terminates the session's outbound channel exactly once, which
// unblocks the write pump. Safe to call concurrently and more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.closed)
		close(s.Outbound)
	})
}

// Done returns a channel closed when the session has been closed.
func (s *Session) Done() <-chan struct{} {
	return s.closed
}
