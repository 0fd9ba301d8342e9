// Package calls implements the voice-call coordinator (C9) and its
// pending-request rendezvous table (C10): a concurrent map from
// (callId, sessionId) to a one-shot slot, adapted from the teacher's
// FIFO session queue (internal/sessions/queue.go) into a keyed,
// single-resolution rendezvous rather than a capacity-gated waiting
// line.
package calls

import (
	"context"
	"fmt"
	"sync"
)

// pendingEntry is a one-shot slot: resolve publishes a value exactly
// once and wakes every waiter.
type pendingEntry struct {
	ready chan struct{}
	value string
}

// PendingRequests is the concurrent (callId, sessionId) → rendezvous-slot
// table named C10.
type PendingRequests struct {
	mu      sync.Mutex
	entries map[string]*pendingEntry
}

// NewPendingRequests builds an empty table.
func NewPendingRequests() *PendingRequests {
	return &PendingRequests{entries: make(map[string]*pendingEntry)}
}

func key(callID, sessionID string) string {
	return fmt.Sprintf("%s:%s", callID, sessionID)
}

// Insert allocates a rendezvous slot for (callID, sessionID). Must be
// called by the coordinator before the corresponding UserConnect event
// is published, so a resolution racing in before Wait begins is never
// lost.
func (p *PendingRequests) Insert(callID, sessionID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries[key(callID, sessionID)] = &pendingEntry{ready: make(chan struct{})}
}

// Resolve sets the slot's value and wakes its waiter. Called by the
// media-node directory (C8) when a UserCreate event arrives. A resolve
// with no matching entry (already resolved, timed out, or never
// inserted) is a no-op.
func (p *PendingRequests) Resolve(callID, sessionID, value string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	entry, ok := p.entries[key(callID, sessionID)]
	if !ok {
		return
	}
	select {
	case <-entry.ready:
		return
	default:
	}
	entry.value = value
	close(entry.ready)
}

// Wait blocks until the slot at (callID, sessionID) is resolved, ctx is
// cancelled, or ctx's deadline passes. The entry is removed from the
// table in every case, matching the garbage-collection-on-
// abandonment contract in spec.md §4.10.
func (p *PendingRequests) Wait(ctx context.Context, callID, sessionID string) (string, error) {
	p.mu.Lock()
	entry, ok := p.entries[key(callID, sessionID)]
	p.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("calls: no pending request for %s/%s", callID, sessionID)
	}

	select {
	case <-entry.ready:
		p.mu.Lock()
		delete(p.entries, key(callID, sessionID))
		p.mu.Unlock()
		return entry.value, nil
	case <-ctx.Done():
		p.mu.Lock()
		delete(p.entries, key(callID, sessionID))
		p.mu.Unlock()
		return "", ctx.Err()
	}
}
