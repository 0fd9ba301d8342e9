// Package mediafleet implements the media-node directory (C8): the
// "nodes" pub/sub consumer that tracks which out-of-process media nodes
// are live and resolves voice-call rendezvous requests on their behalf,
// grounded on the original's spawn_check_available_nodes
// (services/webrtc.rs) and adapted from the teacher's concurrent
// registry pattern (internal/sessions).
package mediafleet

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rjsadow/aurora/internal/calls"
	"github.com/rjsadow/aurora/internal/nodesbus"
	"github.com/rjsadow/aurora/internal/store"
)

// EvictionInterval is how often the directory sweeps for stale nodes.
const EvictionInterval = 1 * time.Second

// NodeTimeout is how long a node may go without a Ping before it is
// evicted.
const NodeTimeout = 10 * time.Second

// node is one live media node's directory entry.
type node struct {
	id       string
	region   string
	lastPing time.Time
}

// Directory tracks the live media-node fleet and dispatches UserCreate
// answers into the call coordinator's pending-request table.
type Directory struct {
	redis   *store.Redis
	pending *calls.PendingRequests

	mu    sync.Mutex
	nodes map[string]*node
}

// NewDirectory builds a Directory over redisStore, resolving rendezvous
// answers through pending.
func NewDirectory(redisStore *store.Redis, pending *calls.PendingRequests) *Directory {
	return &Directory{
		redis:   redisStore,
		pending: pending,
		nodes:   make(map[string]*node),
	}
}

// Len returns the number of currently live nodes.
func (d *Directory) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.nodes)
}

// NodeIDs returns the ids of all currently live nodes, used by the
// optional Kubernetes cross-check (SPEC_FULL.md A7).
func (d *Directory) NodeIDs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	ids := make([]string, 0, len(d.nodes))
	for id := range d.nodes {
		ids = append(ids, id)
	}
	return ids
}

// Run subscribes to the "nodes" channel, publishes the startup Query
// announcement, and consumes events until ctx is cancelled. It also
// starts the eviction sweeper. Run blocks until ctx is done.
func (d *Directory) Run(ctx context.Context, serverID string) error {
	sub := d.redis.Client.Subscribe(ctx, store.NodesChannel)
	defer sub.Close()

	query := nodesbus.NewQuery(serverID)
	payload, err := nodesbus.Marshal(query)
	if err != nil {
		return err
	}
	if err := d.redis.Client.Publish(ctx, store.NodesChannel, payload).Err(); err != nil {
		return err
	}

	go d.runEvictionSweep(ctx)

	ch := sub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			d.handleMessage(ctx, []byte(msg.Payload))
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (d *Directory) handleMessage(ctx context.Context, payload []byte) {
	env, err := nodesbus.DecodeEnvelope(payload)
	if err != nil {
		slog.Warn("mediafleet: malformed nodes-bus payload", "error", err)
		return
	}

	switch env.Event.Kind {
	case nodesbus.KindDescription:
		var evt nodesbus.Description
		if err := nodesbus.Unmarshal(payload, &evt); err != nil {
			return
		}
		d.handleDescription(evt)
	case nodesbus.KindPing:
		var evt nodesbus.Ping
		if err := nodesbus.Unmarshal(payload, &evt); err != nil {
			return
		}
		d.handlePing(evt)
	case nodesbus.KindDisconnect:
		var evt nodesbus.Disconnect
		if err := nodesbus.Unmarshal(payload, &evt); err != nil {
			return
		}
		d.handleDisconnect(evt)
	case nodesbus.KindUserCreate:
		var evt nodesbus.UserCreate
		if err := nodesbus.Unmarshal(payload, &evt); err != nil {
			return
		}
		d.pending.Resolve(evt.CallID(), evt.SessionID(), evt.Answer())
	case nodesbus.KindQuery:
		// No-op on the server: Query is the server's own announcement.
	}
}

// handleDescription inserts a newly announcing node. Duplicate
// descriptions for an already-known node id are ignored.
func (d *Directory) handleDescription(evt nodesbus.Description) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.nodes[evt.NodeID()]; exists {
		return
	}
	d.nodes[evt.NodeID()] = &node{id: evt.NodeID(), region: evt.Region(), lastPing: time.Now()}
	slog.Info("media node connected", "nodeId", evt.NodeID(), "region", evt.Region())
}

func (d *Directory) handlePing(evt nodesbus.Ping) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if n, ok := d.nodes[evt.NodeID()]; ok {
		n.lastPing = time.Now()
	}
}

func (d *Directory) handleDisconnect(evt nodesbus.Disconnect) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.nodes, evt.NodeID())
	slog.Info("media node disconnected", "nodeId", evt.NodeID())
}

func (d *Directory) runEvictionSweep(ctx context.Context) {
	ticker := time.NewTicker(EvictionInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			d.evictStale()
		case <-ctx.Done():
			return
		}
	}
}

func (d *Directory) evictStale() {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := time.Now()
	for id, n := range d.nodes {
		if now.Sub(n.lastPing) > NodeTimeout {
			delete(d.nodes, id)
			slog.Info("media node timed out", "nodeId", id)
		}
	}
}
