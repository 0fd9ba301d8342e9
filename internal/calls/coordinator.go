package calls

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/rjsadow/aurora/internal/apperr"
	"github.com/rjsadow/aurora/internal/domain"
	"github.com/rjsadow/aurora/internal/idgen"
	"github.com/rjsadow/aurora/internal/nodesbus"
	"github.com/rjsadow/aurora/internal/store"
)

// SnapshotInterval is how often the coordinator rewrites a live call's
// history snapshot, per spec.md §4.9.
const SnapshotInterval = 30 * time.Second

// Coordinator implements C9: create/getInChannel/joinUser/getToken/
// leaveUser/end against the shared Redis key-value store, publishing
// rendezvous requests to media nodes over the "nodes" pub/sub channel
// and resolving them through the C10 pending-request table.
type Coordinator struct {
	redis             *store.Redis
	histories         *domain.CallHistories
	pending           *PendingRequests
	archiver          *Archiver
	mediaTokenTimeout time.Duration

	mu        sync.Mutex
	snapshots map[string]context.CancelFunc
}

// NewCoordinator builds a Coordinator. mediaTokenTimeout bounds GetToken,
// resolving spec.md §9 Open Question 3. archiver may be nil, in which case
// End skips the cold-storage mirror.
func NewCoordinator(redisStore *store.Redis, histories *domain.CallHistories, pending *PendingRequests, archiver *Archiver, mediaTokenTimeout time.Duration) *Coordinator {
	return &Coordinator{
		redis:             redisStore,
		histories:         histories,
		pending:           pending,
		archiver:          archiver,
		mediaTokenTimeout: mediaTokenTimeout,
		snapshots:         make(map[string]context.CancelFunc),
	}
}

// Create starts a new call in (spaceID, channelID) with initiatorID as
// its sole member, failing with AlreadyExists if one is already live
// there. The witness key is claimed with SETNX so two concurrent
// creates for the same (space, channel) produce exactly one success.
func (c *Coordinator) Create(ctx context.Context, spaceID, channelID, initiatorID string) (*ActiveCall, error) {
	witnessKey := store.CallWitnessKey(spaceID, channelID)
	callID := idgen.NewULID()

	claimed, err := c.redis.Client.SetNX(ctx, witnessKey, callID, 0).Result()
	if err != nil {
		return nil, apperr.Wrap(apperr.Storage, err)
	}
	if !claimed {
		return nil, apperr.New(apperr.AlreadyExists)
	}

	call := &ActiveCall{
		ID:        callID,
		Members:   []string{initiatorID},
		SpaceID:   spaceID,
		ChannelID: channelID,
	}
	if err := c.writeRecord(ctx, call); err != nil {
		return nil, err
	}
	if err := c.histories.Create(ctx, callID, spaceID, channelID, call.Name, call.Members); err != nil {
		return nil, err
	}

	c.spawnSnapshotTask(witnessKey, callID)
	return call, nil
}

// GetInChannel returns the call live in (spaceID, channelID), or nil if
// none is.
func (c *Coordinator) GetInChannel(ctx context.Context, spaceID, channelID string) (*ActiveCall, error) {
	callID, err := c.redis.Client.Get(ctx, store.CallWitnessKey(spaceID, channelID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Storage, err)
	}
	return c.get(ctx, callID)
}

func (c *Coordinator) get(ctx context.Context, callID string) (*ActiveCall, error) {
	raw, err := c.redis.Client.Get(ctx, store.CallKey(callID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Storage, err)
	}
	var call ActiveCall
	if err := msgpack.Unmarshal(raw, &call); err != nil {
		return nil, apperr.Wrap(apperr.Storage, err)
	}
	return &call, nil
}

func (c *Coordinator) writeRecord(ctx context.Context, call *ActiveCall) error {
	raw, err := msgpack.Marshal(call)
	if err != nil {
		return apperr.Wrap(apperr.Storage, err)
	}
	if err := c.redis.Client.Set(ctx, store.CallKey(call.ID), raw, 0).Err(); err != nil {
		return apperr.Wrap(apperr.Storage, err)
	}
	return nil
}

// JoinUser appends userID to call's member list. Callers own permission
// checks and double-join prevention; this layer enforces neither, per
// spec.md §4.9.
func (c *Coordinator) JoinUser(ctx context.Context, call *ActiveCall, userID string) error {
	call.Members = append(call.Members, userID)
	return c.writeRecord(ctx, call)
}

// GetToken allocates a rendezvous slot for (call.id, userID), publishes
// a UserConnect offer on the "nodes" channel, and waits for a media
// node's UserCreate answer, bounded by mediaTokenTimeout.
func (c *Coordinator) GetToken(ctx context.Context, call *ActiveCall, userID, offerSDP string) (string, error) {
	c.pending.Insert(call.ID, userID)

	event := nodesbus.NewUserConnect(idgen.NewULID(), call.ID, userID, offerSDP)
	payload, err := nodesbus.Marshal(event)
	if err != nil {
		return "", apperr.Wrap(apperr.Storage, err)
	}
	if err := c.redis.Client.Publish(ctx, store.NodesChannel, payload).Err(); err != nil {
		return "", apperr.Wrap(apperr.Storage, err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, c.mediaTokenTimeout)
	defer cancel()
	answer, err := c.pending.Wait(waitCtx, call.ID, userID)
	if err != nil {
		return "", apperr.New(apperr.MediaTimeout)
	}
	return answer, nil
}

// LeaveUser removes userID from call's member list, ending the call if
// that empties it.
func (c *Coordinator) LeaveUser(ctx context.Context, call *ActiveCall, userID string) error {
	call.Members = removeMember(call.Members, userID)
	if len(call.Members) == 0 {
		return c.End(ctx, call)
	}
	return c.writeRecord(ctx, call)
}

// End deletes the call's uniqueness witness (ensuring subsequent
// GetInChannel calls return absent) and finalizes its history snapshot.
// The canonical record is also deleted; the most recent history
// snapshot remains the final record. If an archiver is configured, the
// finalized snapshot is also mirrored to cold storage; archive failures
// are logged but never fail the call-ending operation.
func (c *Coordinator) End(ctx context.Context, call *ActiveCall) error {
	if err := c.redis.Client.Del(ctx, store.CallWitnessKey(call.SpaceID, call.ChannelID)).Err(); err != nil {
		return apperr.Wrap(apperr.Storage, err)
	}
	if err := c.redis.Client.Del(ctx, store.CallKey(call.ID)).Err(); err != nil {
		return apperr.Wrap(apperr.Storage, err)
	}
	if err := c.histories.Finalize(ctx, call.ID); err != nil {
		return err
	}

	if c.archiver != nil {
		record, err := c.histories.Get(ctx, call.ID)
		if err != nil {
			slog.Warn("call archive: failed to read finalized snapshot", "callId", call.ID, "error", err)
			return nil
		}
		if err := c.archiver.Archive(ctx, record); err != nil {
			slog.Warn("call archive: failed to mirror snapshot to cold storage", "callId", call.ID, "error", err)
		}
	}

	return nil
}

// spawnSnapshotTask starts the periodic history-snapshot task for a
// newly created call, exiting once the witness disappears.
func (c *Coordinator) spawnSnapshotTask(witnessKey, callID string) {
	ctx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	c.snapshots[callID] = cancel
	c.mu.Unlock()

	go func() {
		defer func() {
			c.mu.Lock()
			delete(c.snapshots, callID)
			c.mu.Unlock()
		}()

		ticker := time.NewTicker(SnapshotInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				exists, err := c.redis.Client.Exists(ctx, witnessKey).Result()
				if err != nil {
					slog.Warn("call snapshot: witness check failed", "callId", callID, "error", err)
					continue
				}
				if exists == 0 {
					return
				}
				call, err := c.get(ctx, callID)
				if err != nil || call == nil {
					return
				}
				if err := c.histories.UpdateMembers(ctx, callID, call.Members); err != nil {
					slog.Warn("call snapshot: history update failed", "callId", callID, "error", err)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

// StopSnapshots cancels every in-flight periodic snapshot task, used at
// shutdown.
func (c *Coordinator) StopSnapshots() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, cancel := range c.snapshots {
		cancel()
	}
}
