package handlers

import (
	"context"

	"github.com/rjsadow/aurora/internal/rpc"
	"github.com/rjsadow/aurora/internal/wire"
)

type addFriendRequest struct {
	ID string `msgpack:"id"`
}

type addFriendByUsernameRequest struct {
	Username string `msgpack:"username"`
}

type friendResponse struct{}

func (h *Handlers) registerFriends(d *rpc.Dispatcher) {
	d.Register("addFriend", func(ctx context.Context, session *rpc.Session, data any) (any, error) {
		if err := rpc.CheckAuthenticated(session); err != nil {
			return nil, err
		}
		var req addFriendRequest
		if err := decodeParams(data, &req); err != nil {
			return nil, err
		}
		if err := h.Users.AddFriend(ctx, session.UserID(), req.ID); err != nil {
			return nil, err
		}
		h.emitFriendAdded(session.UserID(), req.ID)
		return friendResponse{}, nil
	})

	d.Register("addFriendByUsername", func(ctx context.Context, session *rpc.Session, data any) (any, error) {
		if err := rpc.CheckAuthenticated(session); err != nil {
			return nil, err
		}
		var req addFriendByUsernameRequest
		if err := decodeParams(data, &req); err != nil {
			return nil, err
		}
		friend, err := h.Users.GetByUsername(ctx, req.Username)
		if err != nil {
			return nil, err
		}
		if err := h.Users.AddFriend(ctx, session.UserID(), friend.ID); err != nil {
			return nil, err
		}
		h.emitFriendAdded(session.UserID(), friend.ID)
		return friendResponse{}, nil
	})

	d.Register("removeFriend", func(ctx context.Context, session *rpc.Session, data any) (any, error) {
		if err := rpc.CheckAuthenticated(session); err != nil {
			return nil, err
		}
		var req addFriendRequest
		if err := decodeParams(data, &req); err != nil {
			return nil, err
		}
		if err := h.Users.RemoveFriend(ctx, session.UserID(), req.ID); err != nil {
			return nil, err
		}
		h.emitFriendRemoved(session.UserID(), req.ID)
		return friendResponse{}, nil
	})

	d.Register("getFriends", func(ctx context.Context, session *rpc.Session, data any) (any, error) {
		if err := rpc.CheckAuthenticated(session); err != nil {
			return nil, err
		}
		return h.Users.GetFriends(ctx, session.UserID())
	})
}

// emitFriendAdded notifies both parties of a completed or newly
// requested friendship.
func (h *Handlers) emitFriendAdded(callerID, friendID string) {
	payload := map[string]string{"id": friendID}
	rpc.EmitToUser(h.Registry, encodeEventFor(eventAddFriend, payload), callerID)
	rpc.EmitToUser(h.Registry, encodeEventFor(eventAddFriend, map[string]string{"id": callerID}), friendID)
}

func (h *Handlers) emitFriendRemoved(callerID, friendID string) {
	payload := map[string]string{"id": friendID}
	rpc.EmitToUser(h.Registry, encodeEventFor(eventRemoveFriend, payload), callerID)
	rpc.EmitToUser(h.Registry, encodeEventFor(eventRemoveFriend, map[string]string{"id": callerID}), friendID)
}

// encodeEventFor builds the per-session encode function EmitToUser/
// EmitAll need, respecting each target session's own encryption key.
func encodeEventFor(eventType string, data any) func(*rpc.Session) ([]byte, error) {
	return func(session *rpc.Session) ([]byte, error) {
		return rpc.EncodeFrame(wire.NewEvent(eventType, data), session.EncryptionKey())
	}
}
