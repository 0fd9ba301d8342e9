package handlers

import (
	"context"

	"github.com/rjsadow/aurora/internal/apperr"
	"github.com/rjsadow/aurora/internal/domain"
	"github.com/rjsadow/aurora/internal/rpc"
)

type startCallRequest struct {
	ChannelID string `msgpack:"id"`
	SpaceID   string `msgpack:"spaceId"`
}

type startCallResponse struct {
	ID string `msgpack:"id"`
}

type joinCallRequest struct {
	ChannelID string `msgpack:"id"`
	SpaceID   string `msgpack:"spaceId"`
	SDP       string `msgpack:"sdp"`
}

type joinCallResponse struct {
	SDP string `msgpack:"sdp"`
}

type leaveCallRequest struct {
	ChannelID string `msgpack:"id"`
	SpaceID   string `msgpack:"spaceId"`
}

type endCallRequest struct {
	ChannelID string `msgpack:"id"`
	SpaceID   string `msgpack:"spaceId"`
}

func (h *Handlers) registerCalls(d *rpc.Dispatcher) {
	d.Register("startCall", func(ctx context.Context, session *rpc.Session, data any) (any, error) {
		if err := rpc.CheckAuthenticated(session); err != nil {
			return nil, err
		}
		var req startCallRequest
		if err := decodeParams(data, &req); err != nil {
			return nil, err
		}
		if err := h.requirePermission(ctx, req.SpaceID, session.UserID(), domain.PermissionStartCalls); err != nil {
			return nil, err
		}
		call, err := h.Coordinator.Create(ctx, req.SpaceID, req.ChannelID, session.UserID())
		if err != nil {
			return nil, err
		}
		return startCallResponse{ID: call.ID}, nil
	})

	d.Register("joinCall", func(ctx context.Context, session *rpc.Session, data any) (any, error) {
		if err := rpc.CheckAuthenticated(session); err != nil {
			return nil, err
		}
		var req joinCallRequest
		if err := decodeParams(data, &req); err != nil {
			return nil, err
		}
		if err := h.requirePermission(ctx, req.SpaceID, session.UserID(), domain.PermissionJoinCalls); err != nil {
			return nil, err
		}
		call, err := h.Coordinator.GetInChannel(ctx, req.SpaceID, req.ChannelID)
		if err != nil {
			return nil, err
		}
		if call == nil {
			return nil, apperr.New(apperr.NotFound)
		}
		if err := h.Coordinator.JoinUser(ctx, call, session.UserID()); err != nil {
			return nil, err
		}
		answer, err := h.Coordinator.GetToken(ctx, call, session.UserID(), req.SDP)
		if err != nil {
			return nil, err
		}
		return joinCallResponse{SDP: answer}, nil
	})

	// leaveCall rejects the caller when they are not already a
	// participant in the call.
	d.Register("leaveCall", func(ctx context.Context, session *rpc.Session, data any) (any, error) {
		if err := rpc.CheckAuthenticated(session); err != nil {
			return nil, err
		}
		var req leaveCallRequest
		if err := decodeParams(data, &req); err != nil {
			return nil, err
		}
		call, err := h.Coordinator.GetInChannel(ctx, req.SpaceID, req.ChannelID)
		if err != nil {
			return nil, err
		}
		if call == nil || !call.HasMember(session.UserID()) {
			return nil, apperr.New(apperr.NotFound)
		}
		if err := h.Coordinator.LeaveUser(ctx, call, session.UserID()); err != nil {
			return nil, err
		}
		return struct{}{}, nil
	})

	d.Register("endCall", func(ctx context.Context, session *rpc.Session, data any) (any, error) {
		if err := rpc.CheckAuthenticated(session); err != nil {
			return nil, err
		}
		var req endCallRequest
		if err := decodeParams(data, &req); err != nil {
			return nil, err
		}
		if err := h.requirePermission(ctx, req.SpaceID, session.UserID(), domain.PermissionManageCalls); err != nil {
			return nil, err
		}
		call, err := h.Coordinator.GetInChannel(ctx, req.SpaceID, req.ChannelID)
		if err != nil {
			return nil, err
		}
		if call == nil {
			return nil, apperr.New(apperr.NotFound)
		}
		if err := h.Coordinator.End(ctx, call); err != nil {
			return nil, err
		}
		return struct{}{}, nil
	})
}
