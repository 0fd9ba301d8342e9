package handlers

import (
	"context"

	"github.com/rjsadow/aurora/internal/apperr"
	"github.com/rjsadow/aurora/internal/domain"
	"github.com/rjsadow/aurora/internal/rpc"
)

type getChannelRequest struct {
	ID string `msgpack:"id"`
}

type getChannelsRequest struct {
	SpaceID string `msgpack:"spaceId"`
}

type createChannelRequest struct {
	SpaceID string `msgpack:"spaceId"`
	Name    string `msgpack:"name"`
	Variant string `msgpack:"variant"`
}

func (h *Handlers) registerChannels(d *rpc.Dispatcher) {
	d.Register("getChannel", func(ctx context.Context, session *rpc.Session, data any) (any, error) {
		if err := rpc.CheckAuthenticated(session); err != nil {
			return nil, err
		}
		var req getChannelRequest
		if err := decodeParams(data, &req); err != nil {
			return nil, err
		}
		channel, err := h.Channels.Get(ctx, req.ID)
		if err != nil {
			return nil, err
		}
		isMember, err := channel.HasMember(ctx, h.Spaces, session.UserID())
		if err != nil {
			return nil, err
		}
		if !isMember {
			return nil, apperr.New(apperr.Unauthorized)
		}
		return channel, nil
	})

	d.Register("getChannels", func(ctx context.Context, session *rpc.Session, data any) (any, error) {
		if err := rpc.CheckAuthenticated(session); err != nil {
			return nil, err
		}
		var req getChannelsRequest
		if err := decodeParams(data, &req); err != nil {
			return nil, err
		}
		isMember, err := h.Spaces.IsMember(ctx, req.SpaceID, session.UserID())
		if err != nil {
			return nil, err
		}
		if !isMember {
			return nil, apperr.New(apperr.Unauthorized)
		}
		return h.Channels.GetForSpace(ctx, req.SpaceID)
	})

	d.Register("createChannel", func(ctx context.Context, session *rpc.Session, data any) (any, error) {
		if err := rpc.CheckAuthenticated(session); err != nil {
			return nil, err
		}
		var req createChannelRequest
		if err := decodeParams(data, &req); err != nil {
			return nil, err
		}
		if err := h.requirePermission(ctx, req.SpaceID, session.UserID(), domain.PermissionManageSpace); err != nil {
			return nil, err
		}
		return h.Channels.CreateSpaceChannel(ctx, h.Spaces, req.SpaceID, req.Name, domain.ChannelVariant(req.Variant))
	})
}
