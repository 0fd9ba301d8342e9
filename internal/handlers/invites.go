package handlers

import (
	"context"
	"time"

	"github.com/rjsadow/aurora/internal/domain"
	"github.com/rjsadow/aurora/internal/rpc"
)

type createInviteRequest struct {
	SpaceID   string `msgpack:"spaceId"`
	ExpiresIn *int64 `msgpack:"expiresIn"` // seconds from now
	MaxUses   *int   `msgpack:"maxUses"`
}

type inviteCodeRequest struct {
	Code string `msgpack:"code"`
}

type getInvitesRequest struct {
	SpaceID string `msgpack:"spaceId"`
}

func (h *Handlers) registerInvites(d *rpc.Dispatcher) {
	d.Register("createInvite", func(ctx context.Context, session *rpc.Session, data any) (any, error) {
		if err := rpc.CheckAuthenticated(session); err != nil {
			return nil, err
		}
		var req createInviteRequest
		if err := decodeParams(data, &req); err != nil {
			return nil, err
		}
		if err := h.requirePermission(ctx, req.SpaceID, session.UserID(), domain.PermissionManageSpace); err != nil {
			return nil, err
		}
		var expiresAt *time.Time
		if req.ExpiresIn != nil {
			t := time.Now().Add(time.Duration(*req.ExpiresIn) * time.Second)
			expiresAt = &t
		}
		return h.Invites.Create(ctx, req.SpaceID, expiresAt, req.MaxUses)
	})

	d.Register("deleteInvite", func(ctx context.Context, session *rpc.Session, data any) (any, error) {
		if err := rpc.CheckAuthenticated(session); err != nil {
			return nil, err
		}
		var req inviteCodeRequest
		if err := decodeParams(data, &req); err != nil {
			return nil, err
		}
		invite, err := h.Invites.Get(ctx, req.Code)
		if err != nil {
			return nil, err
		}
		if err := h.requirePermission(ctx, invite.SpaceID, session.UserID(), domain.PermissionManageSpace); err != nil {
			return nil, err
		}
		if err := h.Invites.Delete(ctx, req.Code); err != nil {
			return nil, err
		}
		return struct{}{}, nil
	})

	d.Register("getInvite", func(ctx context.Context, session *rpc.Session, data any) (any, error) {
		if err := rpc.CheckAuthenticated(session); err != nil {
			return nil, err
		}
		var req inviteCodeRequest
		if err := decodeParams(data, &req); err != nil {
			return nil, err
		}
		return h.Invites.Get(ctx, req.Code)
	})

	d.Register("getInvites", func(ctx context.Context, session *rpc.Session, data any) (any, error) {
		if err := rpc.CheckAuthenticated(session); err != nil {
			return nil, err
		}
		var req getInvitesRequest
		if err := decodeParams(data, &req); err != nil {
			return nil, err
		}
		if err := h.requirePermission(ctx, req.SpaceID, session.UserID(), domain.PermissionManageSpace); err != nil {
			return nil, err
		}
		return h.Invites.GetForSpace(ctx, req.SpaceID)
	})

	d.Register("acceptInvite", func(ctx context.Context, session *rpc.Session, data any) (any, error) {
		if err := rpc.CheckAuthenticated(session); err != nil {
			return nil, err
		}
		var req inviteCodeRequest
		if err := decodeParams(data, &req); err != nil {
			return nil, err
		}
		space, err := h.Invites.Accept(ctx, h.Spaces, session.UserID(), req.Code)
		if err != nil {
			return nil, err
		}
		if err := h.Members.Upsert(ctx, session.UserID(), space.ID); err != nil {
			return nil, err
		}
		return space, nil
	})
}
