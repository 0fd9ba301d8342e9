package handlers

import (
	"context"

	"github.com/rjsadow/aurora/internal/apperr"
	"github.com/rjsadow/aurora/internal/domain"
	"github.com/rjsadow/aurora/internal/rpc"
)

type createSpaceRequest struct {
	Name        string `msgpack:"name"`
	Description string `msgpack:"description"`
}

type getSpaceRequest struct {
	ID string `msgpack:"id"`
}

type editSpaceRequest struct {
	ID              string  `msgpack:"id"`
	Name            *string `msgpack:"name"`
	Description     *string `msgpack:"description"`
	BasePermissions *int64  `msgpack:"basePermissions"`
}

type deleteSpaceRequest struct {
	ID string `msgpack:"id"`
}

func (h *Handlers) registerSpaces(d *rpc.Dispatcher) {
	d.Register("createSpace", func(ctx context.Context, session *rpc.Session, data any) (any, error) {
		if err := rpc.CheckAuthenticated(session); err != nil {
			return nil, err
		}
		var req createSpaceRequest
		if err := decodeParams(data, &req); err != nil {
			return nil, err
		}
		if h.MaxSpaceCount > 0 {
			owned, err := h.Spaces.CountOwnedBy(ctx, session.UserID())
			if err != nil {
				return nil, err
			}
			if owned >= h.MaxSpaceCount {
				return nil, apperr.New(apperr.BadRequest)
			}
		}
		space, err := h.Spaces.Create(ctx, req.Name, req.Description, session.UserID())
		if err != nil {
			return nil, err
		}
		if err := h.Members.Upsert(ctx, session.UserID(), space.ID); err != nil {
			return nil, err
		}
		return space, nil
	})

	d.Register("getSpace", func(ctx context.Context, session *rpc.Session, data any) (any, error) {
		if err := rpc.CheckAuthenticated(session); err != nil {
			return nil, err
		}
		var req getSpaceRequest
		if err := decodeParams(data, &req); err != nil {
			return nil, err
		}
		space, err := h.Spaces.Get(ctx, req.ID)
		if err != nil {
			return nil, err
		}
		isMember, err := h.Spaces.IsMember(ctx, space.ID, session.UserID())
		if err != nil {
			return nil, err
		}
		if !isMember {
			return nil, apperr.New(apperr.Unauthorized)
		}
		return space, nil
	})

	d.Register("editSpace", func(ctx context.Context, session *rpc.Session, data any) (any, error) {
		if err := rpc.CheckAuthenticated(session); err != nil {
			return nil, err
		}
		var req editSpaceRequest
		if err := decodeParams(data, &req); err != nil {
			return nil, err
		}
		if err := h.requirePermission(ctx, req.ID, session.UserID(), domain.PermissionManageSpace); err != nil {
			return nil, err
		}
		return h.Spaces.Update(ctx, req.ID, req.Name, req.Description, req.BasePermissions)
	})

	d.Register("deleteSpace", func(ctx context.Context, session *rpc.Session, data any) (any, error) {
		if err := rpc.CheckAuthenticated(session); err != nil {
			return nil, err
		}
		var req deleteSpaceRequest
		if err := decodeParams(data, &req); err != nil {
			return nil, err
		}
		space, err := h.Spaces.Get(ctx, req.ID)
		if err != nil {
			return nil, err
		}
		if space.Owner != session.UserID() {
			return nil, apperr.New(apperr.Unauthorized)
		}
		if err := h.Spaces.Delete(ctx, req.ID); err != nil {
			return nil, err
		}
		return struct{}{}, nil
	})
}

// requirePermission loads the caller's membership and roles in spaceID
// and returns apperr.MissingPermission if the effective permission bits
// don't include bit.
func (h *Handlers) requirePermission(ctx context.Context, spaceID, userID string, bit int64) error {
	space, err := h.Spaces.Get(ctx, spaceID)
	if err != nil {
		return err
	}
	member, err := h.Members.Get(ctx, userID, spaceID)
	if err != nil {
		return err
	}
	roles, err := h.Roles.GetForSpace(ctx, spaceID)
	if err != nil {
		return err
	}
	effective := domain.EffectivePermissions(space, roles, member)
	if effective&bit == 0 {
		return apperr.MissingPermissionErr(permissionName(bit))
	}
	return nil
}

func permissionName(bit int64) string {
	switch bit {
	case domain.PermissionJoinCalls:
		return "JoinCalls"
	case domain.PermissionStartCalls:
		return "StartCalls"
	case domain.PermissionManageCalls:
		return "ManageCalls"
	case domain.PermissionManageSpace:
		return "ManageSpace"
	default:
		return "Unknown"
	}
}
