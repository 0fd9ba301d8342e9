package handlers

import (
	"context"

	"github.com/rjsadow/aurora/internal/domain"
	"github.com/rjsadow/aurora/internal/rpc"
)

type createRoleRequest struct {
	SpaceID        string `msgpack:"spaceId"`
	Name           string `msgpack:"name"`
	PermissionBits int64  `msgpack:"permissionBits"`
	Position       int    `msgpack:"position"`
}

type editRoleRequest struct {
	ID             string  `msgpack:"id"`
	Name           *string `msgpack:"name"`
	PermissionBits *int64  `msgpack:"permissionBits"`
	Position       *int    `msgpack:"position"`
}

type deleteRoleRequest struct {
	ID string `msgpack:"id"`
}

type assignRoleRequest struct {
	SpaceID string `msgpack:"spaceId"`
	UserID  string `msgpack:"userId"`
	RoleID  string `msgpack:"roleId"`
}

func (h *Handlers) registerRoles(d *rpc.Dispatcher) {
	d.Register("createRole", func(ctx context.Context, session *rpc.Session, data any) (any, error) {
		if err := rpc.CheckAuthenticated(session); err != nil {
			return nil, err
		}
		var req createRoleRequest
		if err := decodeParams(data, &req); err != nil {
			return nil, err
		}
		if err := h.requirePermission(ctx, req.SpaceID, session.UserID(), domain.PermissionManageSpace); err != nil {
			return nil, err
		}
		return h.Roles.Create(ctx, req.SpaceID, req.Name, req.PermissionBits, req.Position)
	})

	d.Register("editRole", func(ctx context.Context, session *rpc.Session, data any) (any, error) {
		if err := rpc.CheckAuthenticated(session); err != nil {
			return nil, err
		}
		var req editRoleRequest
		if err := decodeParams(data, &req); err != nil {
			return nil, err
		}
		role, err := h.Roles.Get(ctx, req.ID)
		if err != nil {
			return nil, err
		}
		if err := h.requirePermission(ctx, role.SpaceID, session.UserID(), domain.PermissionManageSpace); err != nil {
			return nil, err
		}
		return h.Roles.Update(ctx, req.ID, req.Name, req.PermissionBits, req.Position)
	})

	d.Register("deleteRole", func(ctx context.Context, session *rpc.Session, data any) (any, error) {
		if err := rpc.CheckAuthenticated(session); err != nil {
			return nil, err
		}
		var req deleteRoleRequest
		if err := decodeParams(data, &req); err != nil {
			return nil, err
		}
		role, err := h.Roles.Get(ctx, req.ID)
		if err != nil {
			return nil, err
		}
		if err := h.requirePermission(ctx, role.SpaceID, session.UserID(), domain.PermissionManageSpace); err != nil {
			return nil, err
		}
		if err := h.Members.RemoveRole(ctx, role.SpaceID, role.ID); err != nil {
			return nil, err
		}
		if err := h.Roles.Delete(ctx, req.ID); err != nil {
			return nil, err
		}
		return struct{}{}, nil
	})

	d.Register("assignRole", func(ctx context.Context, session *rpc.Session, data any) (any, error) {
		if err := rpc.CheckAuthenticated(session); err != nil {
			return nil, err
		}
		var req assignRoleRequest
		if err := decodeParams(data, &req); err != nil {
			return nil, err
		}
		if err := h.requirePermission(ctx, req.SpaceID, session.UserID(), domain.PermissionManageSpace); err != nil {
			return nil, err
		}
		if err := h.Members.AddRole(ctx, req.UserID, req.SpaceID, req.RoleID); err != nil {
			return nil, err
		}
		return struct{}{}, nil
	})
}
