package domain

import (
	"context"
	"testing"
)

func TestRoles_CreateGetUpdateDelete(t *testing.T) {
	m := newTestMongo(t)
	roles := NewRoles(m)
	ctx := context.Background()

	role, err := roles.Create(ctx, "space-1", "Moderator", PermissionManageCalls, 1)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if !role.HasPermission(PermissionManageCalls) {
		t.Fatalf("HasPermission(ManageCalls) = false, want true")
	}
	if role.HasPermission(PermissionManageSpace) {
		t.Fatalf("HasPermission(ManageSpace) = true, want false")
	}

	newBits := PermissionManageCalls | PermissionManageSpace
	updated, err := roles.Update(ctx, role.ID, nil, &newBits, nil)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if !updated.HasPermission(PermissionManageSpace) {
		t.Fatalf("HasPermission(ManageSpace) after update = false, want true")
	}

	if err := roles.Delete(ctx, role.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
}

func TestEffectivePermissions_CombinesBaseAndRoles(t *testing.T) {
	space := &Space{BasePermissions: PermissionJoinCalls}
	roles := []Role{{ID: "r1", PermissionBits: PermissionManageCalls}}
	member := &Member{RoleIDs: []string{"r1"}}

	bits := EffectivePermissions(space, roles, member)
	if bits&PermissionJoinCalls == 0 {
		t.Fatalf("effective bits missing base permission: %v", bits)
	}
	if bits&PermissionManageCalls == 0 {
		t.Fatalf("effective bits missing role permission: %v", bits)
	}
}

func TestEffectivePermissions_NilMemberIsBaseOnly(t *testing.T) {
	space := &Space{BasePermissions: PermissionJoinCalls}
	bits := EffectivePermissions(space, nil, nil)
	if bits != PermissionJoinCalls {
		t.Fatalf("effective bits = %v, want base only %v", bits, PermissionJoinCalls)
	}
}
