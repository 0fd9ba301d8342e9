package domain

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rjsadow/aurora/internal/apperr"
	"github.com/rjsadow/aurora/internal/idgen"
	"github.com/rjsadow/aurora/internal/store"
)

// Permission bits, grounded on the original's Permission enum referenced
// from methods/webrtc.rs.
const (
	PermissionJoinCalls   int64 = 1 << 1
	PermissionStartCalls  int64 = 1 << 2
	PermissionManageCalls int64 = 1 << 3
	PermissionManageSpace int64 = 1 << 4
)

// Role is a space-scoped permission grant.
type Role struct {
	ID             string `bson:"id"`
	SpaceID        string `bson:"spaceId"`
	Name           string `bson:"name"`
	PermissionBits int64  `bson:"permissionBits"`
	Position       int    `bson:"position"`
}

// HasPermission reports whether this role grants bit.
func (r *Role) HasPermission(bit int64) bool {
	return r.PermissionBits&bit != 0
}

// Roles is the roles collection's repository.
type Roles struct {
	col *mongo.Collection
}

// NewRoles builds a Roles repository over m.
func NewRoles(m *store.Mongo) *Roles {
	return &Roles{col: m.Collection(store.CollectionRoles)}
}

// Get returns the role record for id.
func (r *Roles) Get(ctx context.Context, id string) (*Role, error) {
	var role Role
	err := r.col.FindOne(ctx, bson.M{"id": id}).Decode(&role)
	if err == mongo.ErrNoDocuments {
		return nil, apperr.New(apperr.NotFound)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Storage, err)
	}
	return &role, nil
}

// GetForSpace returns every role defined on spaceID, in position order.
func (r *Roles) GetForSpace(ctx context.Context, spaceID string) ([]Role, error) {
	cursor, err := r.col.Find(ctx, bson.M{"spaceId": spaceID},
		options.Find().SetSort(bson.D{{Key: "position", Value: 1}}))
	if err != nil {
		return nil, apperr.Wrap(apperr.Storage, err)
	}
	defer cursor.Close(ctx)

	roles := []Role{}
	if err := cursor.All(ctx, &roles); err != nil {
		return nil, apperr.Wrap(apperr.Storage, err)
	}
	return roles, nil
}

// Create inserts a new role under spaceID.
func (r *Roles) Create(ctx context.Context, spaceID, name string, permissionBits int64, position int) (*Role, error) {
	role := &Role{
		ID:             idgen.NewULID(),
		SpaceID:        spaceID,
		Name:           name,
		PermissionBits: permissionBits,
		Position:       position,
	}
	if _, err := r.col.InsertOne(ctx, role); err != nil {
		return nil, apperr.Wrap(apperr.Storage, err)
	}
	return role, nil
}

// Update applies the non-nil fields to the role identified by id.
func (r *Roles) Update(ctx context.Context, id string, name *string, permissionBits *int64, position *int) (*Role, error) {
	set := bson.M{}
	if name != nil {
		set["name"] = *name
	}
	if permissionBits != nil {
		set["permissionBits"] = *permissionBits
	}
	if position != nil {
		set["position"] = *position
	}
	if len(set) == 0 {
		return r.Get(ctx, id)
	}

	var role Role
	err := r.col.FindOneAndUpdate(ctx,
		bson.M{"id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&role)
	if err == mongo.ErrNoDocuments {
		return nil, apperr.New(apperr.NotFound)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Storage, err)
	}
	return &role, nil
}

// Delete removes the role record. Callers own unassigning it from
// members (see Members.RemoveRole) and from the owning space's roleIds.
func (r *Roles) Delete(ctx context.Context, id string) error {
	if _, err := r.col.DeleteOne(ctx, bson.M{"id": id}); err != nil {
		return apperr.Wrap(apperr.Storage, err)
	}
	return nil
}

// EffectivePermissions ORs together a space's base permissions with every
// role the member holds — a member can do anything any of their roles,
// or the space's @everyone default, grants.
func EffectivePermissions(space *Space, roles []Role, member *Member) int64 {
	bits := space.BasePermissions
	if member == nil {
		return bits
	}
	held := make(map[string]bool, len(member.RoleIDs))
	for _, id := range member.RoleIDs {
		held[id] = true
	}
	for _, role := range roles {
		if held[role.ID] {
			bits |= role.PermissionBits
		}
	}
	return bits
}
