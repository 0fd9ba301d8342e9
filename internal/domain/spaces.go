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

// DefaultBasePermissions mirrors the original's default grant for a
// newly created space's @everyone role.
const DefaultBasePermissions int64 = 0x16

// Space groups channels and members under one owner.
type Space struct {
	ID              string   `bson:"id"`
	Name            string   `bson:"name"`
	Description     string   `bson:"description"`
	ChannelIDs      []string `bson:"channelIds"`
	MemberIDs       []string `bson:"memberIds"`
	RoleIDs         []string `bson:"roleIds"`
	Owner           string   `bson:"owner"`
	BasePermissions int64    `bson:"basePermissions"`
}

// Spaces is the spaces collection's repository.
type Spaces struct {
	col         *mongo.Collection
	channelsCol *mongo.Collection
	invitesCol  *mongo.Collection
	rolesCol    *mongo.Collection
	membersCol  *mongo.Collection
}

// NewSpaces builds a Spaces repository over m.
func NewSpaces(m *store.Mongo) *Spaces {
	return &Spaces{
		col:         m.Collection(store.CollectionSpaces),
		channelsCol: m.Collection(store.CollectionChannels),
		invitesCol:  m.Collection(store.CollectionInvites),
		rolesCol:    m.Collection(store.CollectionRoles),
		membersCol:  m.Collection(store.CollectionMembers),
	}
}

// Create inserts a new space owned by ownerID, with the owner as its sole
// initial member.
func (s *Spaces) Create(ctx context.Context, name, description, ownerID string) (*Space, error) {
	space := &Space{
		ID:              idgen.NewULID(),
		Name:            name,
		Description:     description,
		ChannelIDs:      []string{},
		MemberIDs:       []string{ownerID},
		RoleIDs:         []string{},
		Owner:           ownerID,
		BasePermissions: DefaultBasePermissions,
	}
	if _, err := s.col.InsertOne(ctx, space); err != nil {
		return nil, apperr.Wrap(apperr.Storage, err)
	}
	return space, nil
}

// Get returns the space record for id.
func (s *Spaces) Get(ctx context.Context, id string) (*Space, error) {
	var space Space
	err := s.col.FindOne(ctx, bson.M{"id": id}).Decode(&space)
	if err == mongo.ErrNoDocuments {
		return nil, apperr.New(apperr.NotFound)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Storage, err)
	}
	return &space, nil
}

// Update applies the non-nil fields to the space identified by id and
// returns the updated record.
func (s *Spaces) Update(ctx context.Context, id string, name, description *string, basePermissions *int64) (*Space, error) {
	set := bson.M{}
	if name != nil {
		set["name"] = *name
	}
	if description != nil {
		set["description"] = *description
	}
	if basePermissions != nil {
		set["basePermissions"] = *basePermissions
	}
	if len(set) == 0 {
		return s.Get(ctx, id)
	}

	var space Space
	err := s.col.FindOneAndUpdate(ctx,
		bson.M{"id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&space)
	if err == mongo.ErrNoDocuments {
		return nil, apperr.New(apperr.NotFound)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Storage, err)
	}
	return &space, nil
}

// Delete removes the space and every record that belongs to it
// (channels, invites, roles, members) — mirrors the original's
// Space::delete cascade.
func (s *Spaces) Delete(ctx context.Context, id string) error {
	if _, err := s.col.DeleteOne(ctx, bson.M{"id": id}); err != nil {
		return apperr.Wrap(apperr.Storage, err)
	}
	if _, err := s.channelsCol.DeleteMany(ctx, bson.M{"spaceId": id}); err != nil {
		return apperr.Wrap(apperr.Storage, err)
	}
	if _, err := s.invitesCol.DeleteMany(ctx, bson.M{"spaceId": id}); err != nil {
		return apperr.Wrap(apperr.Storage, err)
	}
	if _, err := s.rolesCol.DeleteMany(ctx, bson.M{"spaceId": id}); err != nil {
		return apperr.Wrap(apperr.Storage, err)
	}
	if _, err := s.membersCol.DeleteMany(ctx, bson.M{"spaceId": id}); err != nil {
		return apperr.Wrap(apperr.Storage, err)
	}
	return nil
}

// AddMember appends userID to the space's member list.
func (s *Spaces) AddMember(ctx context.Context, spaceID, userID string) error {
	_, err := s.col.UpdateOne(ctx,
		bson.M{"id": spaceID},
		bson.M{"$push": bson.M{"memberIds": userID}},
	)
	if err != nil {
		return apperr.Wrap(apperr.Storage, err)
	}
	return nil
}

// CountOwnedBy returns how many spaces ownerID owns, used to enforce the
// per-user space cap (MAX_SPACE_COUNT, SPEC_FULL.md §6).
func (s *Spaces) CountOwnedBy(ctx context.Context, ownerID string) (int, error) {
	count, err := s.col.CountDocuments(ctx, bson.M{"owner": ownerID})
	if err != nil {
		return 0, apperr.Wrap(apperr.Storage, err)
	}
	return int(count), nil
}

// IsMember reports whether userID belongs to the space.
func (s *Spaces) IsMember(ctx context.Context, spaceID, userID string) (bool, error) {
	count, err := s.col.CountDocuments(ctx, bson.M{"id": spaceID, "memberIds": userID})
	if err != nil {
		return false, apperr.Wrap(apperr.Storage, err)
	}
	return count > 0, nil
}
